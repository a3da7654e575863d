package engine

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

func newTestCache(mutate func(*Config)) (*entityRenderCache, *countingBuilder) {
	b := &countingBuilder{}
	cfg := Config{BuildObject: b.build}
	if mutate != nil {
		mutate(&cfg)
	}
	cfg, _ = cfg.withDefaults(zerolog.Nop())
	return newEntityRenderCache(newFakeClock(), zerolog.Nop(), cfg), b
}

func TestCacheFirstSightingBuilds(t *testing.T) {
	c, b := newTestCache(nil)
	res := c.diff([]types.EntityUpdate{
		update("1", 10, 20, nil),
		update("2", 11, 21, nil),
	}, nil)
	if res.Created != 2 || res.Reused != 0 || res.Removed != 0 {
		t.Fatalf("diff = %+v, want 2 created", res)
	}
	if b.builds != 2 {
		t.Fatalf("builder ran %d times, want 2", b.builds)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(res.Objects))
	}
}

func TestCacheUnchangedBatchReusesEverything(t *testing.T) {
	c, b := newTestCache(nil)
	batch := []types.EntityUpdate{
		update("1", 10, 20, map[string]string{"status": "moving"}),
		update("2", 11, 21, map[string]string{"status": "idle"}),
		update("3", 12, 22, nil),
	}
	c.diff(batch, nil)
	res := c.diff(batch, nil)
	if res.Created != 0 || res.Removed != 0 || res.Reused != len(batch) {
		t.Fatalf("diff = %+v, want created=0 removed=0 reused=%d", res, len(batch))
	}
	if b.builds != len(batch) {
		t.Fatalf("builder ran %d times, want only the first pass", b.builds)
	}
}

func TestCacheNewIdsCostExactlyK(t *testing.T) {
	c, _ := newTestCache(nil)
	batch := []types.EntityUpdate{update("1", 1, 1, nil), update("2", 2, 2, nil)}
	c.diff(batch, nil)

	batch = append(batch, update("3", 3, 3, nil), update("4", 4, 4, nil), update("5", 5, 5, nil))
	res := c.diff(batch, nil)
	if res.Created != 3 || res.Reused != 2 {
		t.Fatalf("diff = %+v, want created=3 reused=2", res)
	}
}

func TestCacheSubEpsilonPositionIsNoise(t *testing.T) {
	c, _ := newTestCache(nil)
	c.diff([]types.EntityUpdate{update("1", 10.0, 20.0, nil)}, nil)
	res := c.diff([]types.EntityUpdate{update("1", 10.0+1e-8, 20.0, nil)}, nil)
	if res.Reused != 1 || res.Created != 0 {
		t.Fatalf("diff = %+v, want reused=1 created=0 for sub-epsilon delta", res)
	}

	res = c.diff([]types.EntityUpdate{update("1", 10.0+1e-3, 20.0, nil)}, nil)
	if res.Created != 1 || res.Reused != 0 {
		t.Fatalf("diff = %+v, want rebuild for real movement", res)
	}
}

func TestCacheRebuildCauses(t *testing.T) {
	c, _ := newTestCache(func(cfg *Config) { cfg.EnableDiagnostics = true })
	c.diff([]types.EntityUpdate{update("1", 10, 20, map[string]string{"s": "a"})}, nil)

	// State field change.
	res := c.diff([]types.EntityUpdate{update("1", 10, 20, map[string]string{"s": "b"})}, nil)
	if res.Created != 1 {
		t.Fatalf("state change not rebuilt: %+v", res)
	}
	// Selection change.
	res = c.diff([]types.EntityUpdate{update("1", 10, 20, map[string]string{"s": "b"})}, map[string]bool{"1": true})
	if res.Created != 1 {
		t.Fatalf("selection change not rebuilt: %+v", res)
	}
	if res.ChangedFields["state"] != 1 || res.ChangedFields["selection"] != 1 {
		t.Fatalf("changed fields = %v", res.ChangedFields)
	}
}

func TestCacheDisposesOldObjectOnRebuild(t *testing.T) {
	c, b := newTestCache(nil)
	c.diff([]types.EntityUpdate{update("1", 10, 20, nil)}, nil)
	c.diff([]types.EntityUpdate{update("1", 50, 20, nil)}, nil)
	if !b.objs[0].disposed {
		t.Fatalf("replaced object not disposed")
	}
	if b.objs[1].disposed {
		t.Fatalf("live object disposed")
	}
}

func TestCacheRemovalAfterGraceWindow(t *testing.T) {
	c, b := newTestCache(nil)
	c.diff([]types.EntityUpdate{update("1", 10, 20, nil), update("2", 11, 21, nil)}, nil)

	only2 := []types.EntityUpdate{update("2", 11, 21, nil)}
	for i := 0; i < defaultRemovalGrace; i++ {
		res := c.diff(only2, nil)
		if res.Removed != 0 {
			t.Fatalf("removed during grace window at batch %d", i)
		}
	}
	res := c.diff(only2, nil)
	if res.Removed != 1 {
		t.Fatalf("diff = %+v, want removed=1 past grace window", res)
	}
	if !b.objs[0].disposed {
		t.Fatalf("removed entity's object not disposed")
	}
	if len(c.snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(c.snaps))
	}

	// Reappearing costs a fresh build.
	res = c.diff([]types.EntityUpdate{update("1", 10, 20, nil), update("2", 11, 21, nil)}, nil)
	if res.Created != 1 || res.Reused != 1 {
		t.Fatalf("diff = %+v after reappearance", res)
	}
}

func TestCacheMalformedUpdatesSkipped(t *testing.T) {
	c, _ := newTestCache(nil)
	res := c.diff([]types.EntityUpdate{
		update("1", 10, 20, nil),
		update("", 99, 99, nil),
		update("2", 11, 21, nil),
	}, nil)
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}
	if res.Created != 2 {
		t.Fatalf("batch did not continue past malformed item: %+v", res)
	}
	if c.stats().Skipped != 1 {
		t.Fatalf("cumulative skip counter = %d", c.stats().Skipped)
	}
}

func TestCacheEntityCapDropsBeforeCompare(t *testing.T) {
	c, b := newTestCache(nil)
	c.configure(LodConfig{EntityCap: 2})

	batch := make([]types.EntityUpdate, 5)
	for i := range batch {
		batch[i] = update(fmt.Sprintf("%d", i), float64(i), float64(i), nil)
	}
	res := c.diff(batch, nil)
	if res.Created != 2 || b.builds != 2 {
		t.Fatalf("created = %d builds = %d, want cap of 2", res.Created, b.builds)
	}

	// Capped-out ids still count as sighted: nothing goes stale while the
	// batch keeps reporting them.
	for i := 0; i < defaultRemovalGrace+2; i++ {
		if res := c.diff(batch, nil); res.Removed != 0 {
			t.Fatalf("capped-out entity went stale")
		}
	}
}

func TestCacheSelectedAdmittedFirstUnderCap(t *testing.T) {
	c, _ := newTestCache(nil)
	c.configure(LodConfig{EntityCap: 1})
	batch := []types.EntityUpdate{
		update("1", 1, 1, nil),
		update("2", 2, 2, nil),
	}
	res := c.diff(batch, map[string]bool{"2": true})
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	if _, ok := c.snaps["2"]; !ok {
		t.Fatalf("selected entity lost the cap slot")
	}
}

func TestCacheSelectionOnlyFilter(t *testing.T) {
	c, _ := newTestCache(nil)
	c.setSelectionOnly(true)
	batch := []types.EntityUpdate{
		update("1", 1, 1, nil),
		update("2", 2, 2, nil),
		update("3", 3, 3, nil),
	}
	res := c.diff(batch, map[string]bool{"2": true})
	if res.Created != 1 || len(c.snaps) != 1 {
		t.Fatalf("selection-only admitted %d, want 1", res.Created)
	}
}

func TestCacheEfficiency(t *testing.T) {
	c, _ := newTestCache(nil)
	if c.efficiency() != 0 {
		t.Fatalf("cold cache efficiency = %v, want 0", c.efficiency())
	}
	batch := []types.EntityUpdate{update("1", 1, 1, nil)}
	c.diff(batch, nil)
	for i := 0; i < 9; i++ {
		c.diff(batch, nil)
	}
	if got := c.efficiency(); got != 0.9 {
		t.Fatalf("efficiency = %v, want 0.9 (9 reuses / 10 passes)", got)
	}
}

func TestCacheDuplicateIdFirstWins(t *testing.T) {
	c, b := newTestCache(nil)
	res := c.diff([]types.EntityUpdate{
		update("1", 10, 20, nil),
		update("1", 99, 99, nil),
	}, nil)
	if res.Created != 1 || b.builds != 1 {
		t.Fatalf("duplicate id built twice: %+v", res)
	}
	if c.snaps["1"].pos.Lat != 10 {
		t.Fatalf("later duplicate overwrote first occurrence")
	}
}
