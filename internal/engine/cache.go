package engine

import (
	"math"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// entitySnapshot is the cache's record of one live entity: the state it
// was last rendered with plus the object built for it. At most one
// snapshot exists per id.
type entitySnapshot struct {
	id       string
	pos      types.Position
	state    map[string]string
	selected bool
	obj      types.RenderObject
	lastSeen int // batch sequence the id last appeared in
	missed   int // consecutive batches without the id
}

// entityRenderCache decides reuse-vs-rebuild per entity by diffing the
// incoming update against the snapshot it rendered last time. Entities
// over the tier cap or outside an active selection-only filter are dropped
// before any comparison. Constructions per pass never exceed the number of
// true content changes.
type entityRenderCache struct {
	clock Clock
	log   zerolog.Logger
	build types.ObjectBuilder

	snaps map[string]*entitySnapshot
	seq   int

	entityCap       int // 0 = unbounded
	simplifyEpsilon float64
	positionEpsilon float64
	removalGrace    int
	selectionOnly   bool
	diagnostics     bool

	created uint64
	reused  uint64
	removed uint64
	skipped uint64
	// rebuild causes, kept only when diagnostics are enabled
	changedFields map[string]int
}

func newEntityRenderCache(clock Clock, log zerolog.Logger, cfg Config) *entityRenderCache {
	c := &entityRenderCache{
		clock:           clock,
		log:             log,
		build:           cfg.BuildObject,
		snaps:           make(map[string]*entitySnapshot),
		positionEpsilon: cfg.PositionEpsilon,
		removalGrace:    cfg.RemovalGraceBatches,
		diagnostics:     cfg.EnableDiagnostics,
	}
	if c.diagnostics {
		c.changedFields = make(map[string]int)
	}
	c.configure(cfg.Modes[LodHigh])
	return c
}

// configure applies the tier's cap and simplification tolerance. Called by
// the engine on every confirmed transition.
func (c *entityRenderCache) configure(lc LodConfig) {
	c.entityCap = lc.EntityCap
	c.simplifyEpsilon = lc.SimplifyEpsilon
}

func (c *entityRenderCache) setSelectionOnly(on bool) { c.selectionOnly = on }

// diff processes one ordered entity batch against the cache. Admission
// runs first (selection filter, tier cap with selected entities first),
// then each admitted update is compared against its snapshot; only changed
// or unseen entities cost a build. Ids absent from the batch beyond the
// grace window are removed and their objects disposed. Malformed updates
// are skipped individually and the pass continues.
func (c *entityRenderCache) diff(batch []types.EntityUpdate, selected map[string]bool) types.DiffResult {
	c.seq++
	res := types.DiffResult{}

	present := make(map[string]bool, len(batch))
	for i := range batch {
		if batch[i].ID != "" {
			present[batch[i].ID] = true
		}
	}

	for _, u := range c.admit(batch, selected, &res) {
		snap, ok := c.snaps[u.ID]
		if !ok {
			snap = &entitySnapshot{id: u.ID}
			c.snaps[u.ID] = snap
			c.rebuild(snap, u, selected[u.ID], "")
			res.Created++
		} else if cause := c.changeCause(snap, u, selected[u.ID]); cause != "" {
			if snap.obj != nil {
				snap.obj.Dispose()
			}
			c.rebuild(snap, u, selected[u.ID], cause)
			res.Created++
		} else {
			// Reuse keeps the rendered position: sub-epsilon drift
			// accumulates against it and triggers a rebuild once the
			// total delta stops being noise.
			c.reused++
			res.Reused++
		}
		snap.lastSeen = c.seq
		snap.missed = 0
		res.Objects = append(res.Objects, snap.obj)
	}

	// Staleness sweep. Presence in the raw batch counts as a sighting even
	// for entities the cap or filter kept out of admission, so a capped
	// tier does not slowly evict everything it is not rendering.
	for id, snap := range c.snaps {
		if present[id] {
			if snap.lastSeen != c.seq {
				snap.missed = 0
			}
			continue
		}
		snap.missed++
		if snap.missed > c.removalGrace {
			if snap.obj != nil {
				snap.obj.Dispose()
			}
			delete(c.snaps, id)
			c.removed++
			res.Removed++
		}
	}

	if c.diagnostics && res.ChangedFields == nil && len(c.changedFields) > 0 {
		res.ChangedFields = make(map[string]int, len(c.changedFields))
		for k, v := range c.changedFields {
			res.ChangedFields[k] = v
		}
	}
	return res
}

// admit applies the selection-only filter and the tier entity cap before
// any comparison work. Selected entities are admitted first, then batch
// order fills the remainder. Malformed updates are dropped here.
func (c *entityRenderCache) admit(batch []types.EntityUpdate, selected map[string]bool, res *types.DiffResult) []types.EntityUpdate {
	out := make([]types.EntityUpdate, 0, len(batch))
	admitted := make(map[string]bool, len(batch))
	full := func() bool { return c.entityCap > 0 && len(out) >= c.entityCap }

	// pass 0 admits selected entities, pass 1 fills with the rest in
	// batch order. Selection-first only matters under a cap or filter;
	// otherwise a single pass in batch order preserves arrival order.
	prioritize := c.selectionOnly || (c.entityCap > 0 && len(selected) > 0)
	for pass := 0; pass < 2; pass++ {
		if pass == 0 && !prioritize {
			continue
		}
		if pass == 1 && c.selectionOnly {
			break
		}
		for i, u := range batch {
			if full() {
				return out
			}
			if u.ID == "" {
				if pass == 0 || !prioritize {
					c.skipped++
					res.Skipped++
					c.log.Debug().Err(malformedUpdateError{index: i}).Msg("entity update skipped")
				}
				continue
			}
			if admitted[u.ID] {
				continue // duplicate id in batch: first occurrence wins
			}
			if pass == 0 && !selected[u.ID] {
				continue
			}
			admitted[u.ID] = true
			out = append(out, u)
		}
	}
	return out
}

// changeCause reports why a snapshot must be rebuilt, or "" to reuse.
// Position deltas under the epsilon are geographic noise, not movement.
func (c *entityRenderCache) changeCause(snap *entitySnapshot, u types.EntityUpdate, sel bool) string {
	if math.Abs(u.Position.Lat-snap.pos.Lat) > c.positionEpsilon ||
		math.Abs(u.Position.Lon-snap.pos.Lon) > c.positionEpsilon {
		return "position"
	}
	if !stateEqual(snap.state, u.State) {
		return "state"
	}
	if sel != snap.selected {
		return "selection"
	}
	return ""
}

func (c *entityRenderCache) rebuild(snap *entitySnapshot, u types.EntityUpdate, sel bool, cause string) {
	snap.pos = u.Position
	snap.state = copyState(u.State)
	snap.selected = sel
	snap.obj = c.build(u, c.simplifyEpsilon)
	c.created++
	if c.diagnostics && cause != "" {
		c.changedFields[cause]++
	}
}

// efficiency is the cumulative reuse ratio: reused / (reused + created).
func (c *entityRenderCache) efficiency() float64 {
	total := c.reused + c.created
	if total == 0 {
		return 0
	}
	return float64(c.reused) / float64(total)
}

func (c *entityRenderCache) stats() types.CacheStats {
	return types.CacheStats{
		Entities: len(c.snaps),
		Created:  c.created,
		Reused:   c.reused,
		Removed:  c.removed,
		Skipped:  c.skipped,
		HitRate:  c.efficiency(),
	}
}

func stateEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func copyState(s map[string]string) map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
