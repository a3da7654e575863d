package engine

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func newTestPool(maxEntries int, maxBytes int64) *ResourcePool {
	return newResourcePool("test", newFakeClock(), zerolog.Nop(), maxEntries, maxBytes, nil)
}

func TestPoolRoundTrip(t *testing.T) {
	p := newTestPool(10, 0)
	want := &stubObject{id: "a"}
	p.Put("a", want, 100)
	got, ok := p.Get("a")
	if !ok || got != want {
		t.Fatalf("Get after Put returned (%v, %v), want same reference", got, ok)
	}
	if _, ok := p.Get("missing"); ok {
		t.Fatalf("Get on absent key reported a hit")
	}
	st := p.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 || st.Bytes != 100 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPoolEntryCapEvictsLRU(t *testing.T) {
	clock := newFakeClock()
	p := newResourcePool("test", clock, zerolog.Nop(), 2, 0, nil)
	p.Put("a", "A", 1)
	p.Put("b", "B", 1)
	p.Put("c", "C", 1)

	st := p.Stats()
	if st.Entries != 2 {
		t.Fatalf("entries = %d, want 2", st.Entries)
	}
	if st.Evictions != 1 {
		t.Fatalf("evictions = %d, want exactly 1", st.Evictions)
	}
	if _, ok := p.Get("a"); ok {
		t.Fatalf("a survived; it was least recently used")
	}
	if _, ok := p.Get("b"); !ok {
		t.Fatalf("b evicted unexpectedly")
	}
	if _, ok := p.Get("c"); !ok {
		t.Fatalf("c evicted unexpectedly")
	}
}

func TestPoolGetRefreshesRecency(t *testing.T) {
	p := newTestPool(2, 0)
	p.Put("a", "A", 1)
	p.Put("b", "B", 1)
	if _, ok := p.Get("a"); !ok {
		t.Fatalf("setup Get failed")
	}
	p.Put("c", "C", 1) // must evict b, not the freshly used a
	if _, ok := p.Get("a"); !ok {
		t.Fatalf("a evicted despite recent access")
	}
	if _, ok := p.Get("b"); ok {
		t.Fatalf("b survived as LRU")
	}
}

func TestPoolByteBudget(t *testing.T) {
	p := newTestPool(0, 100)
	p.Put("a", "A", 60)
	p.Put("b", "B", 60) // 120 > 100: evict a
	st := p.Stats()
	if st.Bytes > 100 {
		t.Fatalf("bytes = %d exceeds budget after Put", st.Bytes)
	}
	if _, ok := p.Get("a"); ok {
		t.Fatalf("a survived over budget")
	}

	// A single oversized entry cannot be admitted either.
	p.Put("huge", "H", 500)
	if st := p.Stats(); st.Bytes > 100 || st.Entries != 0 {
		t.Fatalf("oversized entry left pool at %+v", st)
	}
}

func TestPoolBoundsHoldUnderAnyInsertionOrder(t *testing.T) {
	for _, order := range [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{7, 6, 5, 4, 3, 2, 1, 0},
		{3, 0, 7, 1, 6, 2, 5, 4},
	} {
		p := newTestPool(3, 50)
		for _, i := range order {
			p.Put(fmt.Sprintf("k%d", i), i, int64(10+i))
			st := p.Stats()
			if st.Entries > 3 || st.Bytes > 50 {
				t.Fatalf("order %v: bounds violated after put: %+v", order, st)
			}
		}
	}
}

func TestPoolReplaceAdjustsBytes(t *testing.T) {
	p := newTestPool(0, 1000)
	p.Put("a", "v1", 100)
	p.Put("a", "v2", 300)
	st := p.Stats()
	if st.Entries != 1 || st.Bytes != 300 {
		t.Fatalf("replace left %+v, want 1 entry / 300 bytes", st)
	}
	got, _ := p.Get("a")
	if got != "v2" {
		t.Fatalf("Get returned %v after replace", got)
	}
}

func TestPoolShrinkOnReconfigure(t *testing.T) {
	p := newTestPool(10, 0)
	for i := 0; i < 8; i++ {
		p.Put(fmt.Sprintf("k%d", i), i, 10)
	}
	p.Configure(3, 0)
	// Shrink is deferred to the next mutating call.
	if st := p.Stats(); st.Entries != 8 {
		t.Fatalf("Configure evicted eagerly: %+v", st)
	}
	if n := p.Trim(); n != 5 {
		t.Fatalf("Trim evicted %d, want 5", n)
	}
	if st := p.Stats(); st.Entries != 3 {
		t.Fatalf("entries = %d after trim, want 3", st.Entries)
	}
	if n := p.Trim(); n != 0 {
		t.Fatalf("second Trim evicted %d, want 0 (idempotent)", n)
	}
}

func TestPoolNegativeCapsClamped(t *testing.T) {
	p := newTestPool(-5, -5)
	st := p.Stats()
	if st.MaxEntries != minPoolEntries || st.MaxBytes != minPoolBytes {
		t.Fatalf("caps = %d/%d, want clamped floors", st.MaxEntries, st.MaxBytes)
	}
	if p.clampCount() != 2 {
		t.Fatalf("clamps = %d, want 2", p.clampCount())
	}
	// Clamped pool still honors its floor bounds.
	p.Put("a", "A", 5)
	p.Put("b", "B", 5)
	if st := p.Stats(); st.Entries > minPoolEntries {
		t.Fatalf("clamped pool exceeded floor: %+v", st)
	}
}

func TestPoolDisposalHook(t *testing.T) {
	var disposed []string
	p := newResourcePool("test", newFakeClock(), zerolog.Nop(), 1, 0, func(key string, _ any) {
		disposed = append(disposed, key)
	})
	p.Put("a", "A", 1)
	p.Put("b", "B", 1)
	if len(disposed) != 1 || disposed[0] != "a" {
		t.Fatalf("disposed = %v, want [a]", disposed)
	}
	p.purge()
	if len(disposed) != 2 || disposed[1] != "b" {
		t.Fatalf("disposed = %v after purge, want [a b]", disposed)
	}
}
