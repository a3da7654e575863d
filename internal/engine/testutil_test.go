package engine

import (
	"sync"
	"testing"
	"time"

	"vizcore/pkg/types"
)

// fakeClock is a manually advanced time source so no test ever sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubObject is a RenderObject that remembers being disposed.
type stubObject struct {
	id       string
	disposed bool
}

func (o *stubObject) Dispose() { o.disposed = true }

// countingBuilder counts constructions and keeps the built objects.
type countingBuilder struct {
	builds int
	objs   []*stubObject
}

func (b *countingBuilder) build(u types.EntityUpdate, _ float64) types.RenderObject {
	b.builds++
	o := &stubObject{id: u.ID}
	b.objs = append(b.objs, o)
	return o
}

func newTestEngine(t *testing.T, clock *fakeClock, mutate func(*Config)) (*Engine, *countingBuilder) {
	t.Helper()
	b := &countingBuilder{}
	cfg := Config{
		Clock:       clock,
		BuildObject: b.build,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Start()
	return e, b
}

func update(id string, lat, lon float64, state map[string]string) types.EntityUpdate {
	return types.EntityUpdate{ID: id, Position: types.Position{Lat: lat, Lon: lon}, State: state}
}

// feedFPS pushes frame samples that average to the given FPS.
func feedFPS(e *Engine, clock *fakeClock, fps float64, frames int) {
	dur := time.Duration(float64(time.Second) / fps)
	for i := 0; i < frames; i++ {
		clock.Advance(dur)
		e.OnFrame(dur)
	}
}
