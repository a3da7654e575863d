package engine

import (
	"time"

	"vizcore/pkg/types"
)

// updateThrottle rate-limits a high-frequency trigger with drop semantics:
// rejected triggers are discarded, never queued, and the caller re-derives
// current state on the next accepted trigger. Under sustained over-frequency
// input the accepted rate converges to exactly one per interval.
type updateThrottle struct {
	clock        Clock
	interval     time.Duration // 0 = unthrottled
	lastAccepted time.Time

	accepted uint64
	skipped  uint64
}

func newUpdateThrottle(clock Clock, interval time.Duration) *updateThrottle {
	t := &updateThrottle{clock: clock}
	t.configure(interval)
	return t
}

// configure sets the minimum interval between accepted triggers. Called by
// the engine on every tier transition; negative intervals mean unthrottled.
func (t *updateThrottle) configure(interval time.Duration) {
	if interval < 0 {
		interval = 0
	}
	t.interval = interval
}

// shouldUpdate reports whether a trigger arriving now may be processed.
// The caller must follow up with recordUpdate or recordSkip.
func (t *updateThrottle) shouldUpdate() bool {
	if t.interval == 0 || t.lastAccepted.IsZero() {
		return true
	}
	return t.clock.Now().Sub(t.lastAccepted) >= t.interval
}

func (t *updateThrottle) recordUpdate() {
	t.lastAccepted = t.clock.Now()
	t.accepted++
}

func (t *updateThrottle) recordSkip() { t.skipped++ }

func (t *updateThrottle) stats() types.ThrottleStats {
	return types.ThrottleStats{
		IntervalMs: t.interval.Milliseconds(),
		Accepted:   t.accepted,
		Skipped:    t.skipped,
	}
}
