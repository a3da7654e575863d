package engine

import "time"

// Clock provides the time source for grace periods, throttle windows,
// frame budgets and cooldowns. Production code uses the system clock;
// tests inject a controllable fake so no test ever sleeps.
type Clock interface {
	Now() time.Time
}

// systemClock returns real monotonic time.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real time source.
func SystemClock() Clock { return systemClock{} }
