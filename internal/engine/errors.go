package engine

import "fmt"

// malformedUpdateError marks an entity update that cannot be diffed.
// These are counted and skipped, never propagated out of a batch.
type malformedUpdateError struct{ index int }

func (e malformedUpdateError) Error() string {
	return fmt.Sprintf("malformed entity update at index %d: missing id", e.index)
}

// IsMalformedUpdate reports whether err marks a skipped batch item.
func IsMalformedUpdate(err error) bool {
	_, ok := err.(malformedUpdateError)
	return ok
}

// nilTaskError signals a programmer error: scheduling a nil action.
type nilTaskError struct{ name string }

func (e nilTaskError) Error() string { return "nil idle task action: " + e.name }

// IsNilTask reports whether err indicates a nil scheduled action.
func IsNilTask(err error) bool {
	_, ok := err.(nilTaskError)
	return ok
}

// warmupActiveError signals a warm cycle started while one is in flight.
type warmupActiveError struct{}

func (warmupActiveError) Error() string { return "warm cycle already running" }

// IsWarmupActive reports whether err indicates an in-flight warm cycle.
func IsWarmupActive(err error) bool {
	_, ok := err.(warmupActiveError)
	return ok
}
