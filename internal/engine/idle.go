package engine

import (
	"container/heap"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// IdlePriority orders idle tasks. Higher runs first; FIFO within a level.
type IdlePriority int

const (
	PriorityLow IdlePriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p IdlePriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// idleTask is one deferred maintenance unit. Tasks run at most once and
// are never preempted mid-run: anything long must arrive pre-chunked as
// multiple tasks.
type idleTask struct {
	name       string
	priority   IdlePriority
	run        func()
	seq        uint64
	enqueuedAt time.Time
}

type taskHeap []*idleTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(*idleTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// idleScheduler runs deferred maintenance inside spare per-frame time.
// Before each task the remaining budget is checked against the slice
// floor; an insufficient budget defers the whole queue to the next idle
// slot. Overruns are measured after the fact, not prevented.
type idleScheduler struct {
	clock Clock
	log   zerolog.Logger

	mu    sync.Mutex
	tasks taskHeap
	seq   uint64

	slice    time.Duration // minimum budget required to start a task
	cooldown time.Duration // between GC hints

	completed uint64
	overruns  uint64
	gcHints   uint64
	lastHint  time.Time
}

func newIdleScheduler(clock Clock, log zerolog.Logger, slice, cooldown time.Duration) *idleScheduler {
	return &idleScheduler{clock: clock, log: log, slice: slice, cooldown: cooldown}
}

// schedule enqueues an action for the next idle slot.
func (s *idleScheduler) schedule(name string, pri IdlePriority, run func()) error {
	if run == nil {
		return nilTaskError{name: name}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	heap.Push(&s.tasks, &idleTask{
		name:       name,
		priority:   pri,
		run:        run,
		seq:        s.seq,
		enqueuedAt: s.clock.Now(),
	})
	return nil
}

// runPending executes queued tasks highest-priority-first until the
// remaining budget drops under the slice floor, and returns how many ran.
// A dequeued task always runs to completion; if its measured duration
// exceeded the budget it had, the overrun counter records it afterwards.
func (s *idleScheduler) runPending(remaining time.Duration) int {
	ran := 0
	for {
		if remaining < s.slice {
			return ran
		}
		s.mu.Lock()
		if s.tasks.Len() == 0 {
			s.mu.Unlock()
			return ran
		}
		task := heap.Pop(&s.tasks).(*idleTask)
		s.mu.Unlock()

		start := s.clock.Now()
		task.run()
		elapsed := s.clock.Now().Sub(start)

		s.mu.Lock()
		s.completed++
		if elapsed > remaining {
			s.overruns++
			s.log.Debug().Str("task", task.name).Dur("elapsed", elapsed).Dur("budget", remaining).Msg("idle task overran budget")
		}
		s.mu.Unlock()

		remaining -= elapsed
		ran++
	}
}

// maybeGCHint emits an advisory, purely informational hint that now would
// be a reasonable moment to collect garbage. Hints are throttled to one
// per cooldown; the runtime is free to ignore them.
func (s *idleScheduler) maybeGCHint(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if !s.lastHint.IsZero() && now.Sub(s.lastHint) < s.cooldown {
		return false
	}
	s.lastHint = now
	s.gcHints++
	s.log.Info().Str("reason", reason).Msg("gc hint")
	return true
}

func (s *idleScheduler) stats() types.IdleTaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.IdleTaskStats{
		Queued:    s.tasks.Len(),
		Completed: s.completed,
		Overruns:  s.overruns,
		GCHints:   s.gcHints,
	}
	if s.completed > 0 {
		st.OverrunRate = float64(s.overruns) / float64(s.completed)
	}
	return st
}
