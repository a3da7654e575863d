package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// WarmStep is one independent cold-start warm-up unit: pre-building fixed
// visual assets, pre-sizing pools, pre-fetching a small neighborhood of
// cacheable resources. Each step should fit a single idle slice.
type WarmStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// warmCycle drives an ordered list of warm steps through the idle
// scheduler, one task per step, so warm-up interleaves with real frames
// and never blocks the render path. Cancellation is cooperative: an
// in-flight step always completes, no further ones start, and partial
// completion leaves every touched component valid.
type warmCycle struct {
	sched *idleScheduler
	log   zerolog.Logger

	mu         sync.Mutex
	steps      []WarmStep
	running    bool
	cancelled  bool
	done       int
	completed  bool
	onProgress func(done, total int)
	onComplete func()
}

func newWarmCycle(sched *idleScheduler, log zerolog.Logger) *warmCycle {
	return &warmCycle{sched: sched, log: log}
}

// run starts the cycle. onProgress fires after each step; onComplete fires
// only if every step ran. Either callback may be nil. A second run while
// one is in flight is rejected.
func (w *warmCycle) run(ctx context.Context, steps []WarmStep, onProgress func(done, total int), onComplete func()) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return warmupActiveError{}
	}
	w.steps = steps
	w.running = true
	w.cancelled = false
	w.done = 0
	w.completed = false
	w.onProgress = onProgress
	w.onComplete = onComplete
	w.mu.Unlock()

	if len(steps) == 0 {
		w.mu.Lock()
		w.running = false
		w.completed = true
		w.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return nil
	}
	return w.scheduleStep(ctx, 0)
}

// cancel stops the cycle between steps. Safe to call at any time,
// including before run or after completion.
func (w *warmCycle) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.cancelled = true
	}
}

func (w *warmCycle) scheduleStep(ctx context.Context, i int) error {
	name := "warmup:" + w.steps[i].Name
	return w.sched.schedule(name, PriorityHigh, func() { w.step(ctx, i) })
}

func (w *warmCycle) step(ctx context.Context, i int) {
	w.mu.Lock()
	if w.cancelled || ctx.Err() != nil {
		w.cancelled = true
		w.running = false
		w.mu.Unlock()
		w.log.Info().Int("done", i).Int("total", len(w.steps)).Msg("warm cycle cancelled")
		return
	}
	step := w.steps[i]
	w.mu.Unlock()

	if err := step.Run(ctx); err != nil {
		// Warm-up is best effort; a failed step costs a cold start later.
		w.log.Warn().Err(err).Str("step", step.Name).Msg("warm step failed")
	}

	w.mu.Lock()
	w.done = i + 1
	last := w.done == len(w.steps)
	if last {
		w.completed = true
		w.running = false
	}
	onProgress, onComplete := w.onProgress, w.onComplete
	total := len(w.steps)
	w.mu.Unlock()

	if onProgress != nil {
		onProgress(i+1, total)
	}
	if last {
		w.log.Info().Int("steps", total).Msg("warm cycle complete")
		if onComplete != nil {
			onComplete()
		}
		return
	}
	// Scheduling the next step can only fail on a nil action, which the
	// closure above rules out.
	_ = w.scheduleStep(ctx, i+1)
}

func (w *warmCycle) status() *types.WarmupStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.steps == nil {
		return nil
	}
	return &types.WarmupStatus{
		StepsTotal: len(w.steps),
		StepsDone:  w.done,
		Completed:  w.completed,
		Cancelled:  w.cancelled,
	}
}
