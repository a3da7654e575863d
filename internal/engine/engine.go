package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// Engine ties the core together: the frame monitor feeds the LOD
// controller, confirmed transitions reconfigure pools, throttle and cache
// synchronously, and maintenance rides the idle scheduler. Construct one
// per map view and inject it into collaborators; there is no package
// state, so tests run isolated instances freely.
type Engine struct {
	mu    sync.RWMutex
	cfg   Config
	log   zerolog.Logger
	clock Clock

	monitor  *frameTimeMonitor
	lod      *lodController
	cache    *entityRenderCache
	throttle *updateThrottle
	idle     *idleScheduler
	warm     *warmCycle

	pools     map[string]*ResourcePool
	poolOrder []string

	started   bool
	clamps    uint64
	startTime time.Time
}

// New constructs an Engine from cfg. Unset tunables take package defaults,
// invalid ones are clamped and counted; only a missing BuildObject — a
// programmer error — fails construction.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	cfg, clamps := cfg.withDefaults(log)

	e := &Engine{
		cfg:       cfg,
		log:       log,
		clock:     cfg.Clock,
		clamps:    clamps,
		startTime: cfg.Clock.Now(),
	}
	e.lod = newLodController(e.clock, log, cfg)
	e.cache = newEntityRenderCache(e.clock, log, cfg)
	e.idle = newIdleScheduler(e.clock, log, cfg.IdleSlice, cfg.GCHintCooldown)
	e.warm = newWarmCycle(e.idle, log)
	e.monitor = newFrameTimeMonitor(e.clock, cfg.FPSWindow, e.handleFPS)

	high := cfg.Modes[LodHigh]
	e.throttle = newUpdateThrottle(e.clock, high.ThrottleInterval)
	e.pools = make(map[string]*ResourcePool, len(cfg.PoolKinds))
	for _, kind := range cfg.PoolKinds {
		kind := kind
		var onEvict func(string, any)
		if cfg.DisposePooled != nil {
			onEvict = func(key string, payload any) { cfg.DisposePooled(kind, key, payload) }
		}
		e.pools[kind] = newResourcePool(kind, e.clock, log, high.PoolMaxEntries, high.PoolMaxBytes, onEvict)
		e.poolOrder = append(e.poolOrder, kind)
	}
	return e, nil
}

// Start begins frame monitoring. Frames sampled before Start are ignored.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	e.monitor.Start()
	e.log.Info().Str("mode", e.lod.Mode().String()).Msg("engine started")
}

// Close stops monitoring and disposes every cached visual object and
// pooled resource. The engine is not reusable afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = false
	e.monitor.Stop()
	e.warm.cancel()
	for id, snap := range e.cache.snaps {
		if snap.obj != nil {
			snap.obj.Dispose()
		}
		delete(e.cache.snaps, id)
	}
	for _, kind := range e.poolOrder {
		e.pools[kind].purge()
	}
	e.log.Info().Msg("engine closed")
	return nil
}

// Ready reports whether the engine is started. Used by the debug server.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// OnFrame records one rendered frame's duration. The smoothed FPS feeds
// the LOD controller; a confirmed transition reconfigures pools, throttle
// and cache before OnFrame returns.
func (e *Engine) OnFrame(dur time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.monitor.OnSample(dur)
}

// handleFPS runs inside OnFrame's lock via the monitor callback.
func (e *Engine) handleFPS(fps float64) {
	prev := e.lod.Mode()
	if !e.lod.UpdateByFps(fps) {
		return
	}
	e.applyMode(prev)
}

// applyMode pushes the new tier's config to every dependent, then leaves
// the actual shrinking to idle time.
func (e *Engine) applyMode(prev LodMode) {
	lc := e.lod.Config()
	for _, kind := range e.poolOrder {
		e.pools[kind].Configure(lc.PoolMaxEntries, lc.PoolMaxBytes)
	}
	e.throttle.configure(lc.ThrottleInterval)
	e.cache.configure(lc)

	mode := e.lod.Mode()
	for _, kind := range e.poolOrder {
		p := e.pools[kind]
		_ = e.idle.schedule("trim:"+kind, PriorityMedium, func() { p.Trim() })
	}
	if mode > prev {
		e.idle.maybeGCHint("lod drop to " + mode.String())
	}
}

// ConfigurePools re-applies the current tier's capacity to every pool.
// Idempotent; exists so hosts can force a reconciliation after bulk loads.
func (e *Engine) ConfigurePools() {
	e.mu.Lock()
	defer e.mu.Unlock()
	lc := e.lod.Config()
	for _, kind := range e.poolOrder {
		e.pools[kind].Configure(lc.PoolMaxEntries, lc.PoolMaxBytes)
	}
}

// ApplyUpdates diffs one ordered entity batch against the render cache and
// returns what to mount, reuse and unmount.
func (e *Engine) ApplyUpdates(batch []types.EntityUpdate, selected map[string]bool) types.DiffResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.diff(batch, selected)
}

// SetSelectionOnly toggles the selection-only render filter.
func (e *Engine) SetSelectionOnly(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.setSelectionOnly(on)
}

// ViewportChanged gates a viewport event through the tier's throttle and
// records the outcome. Dropped events are discarded, not queued: the next
// accepted event re-derives the full viewport state.
func (e *Engine) ViewportChanged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.throttle.shouldUpdate() {
		e.throttle.recordUpdate()
		return true
	}
	e.throttle.recordSkip()
	return false
}

// RunIdle is the host's post-frame hook: elapsed is how much of the frame
// budget rendering already consumed. Returns how many tasks ran.
func (e *Engine) RunIdle(elapsed time.Duration) int {
	e.mu.RLock()
	budget := e.cfg.FrameBudget
	e.mu.RUnlock()
	remaining := budget - elapsed
	return e.idle.runPending(remaining)
}

// ScheduleIdle enqueues best-effort maintenance for the next idle slot.
func (e *Engine) ScheduleIdle(name string, pri IdlePriority, run func()) error {
	return e.idle.schedule(name, pri, run)
}

// MaybeGCHint emits a throttled advisory GC hint.
func (e *Engine) MaybeGCHint(reason string) bool {
	return e.idle.maybeGCHint(reason)
}

// Warmup starts the cold-start warm cycle; steps run one per idle slot.
func (e *Engine) Warmup(ctx context.Context, steps []WarmStep, onProgress func(done, total int), onComplete func()) error {
	return e.warm.run(ctx, steps, onProgress, onComplete)
}

// CancelWarmup stops the warm cycle between steps.
func (e *Engine) CancelWarmup() { e.warm.cancel() }

// Pool returns the pool for a resource kind, or nil if the kind is not
// configured.
func (e *Engine) Pool(kind string) *ResourcePool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pools[kind]
}

// Mode returns the current quality tier.
func (e *Engine) Mode() LodMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lod.Mode()
}

// LodConfigNow returns the tuning record of the current tier.
func (e *Engine) LodConfigNow() LodConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lod.Config()
}

// FPS returns the last smoothed reading.
func (e *Engine) FPS() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.monitor.FPS()
}
