// Package engine implements the adaptive rendering resource-management core
// of the map client: frame-time monitoring, quality-tier (LOD) control,
// bounded resource pools, diff-based entity render caching, viewport
// throttling, idle-time maintenance, and the startup warm cycle. It is
// structured into small files by concern:
//
//   - engine.go: core Engine type, constructor, host-facing entry points.
//   - config.go: Config, per-tier LodConfig, package defaults and clamping.
//   - clock.go: Clock abstraction (system clock; tests inject a fake).
//   - monitor.go: rolling-window frame timing and smoothed FPS.
//   - lod.go: hysteresis tier state machine.
//   - pool.go: LRU resource pools bounded by entries and bytes.
//   - cache.go: diff-based entity render cache.
//   - idle.go: priority idle-task scheduler and GC hinting.
//   - throttle.go: drop-semantics viewport update throttle.
//   - warmup.go: cancellable startup warm cycle.
//   - errors.go: error types and helpers (IsMalformedUpdate, ...).
//   - snapshot.go: Status reporting.
//
// The engine performs no I/O and renders nothing itself. It decides what
// quality to render at, whether a given visual object must be rebuilt, and
// when deferred maintenance may run. The host drives it from a single
// render loop: OnFrame after every frame, RunIdle in post-frame spare time,
// ApplyUpdates per live-data batch, ViewportChanged per viewport event.
// Status is the only method intended for concurrent use (debug server).
package engine
