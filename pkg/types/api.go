package types

// PoolStatus summarizes one resource pool for /status.
type PoolStatus struct {
	// Pool name (resource kind, e.g. tile, icon, geometry).
	// example: tile
	Name string `json:"name" example:"tile"`
	// Current number of pooled entries.
	// example: 240
	Entries int `json:"entries" example:"240"`
	// Current pooled bytes.
	// example: 3145728
	Bytes int64 `json:"bytes" example:"3145728"`
	// Configured entry cap (0 = unbounded).
	// example: 512
	MaxEntries int `json:"max_entries" example:"512"`
	// Configured byte cap (0 = unbounded).
	// example: 67108864
	MaxBytes int64 `json:"max_bytes" example:"67108864"`
	// Cumulative hits.
	// example: 9001
	Hits uint64 `json:"hits" example:"9001"`
	// Cumulative misses.
	// example: 120
	Misses uint64 `json:"misses" example:"120"`
	// Cumulative evictions (overflow + trims + shrinks).
	// example: 37
	Evictions uint64 `json:"evictions" example:"37"`
}

// CacheStats summarizes the entity render cache for /status.
type CacheStats struct {
	// Live snapshots currently held.
	// example: 420
	Entities int `json:"entities" example:"420"`
	// Cumulative objects built.
	// example: 510
	Created uint64 `json:"created" example:"510"`
	// Cumulative objects reused.
	// example: 20490
	Reused uint64 `json:"reused" example:"20490"`
	// Cumulative objects removed for staleness.
	// example: 90
	Removed uint64 `json:"removed" example:"90"`
	// Cumulative malformed updates skipped.
	// example: 2
	Skipped uint64 `json:"skipped" example:"2"`
	// reused / (reused + created) over the cache lifetime.
	// example: 0.975
	HitRate float64 `json:"hit_rate" example:"0.975"`
}

// ThrottleStats summarizes the viewport update throttle for /status.
type ThrottleStats struct {
	// Active minimum interval between accepted triggers, in ms (0 = off).
	// example: 250
	IntervalMs int64 `json:"interval_ms" example:"250"`
	// Cumulative accepted triggers.
	// example: 1200
	Accepted uint64 `json:"accepted" example:"1200"`
	// Cumulative dropped triggers.
	// example: 4800
	Skipped uint64 `json:"skipped" example:"4800"`
}

// IdleTaskStats summarizes the idle scheduler for /status.
type IdleTaskStats struct {
	// Tasks currently queued.
	// example: 3
	Queued int `json:"queued" example:"3"`
	// Tasks run to completion.
	// example: 800
	Completed uint64 `json:"completed" example:"800"`
	// Tasks whose measured run time exceeded the remaining frame budget.
	// example: 4
	Overruns uint64 `json:"overruns" example:"4"`
	// Overruns / Completed (target < 0.01).
	// example: 0.005
	OverrunRate float64 `json:"overrun_rate" example:"0.005"`
	// Advisory GC hints emitted (throttled by cooldown).
	// example: 2
	GCHints uint64 `json:"gc_hints" example:"2"`
}

// WarmupStatus reports startup warm-cycle progress for /status.
type WarmupStatus struct {
	// Total warm-up sub-tasks.
	// example: 4
	StepsTotal int `json:"steps_total" example:"4"`
	// Sub-tasks that have run.
	// example: 2
	StepsDone int `json:"steps_done" example:"2"`
	// True once every sub-task has run.
	Completed bool `json:"completed"`
	// True if the cycle was cancelled before completion.
	Cancelled bool `json:"cancelled"`
}

// StatusResponse is the diagnostic snapshot returned by GET /status.
type StatusResponse struct {
	// Smoothed frames per second over the rolling window.
	// example: 58.7
	FPS float64 `json:"fps" example:"58.7"`
	// Current quality tier (high, medium, low).
	// example: high
	Mode string `json:"mode" example:"high"`
	// Quality-tier transitions since start.
	// example: 6
	ModeTransitions uint64 `json:"mode_transitions" example:"6"`
	// Entity render cache counters.
	Cache CacheStats `json:"cache"`
	// Per-pool usage and counters.
	Pools []PoolStatus `json:"pools"`
	// Viewport throttle counters.
	Throttle ThrottleStats `json:"throttle"`
	// Idle scheduler counters.
	IdleTasks IdleTaskStats `json:"idle_tasks"`
	// Warm-cycle progress, present once a warm-up has been started.
	Warmup *WarmupStatus `json:"warmup,omitempty"`
	// Configuration values clamped at the API boundary since start.
	// example: 1
	ClampCount uint64 `json:"clamp_count" example:"1"`
	// Uptime of the core in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Core time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not found
	Error string `json:"error" example:"not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
