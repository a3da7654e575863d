package engine

import (
	"vizcore/pkg/types"
)

// Status builds the on-demand diagnostic snapshot consumed by the debug
// overlay. Safe to call from the debug server goroutine; everything else
// on the engine belongs to the host's render loop.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.clock.Now()
	resp := types.StatusResponse{
		FPS:             e.monitor.FPS(),
		Mode:            e.lod.Mode().String(),
		ModeTransitions: e.lod.transitions,
		Cache:           e.cache.stats(),
		Throttle:        e.throttle.stats(),
		IdleTasks:       e.idle.stats(),
		Warmup:          e.warm.status(),
		UptimeSeconds:   int64(now.Sub(e.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
	}
	clamps := e.clamps
	resp.Pools = make([]types.PoolStatus, 0, len(e.poolOrder))
	for _, kind := range e.poolOrder {
		resp.Pools = append(resp.Pools, e.pools[kind].Stats())
		clamps += e.pools[kind].clampCount()
	}
	resp.ClampCount = clamps
	return resp
}
