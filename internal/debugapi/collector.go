package debugapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// engineCollector projects the engine's diagnostic snapshot as Prometheus
// gauges. Collection takes one snapshot per scrape, so the scrape cost is
// a single read lock on the engine.
type engineCollector struct {
	svc Service

	fps             *prometheus.Desc
	mode            *prometheus.Desc
	modeTransitions *prometheus.Desc
	cacheEntities   *prometheus.Desc
	cacheCreated    *prometheus.Desc
	cacheReused     *prometheus.Desc
	cacheRemoved    *prometheus.Desc
	cacheEfficiency *prometheus.Desc
	poolEntries     *prometheus.Desc
	poolBytes       *prometheus.Desc
	poolHits        *prometheus.Desc
	poolMisses      *prometheus.Desc
	poolEvictions   *prometheus.Desc
	throttleSkips   *prometheus.Desc
	idleCompleted   *prometheus.Desc
	idleOverruns    *prometheus.Desc
	gcHints         *prometheus.Desc
}

// NewEngineCollector builds a collector over the given service. Register it
// once per process.
func NewEngineCollector(svc Service) prometheus.Collector {
	ns := "vizcore"
	return &engineCollector{
		svc:             svc,
		fps:             prometheus.NewDesc(ns+"_engine_fps", "Rolling average frames per second", nil, nil),
		mode:            prometheus.NewDesc(ns+"_engine_lod_mode", "Current level-of-detail tier (0=high 1=medium 2=low)", nil, nil),
		modeTransitions: prometheus.NewDesc(ns+"_engine_lod_transitions_total", "Total tier transitions", nil, nil),
		cacheEntities:   prometheus.NewDesc(ns+"_cache_entities", "Entities currently cached", nil, nil),
		cacheCreated:    prometheus.NewDesc(ns+"_cache_created_total", "Render objects built", nil, nil),
		cacheReused:     prometheus.NewDesc(ns+"_cache_reused_total", "Render objects reused", nil, nil),
		cacheRemoved:    prometheus.NewDesc(ns+"_cache_removed_total", "Entities removed as stale", nil, nil),
		cacheEfficiency: prometheus.NewDesc(ns+"_cache_efficiency", "Cumulative reuse ratio", nil, nil),
		poolEntries:     prometheus.NewDesc(ns+"_pool_entries", "Pooled entries", []string{"kind"}, nil),
		poolBytes:       prometheus.NewDesc(ns+"_pool_bytes", "Pooled bytes", []string{"kind"}, nil),
		poolHits:        prometheus.NewDesc(ns+"_pool_hits_total", "Pool lookup hits", []string{"kind"}, nil),
		poolMisses:      prometheus.NewDesc(ns+"_pool_misses_total", "Pool lookup misses", []string{"kind"}, nil),
		poolEvictions:   prometheus.NewDesc(ns+"_pool_evictions_total", "Pool evictions", []string{"kind"}, nil),
		throttleSkips:   prometheus.NewDesc(ns+"_throttle_skipped_total", "Viewport updates skipped by throttling", nil, nil),
		idleCompleted:   prometheus.NewDesc(ns+"_idle_tasks_completed_total", "Idle tasks completed", nil, nil),
		idleOverruns:    prometheus.NewDesc(ns+"_idle_task_overruns_total", "Idle tasks that exceeded their budget", nil, nil),
		gcHints:         prometheus.NewDesc(ns+"_gc_hints_total", "Advisory GC hints issued", nil, nil),
	}
}

func modeIndex(mode string) int {
	switch mode {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	}
	return -1
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fps
	ch <- c.mode
	ch <- c.modeTransitions
	ch <- c.cacheEntities
	ch <- c.cacheCreated
	ch <- c.cacheReused
	ch <- c.cacheRemoved
	ch <- c.cacheEfficiency
	ch <- c.poolEntries
	ch <- c.poolBytes
	ch <- c.poolHits
	ch <- c.poolMisses
	ch <- c.poolEvictions
	ch <- c.throttleSkips
	ch <- c.idleCompleted
	ch <- c.idleOverruns
	ch <- c.gcHints
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.svc.Status()
	ch <- prometheus.MustNewConstMetric(c.fps, prometheus.GaugeValue, st.FPS)
	ch <- prometheus.MustNewConstMetric(c.mode, prometheus.GaugeValue, float64(modeIndex(st.Mode)))
	ch <- prometheus.MustNewConstMetric(c.modeTransitions, prometheus.CounterValue, float64(st.ModeTransitions))
	ch <- prometheus.MustNewConstMetric(c.cacheEntities, prometheus.GaugeValue, float64(st.Cache.Entities))
	ch <- prometheus.MustNewConstMetric(c.cacheCreated, prometheus.CounterValue, float64(st.Cache.Created))
	ch <- prometheus.MustNewConstMetric(c.cacheReused, prometheus.CounterValue, float64(st.Cache.Reused))
	ch <- prometheus.MustNewConstMetric(c.cacheRemoved, prometheus.CounterValue, float64(st.Cache.Removed))
	ch <- prometheus.MustNewConstMetric(c.cacheEfficiency, prometheus.GaugeValue, st.Cache.HitRate)
	for _, p := range st.Pools {
		ch <- prometheus.MustNewConstMetric(c.poolEntries, prometheus.GaugeValue, float64(p.Entries), p.Name)
		ch <- prometheus.MustNewConstMetric(c.poolBytes, prometheus.GaugeValue, float64(p.Bytes), p.Name)
		ch <- prometheus.MustNewConstMetric(c.poolHits, prometheus.CounterValue, float64(p.Hits), p.Name)
		ch <- prometheus.MustNewConstMetric(c.poolMisses, prometheus.CounterValue, float64(p.Misses), p.Name)
		ch <- prometheus.MustNewConstMetric(c.poolEvictions, prometheus.CounterValue, float64(p.Evictions), p.Name)
	}
	ch <- prometheus.MustNewConstMetric(c.throttleSkips, prometheus.CounterValue, float64(st.Throttle.Skipped))
	ch <- prometheus.MustNewConstMetric(c.idleCompleted, prometheus.CounterValue, float64(st.IdleTasks.Completed))
	ch <- prometheus.MustNewConstMetric(c.idleOverruns, prometheus.CounterValue, float64(st.IdleTasks.Overruns))
	ch <- prometheus.MustNewConstMetric(c.gcHints, prometheus.CounterValue, float64(st.IdleTasks.GCHints))
}
