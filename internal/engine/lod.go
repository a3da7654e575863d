package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// LodMode is a discrete quality tier. Lower values render more detail.
type LodMode int

const (
	LodHigh LodMode = iota
	LodMedium
	LodLow

	// NumLodModes sizes per-tier configuration arrays.
	NumLodModes = 3
)

func (m LodMode) String() string {
	switch m {
	case LodHigh:
		return "high"
	case LodMedium:
		return "medium"
	case LodLow:
		return "low"
	default:
		return "unknown"
	}
}

// LodConfig is the per-tier tuning record. It is read-only outside the
// controller; dependents receive a copy on every confirmed transition.
type LodConfig struct {
	// Maximum entities admitted per diff pass (0 = unbounded).
	EntityCap int
	// Geometry simplification tolerance handed to the object builder.
	SimplifyEpsilon float64
	// Per-pool entry cap at this tier (0 = unbounded).
	PoolMaxEntries int
	// Per-pool byte cap at this tier (0 = unbounded).
	PoolMaxBytes int64
	// Minimum interval between accepted viewport updates (0 = unthrottled).
	ThrottleInterval time.Duration
}

// lodController is the FPS -> tier state machine. Transitions move exactly
// one step, and only after the grace period has elapsed since the last
// change. The drop threshold of a tier sits strictly below the raise
// threshold of the tier beneath it, so a borderline FPS cannot oscillate.
type lodController struct {
	clock Clock
	log   zerolog.Logger

	mode       LodMode
	modes      [NumLodModes]LodConfig
	dropBelow  [NumLodModes]float64
	raiseAbove [NumLodModes]float64
	grace      time.Duration

	lastTransition time.Time
	transitions    uint64
}

func newLodController(clock Clock, log zerolog.Logger, cfg Config) *lodController {
	return &lodController{
		clock:          clock,
		log:            log,
		mode:           LodHigh,
		modes:          cfg.Modes,
		dropBelow:      cfg.DropBelow,
		raiseAbove:     cfg.RaiseAbove,
		grace:          cfg.GracePeriod,
		lastTransition: clock.Now(),
	}
}

func (c *lodController) Mode() LodMode { return c.mode }

// Config returns the tuning record of the current tier.
func (c *lodController) Config() LodConfig { return c.modes[c.mode] }

// ConfigFor returns the tuning record of an arbitrary tier.
func (c *lodController) ConfigFor(m LodMode) LodConfig { return c.modes[m] }

// UpdateByFps feeds one smoothed FPS reading into the state machine and
// reports whether the tier changed. Invalid readings (NaN, negative) are
// ignored. A pending target is never applied early: each evaluation runs
// its own grace-period check against the last confirmed transition.
func (c *lodController) UpdateByFps(fps float64) bool {
	if math.IsNaN(fps) || fps < 0 {
		return false
	}
	now := c.clock.Now()
	if now.Sub(c.lastTransition) < c.grace {
		return false
	}
	switch {
	case c.mode < LodLow && fps < c.dropBelow[c.mode]:
		c.step(now, c.mode+1, fps)
	case c.mode > LodHigh && fps > c.raiseAbove[c.mode]:
		c.step(now, c.mode-1, fps)
	default:
		return false
	}
	return true
}

func (c *lodController) step(now time.Time, to LodMode, fps float64) {
	c.log.Info().
		Str("from", c.mode.String()).
		Str("to", to.String()).
		Float64("fps", fps).
		Msg("lod transition")
	c.mode = to
	c.lastTransition = now
	c.transitions++
}
