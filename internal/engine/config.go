package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"vizcore/pkg/types"
)

// Defaults applied when corresponding Config fields are unset. The numeric
// values are tuning products for a 60 FPS render target, not protocol
// constants; deployments override them via the tuning file.
const (
	defaultFPSWindow       = 2 * time.Second
	defaultGracePeriod     = 700 * time.Millisecond
	defaultPositionEpsilon = 1e-6
	defaultRemovalGrace    = 3
	defaultFrameBudget     = 16 * time.Millisecond
	defaultIdleSlice       = 4 * time.Millisecond
	defaultGCHintCooldown  = 2 * time.Minute

	// Floors applied when a caller passes a negative capacity.
	minPoolEntries = 1
	minPoolBytes   = int64(1 << 10)
)

// defaultDropBelow / defaultRaiseAbove form the asymmetric dead zone:
// the FPS that drops out of a tier sits strictly below the FPS that
// raises back into it, so a reading between the two changes nothing.
var (
	defaultDropBelow  = [NumLodModes]float64{LodHigh: 50, LodMedium: 30, LodLow: 0}
	defaultRaiseAbove = [NumLodModes]float64{LodHigh: 0, LodMedium: 57, LodLow: 42}

	defaultModes = [NumLodModes]LodConfig{
		LodHigh: {
			EntityCap:        0, // unbounded
			SimplifyEpsilon:  0,
			PoolMaxEntries:   512,
			PoolMaxBytes:     64 << 20,
			ThrottleInterval: 0,
		},
		LodMedium: {
			EntityCap:        500,
			SimplifyEpsilon:  1e-5,
			PoolMaxEntries:   256,
			PoolMaxBytes:     32 << 20,
			ThrottleInterval: 250 * time.Millisecond,
		},
		LodLow: {
			EntityCap:        150,
			SimplifyEpsilon:  1e-4,
			PoolMaxEntries:   128,
			PoolMaxBytes:     8 << 20,
			ThrottleInterval: time.Second,
		},
	}

	defaultPoolKinds = []string{"tile", "icon", "geometry"}
)

// DefaultModes returns the package-default per-tier tuning, for callers
// that override individual tiers instead of supplying all of them.
func DefaultModes() [NumLodModes]LodConfig { return defaultModes }

// DefaultThresholds returns the package-default hysteresis thresholds.
func DefaultThresholds() (dropBelow, raiseAbove [NumLodModes]float64) {
	return defaultDropBelow, defaultRaiseAbove
}

// Config encapsulates all tunables for Engine construction. Zero values
// mean "unspecified" and take package defaults; negative values are
// invalid, clamped to documented minimums and counted in the snapshot's
// ClampCount rather than rejected.
type Config struct {
	// Clock is the time source. Nil means the system clock; tests inject
	// a fake so grace periods and budgets advance deterministically.
	Clock Clock
	// Logger receives structured events. Nil disables logging.
	Logger *zerolog.Logger
	// EnableDiagnostics turns on per-field rebuild tagging and keeps the
	// extended counters populated. Runtime flag, not a build switch, so
	// the diagnostic path is testable in every build.
	EnableDiagnostics bool

	// BuildObject constructs visual objects for the render cache.
	// Required.
	BuildObject types.ObjectBuilder
	// PoolKinds names the independent resource pools (default tile,
	// icon, geometry). Each enforces its own bounds.
	PoolKinds []string
	// DisposePooled, when set, is invoked for every evicted pool payload.
	DisposePooled func(kind, key string, payload any)

	// FPSWindow is the rolling window for smoothed FPS.
	FPSWindow time.Duration
	// GracePeriod is the minimum dwell time between tier transitions.
	GracePeriod time.Duration
	// DropBelow / RaiseAbove are the per-tier hysteresis thresholds.
	// A fully zero array takes the package defaults.
	DropBelow  [NumLodModes]float64
	RaiseAbove [NumLodModes]float64
	// Modes carries the per-tier tuning records. A fully zero array
	// takes the package defaults.
	Modes [NumLodModes]LodConfig

	// PositionEpsilon separates geographic noise from movement.
	PositionEpsilon float64
	// RemovalGraceBatches is how many consecutive batches an id may be
	// absent before its snapshot is evicted.
	RemovalGraceBatches int

	// FrameBudget is the per-frame time budget idle work fits inside.
	FrameBudget time.Duration
	// IdleSlice is the minimum remaining budget required to start a task.
	IdleSlice time.Duration
	// GCHintCooldown throttles advisory GC hints.
	GCHintCooldown time.Duration
}

// withDefaults returns cfg with unset fields defaulted and invalid fields
// clamped, plus the number of clamps applied.
func (c Config) withDefaults(log zerolog.Logger) (Config, uint64) {
	var clamps uint64
	clampDur := func(d *time.Duration, def time.Duration, name string) {
		if *d < 0 {
			clamps++
			log.Warn().Str("field", name).Dur("value", *d).Dur("default", def).Msg("negative duration clamped")
			*d = def
		} else if *d == 0 {
			*d = def
		}
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	clampDur(&c.FPSWindow, defaultFPSWindow, "fps_window")
	clampDur(&c.GracePeriod, defaultGracePeriod, "grace_period")
	clampDur(&c.FrameBudget, defaultFrameBudget, "frame_budget")
	clampDur(&c.IdleSlice, defaultIdleSlice, "idle_slice")
	clampDur(&c.GCHintCooldown, defaultGCHintCooldown, "gc_hint_cooldown")

	if c.PositionEpsilon < 0 {
		clamps++
		log.Warn().Float64("position_epsilon", c.PositionEpsilon).Msg("negative epsilon clamped")
		c.PositionEpsilon = defaultPositionEpsilon
	} else if c.PositionEpsilon == 0 {
		c.PositionEpsilon = defaultPositionEpsilon
	}
	if c.RemovalGraceBatches < 0 {
		clamps++
		log.Warn().Int("removal_grace_batches", c.RemovalGraceBatches).Msg("negative grace clamped")
		c.RemovalGraceBatches = defaultRemovalGrace
	} else if c.RemovalGraceBatches == 0 {
		c.RemovalGraceBatches = defaultRemovalGrace
	}

	if c.DropBelow == ([NumLodModes]float64{}) {
		c.DropBelow = defaultDropBelow
	}
	if c.RaiseAbove == ([NumLodModes]float64{}) {
		c.RaiseAbove = defaultRaiseAbove
	}
	if c.Modes == ([NumLodModes]LodConfig{}) {
		c.Modes = defaultModes
	}
	for i := range c.Modes {
		mc := &c.Modes[i]
		if mc.EntityCap < 0 {
			clamps++
			log.Warn().Str("mode", LodMode(i).String()).Int("entity_cap", mc.EntityCap).Msg("negative entity cap clamped to unbounded")
			mc.EntityCap = 0
		}
		if mc.PoolMaxEntries < 0 {
			clamps++
			mc.PoolMaxEntries = minPoolEntries
		}
		if mc.PoolMaxBytes < 0 {
			clamps++
			mc.PoolMaxBytes = minPoolBytes
		}
		if mc.SimplifyEpsilon < 0 {
			clamps++
			mc.SimplifyEpsilon = 0
		}
		if mc.ThrottleInterval < 0 {
			clamps++
			mc.ThrottleInterval = 0
		}
	}

	if len(c.PoolKinds) == 0 {
		c.PoolKinds = defaultPoolKinds
	}
	return c, clamps
}

// validate catches programmer-error inputs that clamping cannot repair.
func (c Config) validate() error {
	if c.BuildObject == nil {
		return errors.New("engine: Config.BuildObject is required")
	}
	return nil
}
