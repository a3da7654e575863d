package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConfigDefaultsApplied(t *testing.T) {
	cfg, clamps := Config{}.withDefaults(zerolog.Nop())
	if clamps != 0 {
		t.Fatalf("defaults counted as clamps: %d", clamps)
	}
	if cfg.FPSWindow != defaultFPSWindow || cfg.GracePeriod != defaultGracePeriod {
		t.Fatalf("window/grace = %v/%v", cfg.FPSWindow, cfg.GracePeriod)
	}
	if cfg.Modes != defaultModes {
		t.Fatalf("modes = %+v", cfg.Modes)
	}
	if cfg.DropBelow != defaultDropBelow || cfg.RaiseAbove != defaultRaiseAbove {
		t.Fatalf("thresholds not defaulted")
	}
	if len(cfg.PoolKinds) != 3 {
		t.Fatalf("pool kinds = %v", cfg.PoolKinds)
	}
	if cfg.Clock == nil {
		t.Fatalf("clock not defaulted")
	}
}

func TestConfigNegativeValuesClampedAndCounted(t *testing.T) {
	in := Config{
		GracePeriod:         -time.Second,
		PositionEpsilon:     -1,
		RemovalGraceBatches: -2,
		Modes:               defaultModes,
	}
	in.Modes[LodLow].EntityCap = -10
	in.Modes[LodLow].PoolMaxEntries = -1
	in.Modes[LodLow].PoolMaxBytes = -1
	in.Modes[LodLow].ThrottleInterval = -time.Second

	cfg, clamps := in.withDefaults(zerolog.Nop())
	if clamps != 7 {
		t.Fatalf("clamps = %d, want 7", clamps)
	}
	if cfg.GracePeriod != defaultGracePeriod {
		t.Fatalf("grace = %v", cfg.GracePeriod)
	}
	if cfg.PositionEpsilon != defaultPositionEpsilon {
		t.Fatalf("epsilon = %v", cfg.PositionEpsilon)
	}
	lc := cfg.Modes[LodLow]
	if lc.EntityCap != 0 || lc.PoolMaxEntries != minPoolEntries || lc.PoolMaxBytes != minPoolBytes || lc.ThrottleInterval != 0 {
		t.Fatalf("low tier not clamped: %+v", lc)
	}
}

func TestConfigClampCountSurfacesInStatus(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(t, clock, func(cfg *Config) {
		cfg.GracePeriod = -time.Second
	})
	if got := e.Status().ClampCount; got != 1 {
		t.Fatalf("clamp count = %d, want 1", got)
	}
}
