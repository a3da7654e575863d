package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vizcore/internal/engine"
)

// ModeTuning holds one quality tier's tunables. Zero values mean
// "unspecified" and fall back to the engine's package defaults.
type ModeTuning struct {
	DropBelowFPS     float64 `json:"drop_below_fps" yaml:"drop_below_fps" toml:"drop_below_fps"`
	RaiseAboveFPS    float64 `json:"raise_above_fps" yaml:"raise_above_fps" toml:"raise_above_fps"`
	EntityCap        int     `json:"entity_cap" yaml:"entity_cap" toml:"entity_cap"`
	SimplifyEpsilon  float64 `json:"simplify_epsilon" yaml:"simplify_epsilon" toml:"simplify_epsilon"`
	PoolMaxEntries   int     `json:"pool_max_entries" yaml:"pool_max_entries" toml:"pool_max_entries"`
	PoolMaxBytes     int64   `json:"pool_max_bytes" yaml:"pool_max_bytes" toml:"pool_max_bytes"`
	ThrottleMs       int     `json:"throttle_ms" yaml:"throttle_ms" toml:"throttle_ms"`
}

// Config holds runtime parameters for the daemon. All numeric tuning
// values are products of profiling, not contracts; zero means
// "unspecified" and defers to defaults downstream.
type Config struct {
	Addr                string     `json:"addr" yaml:"addr" toml:"addr"`
	FPSWindowMs         int        `json:"fps_window_ms" yaml:"fps_window_ms" toml:"fps_window_ms"`
	GracePeriodMs       int        `json:"grace_period_ms" yaml:"grace_period_ms" toml:"grace_period_ms"`
	PositionEpsilon     float64    `json:"position_epsilon" yaml:"position_epsilon" toml:"position_epsilon"`
	RemovalGraceBatches int        `json:"removal_grace_batches" yaml:"removal_grace_batches" toml:"removal_grace_batches"`
	FrameBudgetMs       int        `json:"frame_budget_ms" yaml:"frame_budget_ms" toml:"frame_budget_ms"`
	IdleSliceMs         int        `json:"idle_slice_ms" yaml:"idle_slice_ms" toml:"idle_slice_ms"`
	GCHintCooldownSec   int        `json:"gc_hint_cooldown_sec" yaml:"gc_hint_cooldown_sec" toml:"gc_hint_cooldown_sec"`
	PoolKinds           []string   `json:"pool_kinds" yaml:"pool_kinds" toml:"pool_kinds"`
	EnableDiagnostics   bool       `json:"enable_diagnostics" yaml:"enable_diagnostics" toml:"enable_diagnostics"`
	High                ModeTuning `json:"high" yaml:"high" toml:"high"`
	Medium              ModeTuning `json:"medium" yaml:"medium" toml:"medium"`
	Low                 ModeTuning `json:"low" yaml:"low" toml:"low"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Engine maps the file schema onto engine.Config. Top-level fields the
// file leaves at zero stay zero so the engine applies its own defaults
// and clamps; tier fields merge against the package defaults here, since
// a zero pool cap or threshold has a meaning of its own downstream.
func (c Config) Engine() engine.Config {
	out := engine.Config{
		EnableDiagnostics:   c.EnableDiagnostics,
		PoolKinds:           c.PoolKinds,
		FPSWindow:           time.Duration(c.FPSWindowMs) * time.Millisecond,
		GracePeriod:         time.Duration(c.GracePeriodMs) * time.Millisecond,
		PositionEpsilon:     c.PositionEpsilon,
		RemovalGraceBatches: c.RemovalGraceBatches,
		FrameBudget:         time.Duration(c.FrameBudgetMs) * time.Millisecond,
		IdleSlice:           time.Duration(c.IdleSliceMs) * time.Millisecond,
		GCHintCooldown:      time.Duration(c.GCHintCooldownSec) * time.Second,
	}
	tiers := [engine.NumLodModes]ModeTuning{
		engine.LodHigh:   c.High,
		engine.LodMedium: c.Medium,
		engine.LodLow:    c.Low,
	}
	// Start from engine defaults and merge field-wise, so a file may
	// override a single knob of a single tier without zeroing the rest.
	out.Modes = engine.DefaultModes()
	out.DropBelow, out.RaiseAbove = engine.DefaultThresholds()
	for i, mt := range tiers {
		if mt.DropBelowFPS != 0 {
			out.DropBelow[i] = mt.DropBelowFPS
		}
		if mt.RaiseAboveFPS != 0 {
			out.RaiseAbove[i] = mt.RaiseAboveFPS
		}
		if mt.EntityCap != 0 {
			out.Modes[i].EntityCap = mt.EntityCap
		}
		if mt.SimplifyEpsilon != 0 {
			out.Modes[i].SimplifyEpsilon = mt.SimplifyEpsilon
		}
		if mt.PoolMaxEntries != 0 {
			out.Modes[i].PoolMaxEntries = mt.PoolMaxEntries
		}
		if mt.PoolMaxBytes != 0 {
			out.Modes[i].PoolMaxBytes = mt.PoolMaxBytes
		}
		if mt.ThrottleMs != 0 {
			out.Modes[i].ThrottleInterval = time.Duration(mt.ThrottleMs) * time.Millisecond
		}
	}
	return out
}
