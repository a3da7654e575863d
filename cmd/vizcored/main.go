package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"vizcore/internal/config"
	"vizcore/internal/debugapi"
	"vizcore/internal/engine"
	"vizcore/pkg/types"
)

// simObject stands in for a GPU-side render object in the simulated host.
type simObject struct{}

func (simObject) Dispose() {}

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("VIZCORE_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address for the debug API, e.g. :8080")
	configPath := flag.String("config", os.Getenv("VIZCORE_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	logLevel := flag.String("log-level", envOr("VIZCORE_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	enableCORS := flag.Bool("cors", false, "Allow cross-origin debug API requests")
	entities := flag.Int("entities", 300, "Synthetic entity count for the simulated host loop")
	frameMs := flag.Int("frame-ms", 16, "Simulated frame interval in milliseconds")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	debugapi.SetLogger(log)

	ecfg := engine.Config{}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		ecfg = fileCfg.Engine()
		if fileCfg.Addr != "" && *addr == defaultAddr {
			*addr = fileCfg.Addr
		}
	}
	ecfg.Logger = &log
	ecfg.BuildObject = func(u types.EntityUpdate, simplifyEpsilon float64) types.RenderObject {
		return simObject{}
	}

	eng, err := engine.New(ecfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine")
	}
	eng.Start()
	prometheus.MustRegister(debugapi.NewEngineCollector(eng))

	mux := debugapi.NewMux(eng, debugapi.Options{EnableCORS: *enableCORS})
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Info().Str("addr", *addr).Msg("vizcored debug API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	go runHostLoop(loopCtx, eng, log, *entities, time.Duration(*frameMs)*time.Millisecond)

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := eng.Close(); err != nil {
		log.Warn().Err(err).Msg("engine close error")
	}
}

// runHostLoop stands in for the render host: it paces frames, reports
// frame times, feeds synthetic entity batches, and hands leftover frame
// time to the idle scheduler. It exists so the daemon exercises the
// engine end to end without a GPU attached.
func runHostLoop(ctx context.Context, eng *engine.Engine, log zerolog.Logger, entityCount int, frameInterval time.Duration) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	batch := make([]types.EntityUpdate, entityCount)
	for i := range batch {
		batch[i] = types.EntityUpdate{
			ID: fmt.Sprintf("ent-%04d", i),
			Position: types.Position{
				Lat: -60 + rng.Float64()*120,
				Lon: -180 + rng.Float64()*360,
			},
			State: map[string]string{"status": "active"},
		}
	}

	warmSteps := []engine.WarmStep{
		{Name: "pools", Run: func(ctx context.Context) error { eng.ConfigurePools(); return nil }},
		{Name: "first-batch", Run: func(ctx context.Context) error {
			eng.ApplyUpdates(batch, nil)
			return nil
		}},
	}
	if err := eng.Warmup(ctx, warmSteps, nil, func() {
		log.Info().Msg("warm-up complete")
	}); err != nil {
		log.Warn().Err(err).Msg("warm-up not started")
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	frame := 0
	for {
		select {
		case <-ctx.Done():
			eng.CancelWarmup()
			return
		case now := <-ticker.C:
			frameStart := time.Now()
			eng.OnFrame(now.Sub(last))
			last = now
			frame++

			// Entities drift a little every frame; a fresh batch arrives
			// every fourth frame to mimic a network feed.
			if frame%4 == 0 {
				for i := range batch {
					batch[i].Position.Lat += (rng.Float64() - 0.5) * 1e-3
					batch[i].Position.Lon += (rng.Float64() - 0.5) * 1e-3
				}
				eng.ApplyUpdates(batch, nil)
			}
			// Occasional camera motion to exercise the throttle.
			if frame%3 == 0 {
				eng.ViewportChanged()
			}
			eng.RunIdle(time.Since(frameStart))
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
