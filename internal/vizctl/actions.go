package vizctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vizcore/internal/engine"
	"vizcore/pkg/types"
)

// normalizeAddr turns the forms users actually type (":8080",
// "host:8080", full URL) into a base URL.
func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func fetchStatus(addr string) (types.StatusResponse, error) {
	var st types.StatusResponse
	url := normalizeAddr(addr) + "/status"
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

func printStatus(st types.StatusResponse) {
	fmt.Printf("fps:          %.1f\n", st.FPS)
	fmt.Printf("mode:         %s (transitions: %d)\n", st.Mode, st.ModeTransitions)
	fmt.Printf("cache:        %d entities, created=%d reused=%d removed=%d hit-rate=%.3f\n",
		st.Cache.Entities, st.Cache.Created, st.Cache.Reused, st.Cache.Removed, st.Cache.HitRate)
	for _, p := range st.Pools {
		fmt.Printf("pool %-10s %d/%d entries, %d/%d bytes, hits=%d misses=%d evictions=%d\n",
			p.Name+":", p.Entries, p.MaxEntries, p.Bytes, p.MaxBytes, p.Hits, p.Misses, p.Evictions)
	}
	fmt.Printf("throttle:     interval=%dms accepted=%d skipped=%d\n",
		st.Throttle.IntervalMs, st.Throttle.Accepted, st.Throttle.Skipped)
	fmt.Printf("idle:         queued=%d completed=%d overruns=%d (rate=%.4f) gc-hints=%d\n",
		st.IdleTasks.Queued, st.IdleTasks.Completed, st.IdleTasks.Overruns, st.IdleTasks.OverrunRate, st.IdleTasks.GCHints)
	if st.Warmup != nil {
		fmt.Printf("warmup:       %d/%d done completed=%v cancelled=%v\n",
			st.Warmup.StepsDone, st.Warmup.StepsTotal, st.Warmup.Completed, st.Warmup.Cancelled)
	}
	fmt.Printf("clamps:       %d\n", st.ClampCount)
	fmt.Printf("uptime:       %ds\n", st.UptimeSeconds)
}

func summaryLine(st types.StatusResponse) string {
	return fmt.Sprintf("fps=%.1f mode=%s entities=%d hit-rate=%.3f throttle-skipped=%d idle-done=%d",
		st.FPS, st.Mode, st.Cache.Entities, st.Cache.HitRate, st.Throttle.Skipped, st.IdleTasks.Completed)
}

// fnStatus fetches and prints one snapshot.
func fnStatus(cfg *Config) error {
	st, err := fetchStatus(cfg.Addr)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

// fnWatch polls the snapshot until interrupted.
func fnWatch(cfg *Config, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := fetchStatus(cfg.Addr)
		if err != nil {
			warn("poll failed: %v", err)
		} else {
			fmt.Println(summaryLine(st))
		}
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

type benchObject struct{}

func (benchObject) Dispose() {}

// fnBench runs an in-process engine through a synthetic frame sequence
// and prints the resulting snapshot. No daemon is required.
func fnBench(cfg *Config, frames, entities int, frameDur time.Duration) error {
	if frames <= 0 || entities <= 0 {
		return fmt.Errorf("frames and entities must be positive")
	}
	if frameDur <= 0 {
		frameDur = 16 * time.Millisecond
	}
	eng, err := engine.New(engine.Config{
		BuildObject: func(u types.EntityUpdate, simplifyEpsilon float64) types.RenderObject {
			return benchObject{}
		},
	})
	if err != nil {
		return err
	}
	defer eng.Close()
	eng.Start()

	batch := make([]types.EntityUpdate, entities)
	for i := range batch {
		batch[i] = types.EntityUpdate{
			ID:       fmt.Sprintf("bench-%04d", i),
			Position: types.Position{Lat: float64(i) * 0.01, Lon: float64(i) * 0.02},
		}
	}

	start := time.Now()
	for f := 0; f < frames; f++ {
		eng.OnFrame(frameDur)
		if f%4 == 0 {
			for i := range batch {
				batch[i].Position.Lon += 1e-3
			}
			eng.ApplyUpdates(batch, nil)
		}
		eng.ViewportChanged()
		eng.RunIdle(0)
	}
	elapsed := time.Since(start)

	info("ran %d frames over %d entities in %s", frames, entities, elapsed.Round(time.Millisecond))
	printStatus(eng.Status())
	return nil
}
