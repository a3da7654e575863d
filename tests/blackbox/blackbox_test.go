package blackbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vizcore/internal/debugapi"
	"vizcore/internal/engine"
	"vizcore/pkg/types"
)

type benchObject struct{}

func (benchObject) Dispose() {}

// fakeClock drives the engine deterministically so no test sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// startCore wires a real engine behind the debug API exactly as the
// daemon does, served over an ephemeral listener.
func startCore(t *testing.T, clock engine.Clock) (*engine.Engine, *httptest.Server) {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Clock: clock,
		BuildObject: func(u types.EntityUpdate, simplifyEpsilon float64) types.RenderObject {
			return benchObject{}
		},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.Start()
	srv := httptest.NewServer(debugapi.NewMux(eng, debugapi.Options{}))
	t.Cleanup(func() {
		srv.Close()
		_ = eng.Close()
	})
	return eng, srv
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	eng, srv := startCore(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status=%d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz status=%d", resp.StatusCode)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz after close: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz after close status=%d", resp.StatusCode)
	}
}

func TestStatusReflectsDrivenEngine(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	eng, srv := startCore(t, clock)

	batch := make([]types.EntityUpdate, 50)
	for i := range batch {
		batch[i] = types.EntityUpdate{
			ID:       fmt.Sprintf("e-%02d", i),
			Position: types.Position{Lat: float64(i), Lon: float64(i) * 2},
		}
	}

	// A steady 62.5 FPS with batches and viewport churn.
	for f := 0; f < 200; f++ {
		clock.Advance(16 * time.Millisecond)
		eng.OnFrame(16 * time.Millisecond)
		if f%4 == 0 {
			eng.ApplyUpdates(batch, nil)
		}
		eng.ViewportChanged()
		eng.RunIdle(0)
	}

	var st types.StatusResponse
	getJSON(t, srv.URL+"/status", &st)

	if st.Mode != "high" {
		t.Fatalf("mode=%q, want high at 62 FPS", st.Mode)
	}
	if st.FPS < 55 || st.FPS > 70 {
		t.Fatalf("fps=%.1f, want ~62", st.FPS)
	}
	if st.Cache.Entities != 50 {
		t.Fatalf("entities=%d, want 50", st.Cache.Entities)
	}
	if st.Cache.Created != 50 {
		t.Fatalf("created=%d, want 50", st.Cache.Created)
	}
	if st.Cache.Reused == 0 {
		t.Fatal("expected reuse after repeated identical batches")
	}
	if len(st.Pools) == 0 {
		t.Fatal("expected pool status entries")
	}
}

func TestStatusShowsTierDrop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	eng, srv := startCore(t, clock)

	// Sustained 25 FPS is below both drop thresholds, so the engine
	// should step high -> medium -> low, one step per grace window.
	for f := 0; f < 100; f++ {
		clock.Advance(40 * time.Millisecond)
		eng.OnFrame(40 * time.Millisecond)
		var st types.StatusResponse
		getJSON(t, srv.URL+"/status", &st)
		if st.Mode == "low" {
			if st.ModeTransitions < 2 {
				t.Fatalf("transitions=%d, want >=2 to reach low", st.ModeTransitions)
			}
			return
		}
	}
	t.Fatal("engine never reached low tier under sustained 25 FPS")
}

func TestMetricsExposed(t *testing.T) {
	_, srv := startCore(t, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status=%d", resp.StatusCode)
	}
}
