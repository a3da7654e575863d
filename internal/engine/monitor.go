package engine

import "time"

// frameSample is one rendered frame's duration, stamped on arrival.
// Samples self-expire out of the rolling window; nothing disposes them.
type frameSample struct {
	at  time.Time
	dur time.Duration
}

// frameTimeMonitor keeps a rolling window of frame durations and derives a
// smoothed FPS from the window average. Append and prune are O(1)
// amortized. A quiet period simply leaves the window to drain: silence
// means the host is idle, not broken.
type frameTimeMonitor struct {
	clock   Clock
	window  time.Duration
	samples []frameSample
	sum     time.Duration
	fps     float64
	running bool
	onFPS   func(fps float64)
}

func newFrameTimeMonitor(clock Clock, window time.Duration, onFPS func(float64)) *frameTimeMonitor {
	return &frameTimeMonitor{clock: clock, window: window, onFPS: onFPS}
}

func (m *frameTimeMonitor) Start() { m.running = true }

func (m *frameTimeMonitor) Stop() { m.running = false }

// OnSample records one frame duration, recomputes the smoothed FPS, and
// invokes the callback once. Non-positive durations are ignored.
func (m *frameTimeMonitor) OnSample(dur time.Duration) {
	if !m.running || dur <= 0 {
		return
	}
	now := m.clock.Now()
	m.samples = append(m.samples, frameSample{at: now, dur: dur})
	m.sum += dur
	m.prune(now)

	avg := m.sum / time.Duration(len(m.samples))
	m.fps = float64(time.Second) / float64(avg)
	if m.onFPS != nil {
		m.onFPS(m.fps)
	}
}

func (m *frameTimeMonitor) prune(now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.samples) && m.samples[i].at.Before(cutoff) {
		m.sum -= m.samples[i].dur
		i++
	}
	if i > 0 {
		m.samples = m.samples[i:]
	}
}

// FPS returns the last smoothed reading (0 before the first sample).
func (m *frameTimeMonitor) FPS() float64 { return m.fps }
