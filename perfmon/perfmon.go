// Package perfmon samples frame rate and memory pressure for the
// degradation layer.
//
// The renderer calls RecordFrame once per rendered frame; the monitor keeps
// a rolling window of instantaneous fps samples and, while monitoring is
// started, periodically dispatches (fps, memory) readings to registered
// callbacks. Memory readings come from the host sampler and are never
// fabricated: when sampling fails, the reading is reported as absent.
package perfmon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/shield/faultlog"
)

// WindowSize is the rolling fps window capacity.
const WindowSize = 60

// DefaultInterval is the monitoring tick period.
const DefaultInterval = time.Second

// MemorySampler returns the used-memory ratio in [0, 1] and whether a
// reading is available.
type MemorySampler func() (ratio float64, ok bool)

// Callback receives periodic readings. memOK is false when no memory
// reading is available; mem is 0 in that case.
type Callback func(fps float64, mem float64, memOK bool)

// degradedFraction: performance counts as degraded below this fraction
// of the target frame rate.
const degradedFraction = 0.8

// Monitor is a rolling-window frame-rate and memory-pressure sampler.
//
// Monitor is safe for concurrent use.
type Monitor struct {
	mu sync.Mutex

	samples   []float64
	lastFrame time.Time
	haveLast  bool

	callbacks []Callback
	sampler   MemorySampler

	running bool
	stop    chan struct{}

	log    *faultlog.Log
	logger *slog.Logger

	now func() time.Time
}

// NewMonitor creates a monitor. A nil sampler falls back to
// SystemMemorySampler; a nil logger disables diagnostics.
func NewMonitor(log *faultlog.Log, logger *slog.Logger, sampler MemorySampler) *Monitor {
	if sampler == nil {
		sampler = SystemMemorySampler()
	}
	return &Monitor{
		samples: make([]float64, 0, WindowSize),
		sampler: sampler,
		log:     log,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterCallback adds a periodic-readings callback.
// A panicking callback is contained and logged, never propagated.
func (m *Monitor) RegisterCallback(fn Callback) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// RecordFrame records one rendered frame. The instantaneous fps is the
// reciprocal of the interval since the previous call; the first call only
// establishes the baseline.
func (m *Monitor) RecordFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.haveLast {
		m.lastFrame = now
		m.haveLast = true
		return
	}

	delta := now.Sub(m.lastFrame)
	m.lastFrame = now
	if delta <= 0 {
		return
	}

	m.samples = append(m.samples, float64(time.Second)/float64(delta))
	if len(m.samples) > WindowSize {
		m.samples = append(m.samples[:0], m.samples[len(m.samples)-WindowSize:]...)
	}
}

// AverageFPS returns the mean of the rolling window, 0 when empty.
func (m *Monitor) AverageFPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averageLocked()
}

func (m *Monitor) averageLocked() float64 {
	if len(m.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range m.samples {
		sum += s
	}
	return sum / float64(len(m.samples))
}

// MemoryUsage returns the current used-memory ratio, when available.
func (m *Monitor) MemoryUsage() (float64, bool) {
	m.mu.Lock()
	sampler := m.sampler
	m.mu.Unlock()
	return sampler()
}

// Degraded reports whether the average frame rate has fallen below 80%
// of the target. An empty window is not degraded: nothing has been
// measured yet.
func (m *Monitor) Degraded(targetFPS float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 || targetFPS <= 0 {
		return false
	}
	return m.averageLocked() < targetFPS*degradedFraction
}

// Start begins periodic callback dispatch. Idempotent: starting a running
// monitor is a no-op. Interval <= 0 uses DefaultInterval.
func (m *Monitor) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go m.loop(interval, stop)
}

// Stop halts periodic dispatch. Idempotent and safe at any time;
// the rolling window is retained.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()
}

// Running reports whether periodic dispatch is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick dispatches one round of readings.
func (m *Monitor) tick() {
	m.mu.Lock()
	fps := m.averageLocked()
	callbacks := append([]Callback(nil), m.callbacks...)
	sampler := m.sampler
	m.mu.Unlock()

	mem, memOK := sampler()

	for _, fn := range callbacks {
		m.dispatch(fn, fps, mem, memOK)
	}
}

// dispatch runs one callback, containing panics.
func (m *Monitor) dispatch(fn Callback, fps, mem float64, memOK bool) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Warn("performance callback panicked", "panic", r)
			}
			if m.log != nil {
				m.log.Log(faultlog.Unknown, "performance callback panicked",
					faultlog.SeverityLow, map[string]any{"panic": r})
			}
		}
	}()
	fn(fps, mem, memOK)
}
