// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shield

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/shield/caps"
	"github.com/gogpu/shield/degrade"
	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/host"
	"github.com/gogpu/shield/perfmon"
	"github.com/gogpu/shield/recovery"
	"github.com/gogpu/shield/scenario"
	"github.com/gogpu/shield/shaderc"
)

// DefaultTargetFPS is the frame-rate target used when Options.TargetFPS
// is unset.
const DefaultTargetFPS = 60

// faultHistoryWindow bounds how far back fallback evaluation looks.
const faultHistoryWindow = 5 * time.Minute

// Options configures a Handler. The zero value selects the best
// registered host context, the package logger, and default monitoring
// parameters.
type Options struct {
	// Context is the rendering context to observe. Nil selects the best
	// registered context via host.InitDefault, and the Handler then owns
	// its lifetime.
	Context host.Context

	// Logger overrides the package logger for this Handler.
	Logger *slog.Logger

	// TargetFPS is the frame-rate target. DefaultTargetFPS when <= 0.
	TargetFPS float64

	// PixelRatio is the host's device pixel ratio, used to adapt the
	// target downward on high-density displays. 1 when <= 0.
	PixelRatio float64

	// MonitorInterval is the periodic sampling interval.
	// perfmon.DefaultInterval when <= 0.
	MonitorInterval time.Duration

	// OnError observes every logged fault.
	OnError func(faultlog.Fault)

	// OnRecovery observes context-restoration outcomes.
	OnRecovery func(success bool)

	// OnFallback observes every applied fallback state.
	OnFallback func(degrade.State)
}

// Handler is the composition root: one instance of every shield
// component, bound to one rendering context for the lifetime of one
// mounted effect.
//
// All methods are safe for concurrent use, and none panics past its own
// boundary: faults are logged and surface as degraded configuration, not
// as crashes.
type Handler struct {
	mu sync.Mutex

	ctx      host.Context
	ownCtx   bool
	log      *faultlog.Log
	detector *caps.Detector
	compiler *shaderc.Compiler
	recovery *recovery.Manager
	monitor  *perfmon.Monitor
	degrader *degrade.Manager
	engine   *scenario.Engine
	logger   *slog.Logger

	targetFPS  float64
	pixelRatio float64
	interval   time.Duration

	initialized bool
	closed      bool
}

// New creates a Handler. Initialize must be called before monitoring or
// fallback evaluation.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = Logger()
	}

	h := &Handler{
		ctx:        opts.Context,
		logger:     logger,
		targetFPS:  opts.TargetFPS,
		pixelRatio: opts.PixelRatio,
		interval:   opts.MonitorInterval,
	}
	if h.targetFPS <= 0 {
		h.targetFPS = DefaultTargetFPS
	}
	if h.pixelRatio <= 0 {
		h.pixelRatio = 1
	}
	if h.interval <= 0 {
		h.interval = perfmon.DefaultInterval
	}

	h.log = faultlog.New(faultlog.Config{
		Logger:  logger,
		OnFault: opts.OnError,
	})
	h.compiler = shaderc.NewCompiler(h.log, logger)
	h.recovery = recovery.NewManager(h.log, logger, opts.OnRecovery)
	h.monitor = perfmon.NewMonitor(h.log, logger, nil)
	h.degrader = degrade.NewManager(h.log, logger, opts.OnFallback)
	h.engine = scenario.NewEngine(h.log, h.degrader, h.monitor, logger)

	// Feed every monitoring tick into memory-trend prediction.
	h.monitor.RegisterCallback(func(fps, mem float64, memOK bool) {
		if memOK {
			h.engine.ObserveMemory(mem)
		}
	})

	return h
}

// Initialize brings up the rendering context, probes its capabilities,
// applies the initial fallback level, and attaches context-loss
// recovery. Idempotent: a second call on an initialized Handler is a
// no-op.
//
// When no usable context exists the Handler stays functional in the
// disabled tier and the error describes why.
func (h *Handler) Initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if h.initialized {
		return nil
	}

	if h.ctx == nil {
		ctx, err := host.InitDefault()
		if err != nil {
			return h.failInitLocked(err)
		}
		h.ctx = ctx
		h.ownCtx = true
	} else if err := h.ctx.Init(); err != nil {
		return h.failInitLocked(err)
	}

	h.detector = caps.NewDetector(h.ctx, h.logger)
	capabilities := h.detector.Detect()

	level := h.degrader.Determine(capabilities, h.log.Recent("", faultHistoryWindow))
	if level != degrade.LevelNone {
		h.degrader.Apply(level, "initial capability check")
	}

	h.recovery.Attach(h.ctx)
	h.initialized = true

	if h.logger != nil {
		h.logger.Info("shield initialized",
			"context", h.ctx.Name(),
			"level", level.String(),
			"supported", capabilities.Supported)
	}
	return nil
}

// failInitLocked records a missing-context fault, pins the disabled
// tier, and returns the wrapped cause.
func (h *Handler) failInitLocked(cause error) error {
	h.log.Log(faultlog.Unavailable,
		fmt.Sprintf("no usable rendering context: %v", cause),
		faultlog.SeverityCritical, nil)
	h.degrader.Apply(degrade.LevelDisabled, "no rendering context")
	return fmt.Errorf("%w: %w", ErrNotInitialized, cause)
}

// StartMonitoring begins periodic performance sampling. Idempotent.
func (h *Handler) StartMonitoring() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || !h.initialized {
		return
	}
	h.monitor.Start(h.interval)
}

// StopMonitoring halts periodic sampling. Idempotent.
func (h *Handler) StopMonitoring() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.monitor.Stop()
}

// RecordFrame feeds one rendered frame into the rolling fps window.
func (h *Handler) RecordFrame() {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return
	}
	h.monitor.RecordFrame()
}

// CheckAndApplyFallbacks re-evaluates the fallback level from the cached
// capabilities and the recent fault history. Escalation applies
// immediately; de-escalation only once the degradation manager's quiet
// window has passed. Returns the state in effect after the check.
func (h *Handler) CheckAndApplyFallbacks() degrade.State {
	h.mu.Lock()
	if h.closed || !h.initialized {
		h.mu.Unlock()
		return degrade.State{Level: h.degrader.Level()}
	}
	detector := h.detector
	h.mu.Unlock()

	capabilities := detector.Detect()
	history := h.log.Recent("", faultHistoryWindow)
	determined := h.degrader.Determine(capabilities, history)
	current := h.degrader.Level()

	switch {
	case determined > current:
		return h.degrader.Apply(determined, "fault pressure")
	case determined < current && h.degrader.CanReduce():
		return h.degrader.Apply(determined, "recovered headroom")
	}

	st := degrade.State{Level: current}
	if hist := h.degrader.History(); len(hist) > 0 {
		st = hist[len(hist)-1]
	}
	return st
}

// CheckCascadingFailures asks the scenario engine whether the fault
// history indicates a cascading failure, and pins the disabled tier when
// it does. Returns true when the effect was (or already is) disabled.
func (h *Handler) CheckCascadingFailures() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()

	if h.degrader.Level() == degrade.LevelDisabled {
		return true
	}

	disable, reason := h.engine.ShouldDisable()
	if !disable {
		return false
	}
	h.degrader.Apply(degrade.LevelDisabled, reason)
	return true
}

// Config returns the renderer parameter bundle for the current fallback
// level, further shrunk by live memory pressure and frame-rate shortfall.
// Under the disabled tier the bundle is exactly zero.
func (h *Handler) Config() degrade.Config {
	cfg := h.degrader.Config()
	if h.degrader.Level() == degrade.LevelDisabled {
		return cfg
	}

	if mem, ok := h.monitor.MemoryUsage(); ok {
		cfg = h.engine.AdjustForMemory(cfg, mem)
	}

	h.mu.Lock()
	target := h.targetFPS
	pixelRatio := h.pixelRatio
	h.mu.Unlock()

	if fps := h.monitor.AverageFPS(); fps > 0 {
		adaptive := h.engine.AdaptiveTargetFPS(target, pixelRatio)
		cfg = h.engine.AdjustForPerformance(cfg, fps, adaptive)
	}
	return cfg
}

// Statistics is a point-in-time aggregate across all components.
type Statistics struct {
	// Faults counts retained faults keyed "type_severity".
	Faults map[string]int

	// TotalFaults is the number of retained faults.
	TotalFaults int

	// AverageFPS is the rolling-window mean frame rate, 0 when empty.
	AverageFPS float64

	// MemoryRatio is the sampled memory-pressure ratio; meaningful only
	// when MemoryKnown.
	MemoryRatio float64
	MemoryKnown bool

	// Level is the fallback level in effect.
	Level degrade.Level

	// ContextLost reports an unrestored context loss.
	ContextLost bool

	// OpenBreakers names scenarios currently blocked by their circuit
	// breaker.
	OpenBreakers []string
}

// GetErrorStatistics aggregates fault counts and live component state.
func (h *Handler) GetErrorStatistics() Statistics {
	stats := h.log.Stats()
	total := 0
	for _, n := range stats {
		total += n
	}

	mem, memOK := h.monitor.MemoryUsage()
	return Statistics{
		Faults:       stats,
		TotalFaults:  total,
		AverageFPS:   h.monitor.AverageFPS(),
		MemoryRatio:  mem,
		MemoryKnown:  memOK,
		Level:        h.degrader.Level(),
		ContextLost:  h.recovery.Lost(),
		OpenBreakers: h.engine.OpenBreakers(),
	}
}

// ContextLost reports whether the context is currently lost.
func (h *Handler) ContextLost() bool {
	return h.recovery.Lost()
}

// Capabilities returns the cached capability profile. The zero profile
// before Initialize.
func (h *Handler) Capabilities() caps.Capabilities {
	h.mu.Lock()
	detector := h.detector
	h.mu.Unlock()
	if detector == nil {
		return caps.Capabilities{}
	}
	return detector.Detect()
}

// Log exposes the fault log shared by all components.
func (h *Handler) Log() *faultlog.Log { return h.log }

// Compiler exposes the shader compiler bound to the fault log.
func (h *Handler) Compiler() *shaderc.Compiler { return h.compiler }

// Recovery exposes the context-loss recovery manager.
func (h *Handler) Recovery() *recovery.Manager { return h.recovery }

// Monitor exposes the performance monitor.
func (h *Handler) Monitor() *perfmon.Monitor { return h.monitor }

// Degrader exposes the degradation manager.
func (h *Handler) Degrader() *degrade.Manager { return h.degrader }

// Engine exposes the recovery scenario engine.
func (h *Handler) Engine() *scenario.Engine { return h.engine }

// Cleanup tears the Handler down: monitoring stops, recovery detaches,
// an owned context is closed, and all retained state is discarded.
// Idempotent: a second call is a no-op and leaves the same torn-down
// state.
func (h *Handler) Cleanup() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.initialized = false
	ctx := h.ctx
	own := h.ownCtx
	h.ctx = nil
	h.mu.Unlock()

	h.monitor.Stop()
	h.recovery.Detach()
	if own && ctx != nil {
		ctx.Close()
	}
	h.log.Clear()
	h.degrader.Reset()

	if h.logger != nil {
		h.logger.Info("shield cleaned up")
	}
}
