// Package scenario implements the named recovery policies built on top of
// the fault log, degradation manager, and performance monitor: circuit
// breaking, exponential-backoff retry, memory-pressure scaling with trend
// prediction, performance response with adaptive targets, cascading-failure
// detection, and the shader-compilation recovery ladder.
package scenario

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/shield/degrade"
	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/perfmon"
)

// Engine evaluates recovery policies against the shared component state.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	log    *faultlog.Log
	degr   *degrade.Manager
	mon    *perfmon.Monitor
	logger *slog.Logger

	breakers map[string]*breaker

	// compileBudget is the remaining shader-recovery attempts for this
	// session.
	compileBudget int

	// memSamples is the short history backing trend prediction.
	memSamples []memSample

	// memBand is the pressure band last reported to the fault log, so
	// per-frame adjustment stays silent while pressure holds steady.
	memBand memPressureBand

	// Injection points for deterministic tests.
	now       func() time.Time
	sleep     func(time.Duration)
	coreCount func() int
}

// compileBudgetPerSession caps shader-recovery attempts for one mounted
// effect.
const compileBudgetPerSession = 3

// NewEngine creates a scenario engine over the given components.
// A nil logger disables diagnostics.
func NewEngine(log *faultlog.Log, degr *degrade.Manager, mon *perfmon.Monitor, logger *slog.Logger) *Engine {
	return &Engine{
		log:           log,
		degr:          degr,
		mon:           mon,
		logger:        logger,
		breakers:      make(map[string]*breaker),
		compileBudget: compileBudgetPerSession,
		now:           time.Now,
		sleep:         time.Sleep,
		coreCount:     systemCoreCount,
	}
}
