package scenario

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/gogpu/shield/degrade"
	"github.com/gogpu/shield/faultlog"
)

const (
	// minTargetFPS is the floor below which the adaptive target never drops.
	minTargetFPS = 15

	// perfHealthyFraction matches the monitor's degradation cutoff:
	// no adjustment while actual fps stays at or above this fraction
	// of target.
	perfHealthyFraction = 0.8
)

// AdaptiveTargetFPS lowers base for constrained hosts: few logical cores
// or a high device pixel ratio both cost frame budget. Never returns
// less than minTargetFPS.
func (e *Engine) AdaptiveTargetFPS(base float64, pixelRatio float64) float64 {
	target := base

	cores := e.coreCount()
	switch {
	case cores > 0 && cores <= 2:
		target *= 0.5
	case cores > 0 && cores <= 4:
		target *= 0.75
	}

	if pixelRatio >= 3 {
		target *= 0.75
	} else if pixelRatio >= 2 {
		target *= 0.9
	}

	if target < minTargetFPS {
		target = minTargetFPS
	}
	return target
}

// AdjustForPerformance scales cfg in proportion to how far the measured
// frame rate has fallen below target. At or above 80% of target the
// config is returned unchanged.
func (e *Engine) AdjustForPerformance(cfg degrade.Config, actualFPS, targetFPS float64) degrade.Config {
	if targetFPS <= 0 || actualFPS <= 0 {
		return cfg
	}

	ratio := actualFPS / targetFPS
	if ratio >= perfHealthyFraction {
		return cfg
	}
	if ratio < 0.1 {
		ratio = 0.1
	}

	adjusted := cfg
	adjusted.ParticleCount = int(float64(cfg.ParticleCount) * ratio)
	adjusted.RenderScale = cfg.RenderScale * ratio
	adjusted.AnimationSpeed = cfg.AnimationSpeed * ratio
	if ratio < 0.5 {
		adjusted.ComplexEffects = false
	}

	e.log.Log(faultlog.Performance,
		fmt.Sprintf("frame rate %.1f below target %.1f, scaling by %.2f", actualFPS, targetFPS, ratio),
		faultlog.SeverityMedium,
		map[string]any{"actual": actualFPS, "target": targetFPS, "ratio": ratio})
	return adjusted
}

// systemCoreCount reports the host's logical CPU count, falling back to
// the runtime's view when gopsutil cannot answer.
func systemCoreCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
