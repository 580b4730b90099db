package scenario

import (
	"fmt"
	"time"

	"github.com/gogpu/shield/degrade"
	"github.com/gogpu/shield/faultlog"
)

// Memory-pressure tuning. Soft thresholds start proportional shrinking;
// hard thresholds additionally disable complex effects and interaction.
// Lower tiers get tighter thresholds: a host that already degraded has
// less headroom to spend.
const (
	memHistoryCap = 10

	// predictHorizon is how far ahead the trend extrapolation looks.
	predictHorizon = 5 * time.Second
)

// memSample is one observed memory-pressure ratio.
type memSample struct {
	ratio float64
	at    time.Time
}

// memPressureBand is the pressure regime an effective ratio falls in.
type memPressureBand int

const (
	memBandNormal memPressureBand = iota
	memBandSoft
	memBandHard
)

func memThresholds(level degrade.Level) (soft, hard float64) {
	switch level {
	case degrade.LevelMinimal:
		return 0.6, 0.75
	case degrade.LevelReduced:
		return 0.65, 0.8
	default:
		return 0.7, 0.85
	}
}

// ObserveMemory records a memory-pressure ratio for trend prediction.
// Ratios outside [0, 1] are clamped.
func (e *Engine) ObserveMemory(ratio float64) {
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.memSamples = append(e.memSamples, memSample{ratio: ratio, at: e.now()})
	if len(e.memSamples) > memHistoryCap {
		e.memSamples = e.memSamples[len(e.memSamples)-memHistoryCap:]
	}
}

// PredictedMemory extrapolates the observed memory trend predictHorizon
// ahead using a least-squares fit over the recorded samples. With fewer
// than two samples it returns the last observation (or 0, false with
// none). The result is clamped to [0, 1].
func (e *Engine) PredictedMemory() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.predictLocked()
}

func (e *Engine) predictLocked() (float64, bool) {
	n := len(e.memSamples)
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return e.memSamples[0].ratio, true
	}

	base := e.memSamples[0].at
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range e.memSamples {
		x := s.at.Sub(base).Seconds()
		y := s.ratio
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return e.memSamples[n-1].ratio, true
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	x := e.now().Add(predictHorizon).Sub(base).Seconds()
	predicted := intercept + slope*x
	if predicted < 0 {
		predicted = 0
	} else if predicted > 1 {
		predicted = 1
	}
	return predicted, true
}

// AdjustForMemory scales cfg for the given memory-pressure ratio.
//
// The effective pressure is the worse of the observed ratio and the
// short-horizon prediction, so a steep upward trend triggers shrinking
// before the hard threshold is actually crossed. Below the soft
// threshold cfg is returned unchanged; between soft and hard the
// particle count, render scale, and animation speed shrink
// proportionally with remaining headroom; at or past the hard threshold
// complex effects and interaction are disabled too.
func (e *Engine) AdjustForMemory(cfg degrade.Config, ratio float64) degrade.Config {
	level := degrade.LevelNone
	if e.degr != nil {
		level = e.degr.Level()
	}

	e.mu.Lock()
	predicted, ok := e.predictLocked()
	e.mu.Unlock()

	effective := ratio
	if ok && predicted > effective {
		effective = predicted
	}

	soft, hard := memThresholds(level)
	if effective < soft {
		e.setMemBand(memBandNormal, ratio, effective, 1)
		return cfg
	}

	// Headroom fraction left between the effective pressure and
	// exhaustion, relative to the headroom at the soft threshold.
	factor := (1 - effective) / (1 - soft)
	if factor < 0.1 {
		factor = 0.1
	}

	adjusted := cfg
	adjusted.ParticleCount = int(float64(cfg.ParticleCount) * factor)
	adjusted.RenderScale = cfg.RenderScale * factor
	adjusted.AnimationSpeed = cfg.AnimationSpeed * factor

	band := memBandSoft
	if effective >= hard {
		adjusted.ComplexEffects = false
		adjusted.InteractionEnabled = false
		band = memBandHard
	}

	e.setMemBand(band, ratio, effective, factor)
	return adjusted
}

// setMemBand records the current pressure band and logs a fault only on
// the transition into a worse band. Adjustment runs once per frame, so
// logging every call would flood the fault log and count sustained but
// stable pressure as a cascade of distinct faults.
func (e *Engine) setMemBand(band memPressureBand, ratio, effective, factor float64) {
	e.mu.Lock()
	prev := e.memBand
	e.memBand = band
	e.mu.Unlock()

	if band <= prev || band == memBandNormal {
		return
	}

	sev := faultlog.SeverityMedium
	if band == memBandHard {
		sev = faultlog.SeverityHigh
	}
	e.log.Log(faultlog.Memory,
		fmt.Sprintf("memory pressure %.2f (effective %.2f), scaling by %.2f", ratio, effective, factor),
		sev,
		map[string]any{"ratio": ratio, "effective": effective, "factor": factor})
}
