package scenario

import (
	"time"

	"github.com/gogpu/shield/faultlog"
)

// Cascading-failure tuning.
const (
	cascadeCriticalWindow = 5 * time.Minute
	cascadeCriticalCount  = 2
	cascadeHighTotal      = 8
	cascadeHighEscalating = 5
)

// Pattern kinds recognized by AnalyzePattern.
const (
	PatternNone       = "none"
	PatternEscalating = "escalating"
	PatternRepeating  = "repeating"
	PatternBurst      = "burst"
)

// Pattern describes the shape of the recent fault sequence. Confidence
// is a secondary signal in [0.1, 1.0]; it never gates a disable
// decision on its own.
type Pattern struct {
	Kind       string
	Confidence float64
}

// ShouldDisable reports whether the fault history indicates a cascading
// failure that outpaces incremental degradation. It fires when two or
// more critical faults landed within the last five minutes, when the
// retained high-severity count reaches cascadeHighTotal, or when the
// fault rate is escalating across nested windows while high-severity
// faults have accumulated.
func (e *Engine) ShouldDisable() (bool, string) {
	faults := e.log.Snapshot()
	now := e.now()

	criticals := 0
	highs := 0
	cutoff := now.Add(-cascadeCriticalWindow)
	for _, f := range faults {
		switch f.Severity {
		case faultlog.SeverityCritical:
			if !f.Time.Before(cutoff) {
				criticals++
			}
		case faultlog.SeverityHigh:
			highs++
		}
	}

	if criticals >= cascadeCriticalCount {
		return true, "repeated critical faults"
	}
	if highs >= cascadeHighTotal {
		return true, "accumulated high-severity faults"
	}
	if highs >= cascadeHighEscalating && escalating(faults, now) {
		return true, "escalating fault rate"
	}
	return false, ""
}

// escalating reports whether the per-minute fault rate in the last
// minute exceeds the rate over the last two minutes, which in turn
// exceeds the rate over the last three.
func escalating(faults []faultlog.Fault, now time.Time) bool {
	rate := func(window time.Duration) float64 {
		cutoff := now.Add(-window)
		count := 0
		for _, f := range faults {
			if !f.Time.Before(cutoff) {
				count++
			}
		}
		return float64(count) / window.Minutes()
	}

	r1 := rate(1 * time.Minute)
	r2 := rate(2 * time.Minute)
	r3 := rate(3 * time.Minute)
	return r1 > r2 && r2 > r3 && r1 > 0
}

// AnalyzePattern classifies the fault sequence of the last five minutes.
// Burst takes precedence over repetition, repetition over escalation:
// a tight cluster is the strongest signal of a single underlying cause.
func (e *Engine) AnalyzePattern() Pattern {
	now := e.now()
	recent := e.log.Recent("", cascadeCriticalWindow)
	if len(recent) < 3 {
		return Pattern{Kind: PatternNone, Confidence: 0.1}
	}

	span := recent[len(recent)-1].Time.Sub(recent[0].Time)
	if span <= 10*time.Second {
		conf := clampConfidence(float64(len(recent)) / 10)
		return Pattern{Kind: PatternBurst, Confidence: conf}
	}

	byType := make(map[faultlog.Type]int)
	for _, f := range recent {
		byType[f.Type]++
	}
	for _, count := range byType {
		share := float64(count) / float64(len(recent))
		if count >= 3 && share >= 0.6 {
			return Pattern{Kind: PatternRepeating, Confidence: clampConfidence(share)}
		}
	}

	if escalating(recent, now) {
		conf := clampConfidence(float64(len(recent)) / float64(cascadeHighTotal))
		return Pattern{Kind: PatternEscalating, Confidence: conf}
	}

	return Pattern{Kind: PatternNone, Confidence: 0.1}
}

func clampConfidence(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1 {
		return 1
	}
	return v
}
