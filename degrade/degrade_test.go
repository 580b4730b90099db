package degrade

import (
	"fmt"
	"testing"
	"time"

	"github.com/gogpu/shield/caps"
	"github.com/gogpu/shield/faultlog"
)

func newTestManager() (*Manager, *faultlog.Log) {
	log := faultlog.New(faultlog.Config{})
	return NewManager(log, nil, nil), log
}

func highEndCaps() caps.Capabilities {
	return caps.Capabilities{
		Supported:           true,
		Tier:                2,
		MaxTextureSize:      16384,
		MaxVertexAttribs:    16,
		MaxFragmentUniforms: 64,
		Extensions:          []string{"compute-shader", "large-textures", "storage-buffers", "timestamp-query"},
		Renderer:            "NVIDIA GeForce RTX 3080",
		DeviceClass:         "DiscreteGPU",
	}
}

func lowEndCaps() caps.Capabilities {
	return caps.Capabilities{
		Supported:           true,
		Tier:                1,
		MaxTextureSize:      512,
		MaxVertexAttribs:    8,
		MaxFragmentUniforms: 8,
		Renderer:            "software rasterizer",
	}
}

func recentFault(t faultlog.Type, sev faultlog.Severity) faultlog.Fault {
	return faultlog.Fault{Type: t, Severity: sev, Time: time.Now()}
}

func TestDetermineUnsupportedIsDisabled(t *testing.T) {
	m, _ := newTestManager()

	histories := [][]faultlog.Fault{
		nil,
		{recentFault(faultlog.Compilation, faultlog.SeverityLow)},
		{recentFault(faultlog.Memory, faultlog.SeverityHigh)},
	}
	for i, hist := range histories {
		if got := m.Determine(caps.Capabilities{}, hist); got != LevelDisabled {
			t.Errorf("history %d: Determine(unsupported) = %s, want disabled", i, got)
		}
	}
}

func TestDetermineCriticalFaultIsDisabled(t *testing.T) {
	m, _ := newTestManager()
	hist := []faultlog.Fault{recentFault(faultlog.Compilation, faultlog.SeverityCritical)}

	if got := m.Determine(highEndCaps(), hist); got != LevelDisabled {
		t.Errorf("Determine(high-end, critical fault) = %s, want disabled", got)
	}
	if got := m.Determine(lowEndCaps(), hist); got != LevelDisabled {
		t.Errorf("Determine(low-end, critical fault) = %s, want disabled", got)
	}
}

func TestDetermineHighEndNoFaults(t *testing.T) {
	m, _ := newTestManager()
	if got := m.Determine(highEndCaps(), nil); got != LevelNone {
		t.Errorf("Determine(high-end, clean) = %s, want none", got)
	}
}

func TestDetermineLowEndNoFaults(t *testing.T) {
	m, _ := newTestManager()
	got := m.Determine(lowEndCaps(), nil)
	if got != LevelReduced && got != LevelMinimal {
		t.Errorf("Determine(low-end, clean) = %s, want reduced or minimal", got)
	}
}

func TestDetermineFaultsPushLevelDown(t *testing.T) {
	m, _ := newTestManager()

	clean := m.Determine(highEndCaps(), nil)
	noisy := m.Determine(highEndCaps(), []faultlog.Fault{
		recentFault(faultlog.Performance, faultlog.SeverityHigh),
		recentFault(faultlog.Memory, faultlog.SeverityHigh),
		recentFault(faultlog.Compilation, faultlog.SeverityMedium),
	})

	if noisy <= clean {
		t.Errorf("noisy level %s not above clean level %s", noisy, clean)
	}
}

func TestDetermineIsPureAndIgnoresOldFaults(t *testing.T) {
	m, _ := newTestManager()
	now := time.Now()
	m.now = func() time.Time { return now }

	old := faultlog.Fault{
		Type:     faultlog.Performance,
		Severity: faultlog.SeverityHigh,
		Time:     now.Add(-10 * time.Minute),
	}
	hist := []faultlog.Fault{old}

	first := m.Determine(highEndCaps(), hist)
	second := m.Determine(highEndCaps(), hist)
	if first != second {
		t.Errorf("Determine() not stable: %s then %s", first, second)
	}
	if first != LevelNone {
		t.Errorf("faults outside the window shifted the level to %s", first)
	}
	if m.Level() != LevelNone {
		t.Error("Determine() mutated the applied level")
	}
}

func TestApplyRecordsHistory(t *testing.T) {
	m, log := newTestManager()

	st := m.Apply(LevelReduced, "frame rate below target")
	if st.Level != LevelReduced || st.Previous != LevelNone {
		t.Errorf("Apply() = %+v, want reduced with previous none", st)
	}

	st = m.Apply(LevelMinimal, "still degraded")
	if st.Previous != LevelReduced {
		t.Errorf("Previous = %s, want reduced", st.Previous)
	}

	if n := len(m.History()); n != 2 {
		t.Errorf("history length = %d, want 2", n)
	}
	if log.Stats()["performance_medium"] != 2 {
		t.Error("non-terminal applications should log at medium severity")
	}
}

func TestApplyDisabledLogsHigh(t *testing.T) {
	m, log := newTestManager()
	m.Apply(LevelDisabled, "cascading failures")

	if log.Stats()["performance_high"] != 1 {
		t.Error("disabled application should log at high severity")
	}
}

func TestHistoryBounded(t *testing.T) {
	m, _ := newTestManager()
	for i := 0; i < 30; i++ {
		m.Apply(LevelReduced, fmt.Sprintf("apply %d", i))
	}

	hist := m.History()
	if len(hist) != HistoryCapacity {
		t.Fatalf("history length = %d, want %d", len(hist), HistoryCapacity)
	}
	if hist[len(hist)-1].Reason != "apply 29" {
		t.Errorf("newest entry = %q, want %q", hist[len(hist)-1].Reason, "apply 29")
	}
}

func TestDisabledIsTerminal(t *testing.T) {
	m, _ := newTestManager()
	m.Apply(LevelDisabled, "critical fault")

	st := m.Apply(LevelNone, "trying to sneak back")
	if st.Level != LevelDisabled {
		t.Errorf("Apply(none) while disabled returned level %s", st.Level)
	}
	if m.Level() != LevelDisabled {
		t.Errorf("Level() = %s, want disabled", m.Level())
	}

	m.Reset()
	if m.Level() != LevelNone {
		t.Errorf("Level() after Reset = %s, want none", m.Level())
	}
	if len(m.History()) != 0 {
		t.Error("Reset did not clear history")
	}
}

func TestCanReduce(t *testing.T) {
	m, _ := newTestManager()
	now := time.Now()
	m.now = func() time.Time { return now }

	if m.CanReduce() {
		t.Error("CanReduce() = true at level none")
	}

	m.Apply(LevelReduced, "degraded")
	if m.CanReduce() {
		t.Error("CanReduce() = true immediately after an application")
	}

	now = now.Add(4 * time.Minute)
	if m.CanReduce() {
		t.Error("CanReduce() = true inside the quiet window")
	}

	now = now.Add(2 * time.Minute)
	if !m.CanReduce() {
		t.Error("CanReduce() = false after a quiet window")
	}
}

func TestConfigDisabledZeroesAnimation(t *testing.T) {
	c := ConfigFor(LevelDisabled)
	if c.ParticleCount != 0 {
		t.Errorf("ParticleCount = %d, want 0", c.ParticleCount)
	}
	if c.AnimationSpeed != 0 {
		t.Errorf("AnimationSpeed = %v, want 0", c.AnimationSpeed)
	}
	if c.InteractionEnabled {
		t.Error("InteractionEnabled = true")
	}
	if c.RenderScale != 0 {
		t.Errorf("RenderScale = %v, want 0", c.RenderScale)
	}
	if c.ComplexEffects {
		t.Error("ComplexEffects = true")
	}
}

func TestConfigBudgetsStrictlyDecrease(t *testing.T) {
	levels := []Level{LevelNone, LevelReduced, LevelMinimal, LevelDisabled}
	for i := 1; i < len(levels); i++ {
		hi := ConfigFor(levels[i-1])
		lo := ConfigFor(levels[i])
		if lo.ParticleCount >= hi.ParticleCount {
			t.Errorf("%s particle count %d not below %s's %d",
				levels[i], lo.ParticleCount, levels[i-1], hi.ParticleCount)
		}
		if lo.AnimationSpeed >= hi.AnimationSpeed {
			t.Errorf("%s animation speed not below %s's", levels[i], levels[i-1])
		}
		if lo.RenderScale >= hi.RenderScale {
			t.Errorf("%s render scale not below %s's", levels[i], levels[i-1])
		}
	}
}

func TestManagerConfigTracksLevel(t *testing.T) {
	m, _ := newTestManager()
	if m.Config() != ConfigFor(LevelNone) {
		t.Error("Config() at start != none tier")
	}
	m.Apply(LevelMinimal, "x")
	if m.Config() != ConfigFor(LevelMinimal) {
		t.Error("Config() after Apply != minimal tier")
	}
}

func TestOnFallbackObserver(t *testing.T) {
	log := faultlog.New(faultlog.Config{})
	var seen []Level
	m := NewManager(log, nil, func(st State) { seen = append(seen, st.Level) })

	m.Apply(LevelReduced, "a")
	m.Apply(LevelDisabled, "b")
	m.Apply(LevelNone, "blocked while disabled")

	if len(seen) != 2 || seen[0] != LevelReduced || seen[1] != LevelDisabled {
		t.Errorf("observer saw %v, want [reduced disabled]", seen)
	}
}
