// Package degrade turns a capability profile and recent fault history into
// a discrete fallback level, and maps each level onto the parameter bundle
// the renderer consumes.
//
// Levels only escalate within an evaluation; the disabled level is
// terminal and is cleared only by an explicit Reset. De-escalation happens
// across evaluations, guarded by CanReduce's quiet-window check, so the
// effect never oscillates between tiers.
package degrade

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/shield/caps"
	"github.com/gogpu/shield/faultlog"
)

// Level is a discrete fallback tier, escalating from none to disabled.
type Level int

// Fallback levels.
const (
	// LevelNone runs the full effect.
	LevelNone Level = iota

	// LevelReduced lowers budgets but keeps all features.
	LevelReduced

	// LevelMinimal keeps a token effect: few particles, simple shader,
	// no interaction.
	LevelMinimal

	// LevelDisabled zeroes all animated output. Terminal: cleared only
	// by Reset.
	LevelDisabled
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelReduced:
		return "reduced"
	case LevelMinimal:
		return "minimal"
	case LevelDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// State records one fallback application.
type State struct {
	// Level is the applied fallback tier.
	Level Level

	// Reason explains why the level was applied.
	Reason string

	// Time is when the level was applied.
	Time time.Time

	// Previous is the level in effect before this application.
	Previous Level
}

// HistoryCapacity bounds the retained fallback history.
const HistoryCapacity = 20

// quietWindow is how long the fault history must stay quiet before a
// fallback may be reduced again.
const quietWindow = 5 * time.Minute

// Combined-score thresholds (see Determine).
const (
	disableBelow = 0.2
	minimalBelow = 0.4
	reducedBelow = 0.7
)

// referenceExtensions is the feature set extension coverage is scored
// against.
var referenceExtensions = []string{
	"compute-shader",
	"large-textures",
	"storage-buffers",
	"timestamp-query",
}

// Manager owns the current fallback level and its bounded history.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	level   Level
	history []State

	lastApplied time.Time
	haveApplied bool

	log        *faultlog.Log
	logger     *slog.Logger
	onFallback func(State)

	now func() time.Time
}

// NewManager creates a manager at LevelNone.
// onFallback, when non-nil, observes every applied state.
// A nil logger disables diagnostics.
func NewManager(log *faultlog.Log, logger *slog.Logger, onFallback func(State)) *Manager {
	return &Manager{
		log:        log,
		logger:     logger,
		onFallback: onFallback,
		now:        time.Now,
	}
}

// Determine computes the fallback level for a capability profile and fault
// history. For a fixed clock it is a pure function of its two inputs; it
// does not change the applied level (see Apply).
//
// Hard gates first: any critical fault, or an unsupported profile, yields
// LevelDisabled. Otherwise the level follows combinedScore =
// deviceScore - errorScore against fixed thresholds.
func (m *Manager) Determine(c caps.Capabilities, history []faultlog.Fault) Level {
	for _, f := range history {
		if f.Severity == faultlog.SeverityCritical {
			return LevelDisabled
		}
	}
	if !c.Supported {
		return LevelDisabled
	}

	score := deviceScore(c) - m.errorScore(history)
	switch {
	case score < disableBelow:
		return LevelDisabled
	case score < minimalBelow:
		return LevelMinimal
	case score < reducedBelow:
		return LevelReduced
	default:
		return LevelNone
	}
}

// deviceScore grades the capability profile in [0, 1].
// Weights: tier 0.3, texture size 0.2, fragment uniforms 0.2, vertex
// attribs 0.1, extension coverage 0.1, device-class heuristic 0.1.
func deviceScore(c caps.Capabilities) float64 {
	score := 0.0

	switch {
	case c.Tier >= 2:
		score += 0.3
	case c.Tier == 1:
		score += 0.15
	}

	switch {
	case c.MaxTextureSize >= 8192:
		score += 0.2
	case c.MaxTextureSize >= 4096:
		score += 0.15
	case c.MaxTextureSize >= 2048:
		score += 0.1
	case c.MaxTextureSize >= 1024:
		score += 0.05
	}

	switch {
	case c.MaxFragmentUniforms >= 64:
		score += 0.2
	case c.MaxFragmentUniforms >= 32:
		score += 0.15
	case c.MaxFragmentUniforms >= 16:
		score += 0.1
	case c.MaxFragmentUniforms >= 8:
		score += 0.05
	}

	switch {
	case c.MaxVertexAttribs >= 16:
		score += 0.1
	case c.MaxVertexAttribs >= 8:
		score += 0.05
	}

	covered := 0
	for _, ref := range referenceExtensions {
		if c.HasExtension(ref) {
			covered++
		}
	}
	score += 0.1 * float64(covered) / float64(len(referenceExtensions))

	score += deviceClassScore(c)

	if score > 1 {
		score = 1
	}
	return score
}

// deviceClassScore grades the discrete/integrated heuristic from the
// renderer and device-class strings.
func deviceClassScore(c caps.Capabilities) float64 {
	id := strings.ToLower(c.Renderer + " " + c.DeviceClass)
	switch {
	case strings.Contains(id, "discrete"),
		strings.Contains(id, "nvidia"),
		strings.Contains(id, "geforce"),
		strings.Contains(id, "radeon rx"),
		strings.Contains(id, "rtx"):
		return 0.1
	case strings.Contains(id, "integrated"),
		strings.Contains(id, "intel"),
		strings.Contains(id, "apple"):
		return 0.05
	default:
		// Software rasterizers and unknown adapters score nothing.
		return 0
	}
}

// errorScore grades recent fault pressure in [0, 1]: weighted high/medium
// counts, overall rate over the last five minutes, and type diversity.
func (m *Manager) errorScore(history []faultlog.Fault) float64 {
	cutoff := m.now().Add(-quietWindow)

	highs, mediums, total := 0, 0, 0
	types := make(map[faultlog.Type]struct{})
	for _, f := range history {
		if f.Time.Before(cutoff) {
			continue
		}
		total++
		types[f.Type] = struct{}{}
		switch f.Severity {
		case faultlog.SeverityHigh:
			highs++
		case faultlog.SeverityMedium:
			mediums++
		}
	}

	score := 0.2*float64(highs) + 0.1*float64(mediums)

	// Overall rate: ten faults in five minutes maxes this term.
	rate := float64(total) / 10
	if rate > 1 {
		rate = 1
	}
	score += 0.2 * rate

	if len(types) > 1 {
		score += 0.05 * float64(len(types)-1)
	}

	if score > 1 {
		score = 1
	}
	return score
}

// Apply records a fallback state at the given level and returns it.
//
// Disabled is terminal: applying a lower level while disabled is refused
// and the current state is returned unchanged; only Reset clears disabled.
func (m *Manager) Apply(level Level, reason string) State {
	m.mu.Lock()

	if m.level == LevelDisabled && level != LevelDisabled {
		st := m.currentStateLocked()
		m.mu.Unlock()
		return st
	}

	st := State{
		Level:    level,
		Reason:   reason,
		Time:     m.now(),
		Previous: m.level,
	}
	m.level = level
	m.lastApplied = st.Time
	m.haveApplied = true

	m.history = append(m.history, st)
	if len(m.history) > HistoryCapacity {
		over := len(m.history) - HistoryCapacity
		m.history = append(m.history[:0], m.history[over:]...)
	}
	onFallback := m.onFallback
	m.mu.Unlock()

	sev := faultlog.SeverityMedium
	if level == LevelDisabled {
		sev = faultlog.SeverityHigh
	}
	m.log.Log(faultlog.Performance,
		fmt.Sprintf("fallback applied: %s (%s)", level, reason),
		sev,
		map[string]any{"level": level.String(), "previous": st.Previous.String()})

	if m.logger != nil {
		m.logger.Info("fallback applied", "level", level.String(), "reason", reason)
	}
	if onFallback != nil {
		onFallback(st)
	}
	return st
}

// currentStateLocked returns the newest history entry, or a synthetic
// state at the current level when history is empty.
func (m *Manager) currentStateLocked() State {
	if len(m.history) > 0 {
		return m.history[len(m.history)-1]
	}
	return State{Level: m.level, Time: m.now(), Previous: m.level}
}

// Level returns the currently applied fallback level.
func (m *Manager) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// History returns a copy of the fallback history, oldest first.
func (m *Manager) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

// CanReduce reports whether the fallback may be lowered: only when some
// fallback is in effect and none was applied within the quiet window.
// Deliberately conservative to avoid oscillation.
func (m *Manager) CanReduce() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level == LevelNone {
		return false
	}
	if !m.haveApplied {
		return true
	}
	return m.now().Sub(m.lastApplied) >= quietWindow
}

// Reset returns to LevelNone and clears the history. This is the only way
// out of LevelDisabled.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = LevelNone
	m.history = m.history[:0]
	m.haveApplied = false
}
