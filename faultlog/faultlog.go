// Package faultlog provides a bounded, categorized log of rendering faults.
//
// Every component in shield reports faults here instead of returning errors
// to the frame loop: a decorative effect must never take the host
// application down with it. The log keeps the most recent entries in a
// fixed-capacity ring and exposes the recent-history views the degradation
// and scenario layers evaluate.
package faultlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Type categorizes a fault by its origin.
type Type string

// Fault types.
const (
	// Compilation is a shader compile or link failure.
	Compilation Type = "compilation"

	// ContextLoss is a rendering-context loss event.
	ContextLoss Type = "context_loss"

	// Unavailable means no usable GPU device is present at all.
	Unavailable Type = "gpu_unavailable"

	// Performance is a sustained frame-rate shortfall.
	Performance Type = "performance"

	// Memory is memory pressure reported by the host.
	Memory Type = "memory"

	// Unknown covers faults with no better classification.
	Unknown Type = "unknown"
)

// Severity grades a fault. It is assigned by the raising component,
// never inferred here.
type Severity int

// Severity levels, in escalating order.
const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Fault is one logged fault. Immutable once created.
type Fault struct {
	// Type is the fault category.
	Type Type

	// Message is a human-readable description.
	Message string

	// Time is when the fault was logged.
	Time time.Time

	// Severity is the grade assigned by the raising component.
	Severity Severity

	// Recoverable is derived from Type and Severity via a fixed policy:
	// critical faults and missing-GPU faults are never recoverable.
	Recoverable bool

	// Context carries optional diagnostic details.
	Context map[string]any
}

// DefaultCapacity is the ring capacity used when Config.Capacity is unset.
const DefaultCapacity = 100

// Config configures a Log.
type Config struct {
	// Capacity is the maximum number of retained faults.
	// DefaultCapacity is used when <= 0.
	Capacity int

	// Logger is the diagnostic sink. Nil disables diagnostic output.
	Logger *slog.Logger

	// OnFault, when set, observes every logged fault. A panicking
	// observer is contained and does not affect the log.
	OnFault func(Fault)

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// Log is a bounded FIFO fault log.
//
// The ring never exceeds its capacity; once full, logging a new fault
// evicts the oldest one. Log is safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	entries  []Fault
	capacity int
	logger   *slog.Logger
	onFault  func(Fault)

	// now is replaced in tests for deterministic windows.
	now func() time.Time
}

// New creates a fault log.
func New(cfg Config) *Log {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Log{
		entries:  make([]Fault, 0, capacity),
		capacity: capacity,
		logger:   cfg.Logger,
		onFault:  cfg.OnFault,
		now:      now,
	}
}

// recoverable is the fixed recoverability policy.
func recoverable(t Type, s Severity) bool {
	if s == SeverityCritical {
		return false
	}
	switch t {
	case Unavailable:
		return false
	case Compilation, ContextLoss, Performance, Memory:
		return true
	default:
		return false
	}
}

// Log records a fault and returns it. It never fails and never panics:
// observer panics are contained here.
func (l *Log) Log(t Type, msg string, sev Severity, details map[string]any) Fault {
	f := Fault{
		Type:        t,
		Message:     msg,
		Severity:    sev,
		Recoverable: recoverable(t, sev),
		Context:     details,
	}

	l.mu.Lock()
	f.Time = l.now()
	l.entries = append(l.entries, f)
	if len(l.entries) > l.capacity {
		// FIFO eviction: drop the oldest entries.
		over := len(l.entries) - l.capacity
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
	logger := l.logger
	onFault := l.onFault
	l.mu.Unlock()

	if logger != nil {
		logger.Log(context.Background(), slogLevel(sev), "fault logged",
			"type", string(t),
			"severity", sev.String(),
			"recoverable", f.Recoverable,
			"msg", msg)
	}

	if onFault != nil {
		func() {
			defer func() { _ = recover() }()
			onFault(f)
		}()
	}

	return f
}

// slogLevel maps fault severity onto the gg logging levels.
func slogLevel(s Severity) slog.Level {
	switch s {
	case SeverityLow:
		return slog.LevelDebug
	case SeverityMedium:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Recent returns faults of the given type no older than maxAge,
// oldest first. An empty type matches every fault.
func (l *Log) Recent(t Type, maxAge time.Duration) []Fault {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	var out []Fault
	for _, f := range l.entries {
		if f.Time.Before(cutoff) {
			continue
		}
		if t != "" && f.Type != t {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Snapshot returns a copy of the full retained history, oldest first.
func (l *Log) Snapshot() []Fault {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Fault, len(l.entries))
	copy(out, l.entries)
	return out
}

// RateExceeded reports whether more than threshold faults of the given
// type were logged within the window. An empty type matches every fault.
func (l *Log) RateExceeded(t Type, window time.Duration, threshold int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	count := 0
	for _, f := range l.entries {
		if f.Time.Before(cutoff) {
			continue
		}
		if t != "" && f.Type != t {
			continue
		}
		count++
		if count > threshold {
			return true
		}
	}
	return false
}

// Stats returns retained fault counts keyed "type_severity"
// (e.g. "compilation_medium").
func (l *Log) Stats() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[string]int)
	for _, f := range l.entries {
		stats[string(f.Type)+"_"+f.Severity.String()]++
	}
	return stats
}

// Len returns the number of retained faults.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear discards all retained faults.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
