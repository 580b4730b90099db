// Package recovery tracks rendering-context loss and restoration.
//
// The manager is a two-state machine (active/lost) driven by host
// notifications. On loss it snapshots the minimal render state; on
// restoration it replays the snapshot onto the new context and runs the
// registered recovery callbacks in registration order. A failing callback
// is logged and never blocks the remaining ones.
package recovery

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/host"
)

// Callback is invoked after a successful context restoration, in
// registration order. A non-nil error (or a panic) is logged at medium
// severity and does not stop the remaining callbacks.
type Callback func() error

// Manager observes one host context's loss/restore lifecycle.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	ctx      host.Context
	attached bool

	lost         bool
	snapshot     host.RenderState
	haveSnapshot bool

	callbacks []Callback

	log        *faultlog.Log
	logger     *slog.Logger
	onRecovery func(success bool)
}

// NewManager creates a recovery manager reporting to the given fault log.
// onRecovery, when non-nil, observes every restoration outcome.
// A nil logger disables diagnostics.
func NewManager(log *faultlog.Log, logger *slog.Logger, onRecovery func(success bool)) *Manager {
	return &Manager{
		log:        log,
		logger:     logger,
		onRecovery: onRecovery,
	}
}

// Attach wires the manager to a host context's lifecycle notifications.
// Attaching twice is a no-op.
func (m *Manager) Attach(ctx host.Context) {
	m.mu.Lock()
	if m.attached || ctx == nil {
		m.mu.Unlock()
		return
	}
	m.ctx = ctx
	m.attached = true
	m.mu.Unlock()

	ctx.OnLost(m.handleLost)
	ctx.OnRestored(m.handleRestored)
}

// Detach drops the context reference and resets the loss state.
// The host keeps its notification registrations; a detached manager
// simply ignores them.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = nil
	m.attached = false
	m.lost = false
	m.haveSnapshot = false
}

// RegisterCallback adds a recovery callback. Callbacks fire after each
// successful restoration, in registration order.
func (m *Manager) RegisterCallback(fn Callback) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// handleLost is the host loss observer.
func (m *Manager) handleLost(reason string) {
	m.mu.Lock()
	if !m.attached || m.lost {
		m.mu.Unlock()
		return
	}
	m.lost = true
	ctx := m.ctx
	m.mu.Unlock()

	// The context is still inspectable during the notification;
	// capture what a resume will need.
	snap := ctx.CaptureState()

	m.mu.Lock()
	m.snapshot = snap
	m.haveSnapshot = true
	m.mu.Unlock()

	m.log.Log(faultlog.ContextLoss,
		fmt.Sprintf("rendering context lost: %s", reason),
		faultlog.SeverityHigh,
		map[string]any{"reason": reason})

	if m.logger != nil {
		m.logger.Warn("context lost", "reason", reason)
	}
}

// handleRestored is the host restoration observer.
func (m *Manager) handleRestored() {
	m.mu.Lock()
	if !m.attached || !m.lost {
		m.mu.Unlock()
		return
	}
	m.lost = false
	ctx := m.ctx
	snap, haveSnap := m.snapshot, m.haveSnapshot
	m.haveSnapshot = false
	callbacks := append([]Callback(nil), m.callbacks...)
	m.mu.Unlock()

	m.log.Log(faultlog.ContextLoss,
		"rendering context restored",
		faultlog.SeverityMedium, nil)

	if haveSnap {
		ctx.ApplyState(snap)
	}

	success := true
	for _, fn := range callbacks {
		if err := m.runCallback(fn); err != nil {
			success = false
			m.log.Log(faultlog.ContextLoss,
				fmt.Sprintf("recovery callback failed: %v", err),
				faultlog.SeverityMedium, nil)
		}
	}

	if m.logger != nil {
		m.logger.Info("context restored", "callbacks", len(callbacks), "clean", success)
	}
	if m.onRecovery != nil {
		m.onRecovery(success)
	}
}

// runCallback invokes one callback, converting a panic into an error.
func (m *Manager) runCallback(fn Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovery: callback panicked: %v", r)
		}
	}()
	return fn()
}

// Lost reports whether the context is currently lost: either the tracked
// flag or a live host query, whichever indicates loss.
func (m *Manager) Lost() bool {
	m.mu.Lock()
	lost := m.lost
	ctx := m.ctx
	m.mu.Unlock()

	if lost {
		return true
	}
	return ctx != nil && ctx.Lost()
}

// Snapshot returns the captured render state and whether one is held.
func (m *Manager) Snapshot() (host.RenderState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.haveSnapshot
}

// ForceLoss asks the host to simulate a context loss. Returns false when
// no context is attached or the host does not support simulation.
func (m *Manager) ForceLoss() bool {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		return false
	}
	return ctx.ForceLoss()
}

// ForceRestore asks the host to simulate a restoration.
func (m *Manager) ForceRestore() bool {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		return false
	}
	return ctx.ForceRestore()
}
