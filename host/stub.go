// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import "sync"

func init() {
	Register(ContextStub, func() Context { return NewStub() })
}

// Stub is a deterministic in-memory Context with no GPU behind it.
//
// It reports a fixed mid-range capability profile by default and supports
// the full loss-simulation surface (ForceLoss/ForceRestore), which makes it
// the reference implementation for recovery tests and the fallback when no
// real device is available.
//
// Stub is safe for concurrent use.
type Stub struct {
	mu sync.Mutex

	initialized bool
	supported   bool
	lost        bool

	limits   Limits
	info     Info
	features []string

	state RenderState

	onLost     []func(reason string)
	onRestored []func()
}

// NewStub creates a stub context with a mid-range capability profile.
func NewStub() *Stub {
	return &Stub{
		supported: true,
		limits: Limits{
			MaxTextureSize:      4096,
			MaxVertexAttribs:    16,
			MaxFragmentUniforms: 12,
			MaxBindGroups:       4,
			MaxBufferSize:       256 * 1024 * 1024,
		},
		info: Info{
			Renderer:    "shield stub renderer",
			Vendor:      "gogpu",
			DeviceClass: "CPU",
			Tier:        1,
		},
		features: []string{"compute-shader"},
		state:    DefaultRenderState(),
	}
}

// Name returns the context identifier.
func (s *Stub) Name() string { return ContextStub }

// Init marks the stub initialized. It never fails.
func (s *Stub) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

// Close resets the stub to its uninitialized state.
func (s *Stub) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.lost = false
	s.onLost = nil
	s.onRestored = nil
}

// Supported reports whether the stub pretends a device is present.
func (s *Stub) Supported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supported
}

// SetSupported overrides device presence. Useful for unsupported-host tests.
func (s *Stub) SetSupported(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supported = v
}

// Limits returns the configured limits.
func (s *Stub) Limits() Limits {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supported {
		return Limits{}
	}
	return s.limits
}

// SetLimits overrides the capability limits.
func (s *Stub) SetLimits(l Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = l
}

// Info returns the configured adapter identity.
func (s *Stub) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supported {
		return Info{}
	}
	return s.info
}

// SetInfo overrides the adapter identity.
func (s *Stub) SetInfo(i Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = i
}

// Features returns the configured feature names.
func (s *Stub) Features() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supported {
		return nil
	}
	out := make([]string, len(s.features))
	copy(out, s.features)
	return out
}

// SetFeatures overrides the feature names.
func (s *Stub) SetFeatures(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = append([]string(nil), names...)
}

// Lost reports whether the stub is in the lost state.
func (s *Stub) Lost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
}

// CaptureState returns the current render state.
func (s *Stub) CaptureState() RenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ApplyState replaces the current render state.
func (s *Stub) ApplyState(st RenderState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// OnLost registers a loss observer.
func (s *Stub) OnLost(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLost = append(s.onLost, fn)
}

// OnRestored registers a restoration observer.
func (s *Stub) OnRestored(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRestored = append(s.onRestored, fn)
}

// ForceLoss simulates a context loss. Observers run in registration order
// while the pre-loss state is still capturable; afterwards the state resets
// to default, as a recreated context would. Restoration replays whatever
// the recovery layer captured.
func (s *Stub) ForceLoss() bool {
	s.mu.Lock()
	if s.lost {
		s.mu.Unlock()
		return false
	}
	s.lost = true
	observers := make([]func(reason string), len(s.onLost))
	copy(observers, s.onLost)
	s.mu.Unlock()

	for _, fn := range observers {
		fn("forced loss")
	}

	s.mu.Lock()
	s.state = DefaultRenderState()
	s.mu.Unlock()
	return true
}

// ForceRestore simulates a context restoration after ForceLoss.
func (s *Stub) ForceRestore() bool {
	s.mu.Lock()
	if !s.lost {
		s.mu.Unlock()
		return false
	}
	s.lost = false
	observers := make([]func(), len(s.onRestored))
	copy(observers, s.onRestored)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	return true
}
