// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hostgpu

import (
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shield/host"
)

// ProviderConfig describes an externally-owned device. Zero-valued
// fields are filled with conservative defaults: the owner of the device
// knows its real limits, shield does not probe through gpucontext.
type ProviderConfig struct {
	Limits   host.Limits
	Info     host.Info
	Features []string
}

// ProviderContext is a host.Context over a device shield does not own.
// The embedding application keeps the device's lifetime and delivers
// loss/restore events through NotifyLost and NotifyRestored; Close
// detaches without destroying anything.
//
// Safe for concurrent use.
type ProviderContext struct {
	mu sync.Mutex

	provider gpucontext.DeviceProvider
	limits   host.Limits
	info     host.Info
	features []string
	state    host.RenderState

	initialized bool
	lost        bool

	onLost     []func(reason string)
	onRestored []func()
}

// NewFromProvider wraps an externally-owned device.
func NewFromProvider(p gpucontext.DeviceProvider, cfg ProviderConfig) *ProviderContext {
	limits := cfg.Limits
	if limits == (host.Limits{}) {
		limits = host.Limits{
			MaxTextureSize:      4096,
			MaxVertexAttribs:    16,
			MaxFragmentUniforms: 12,
			MaxBindGroups:       4,
		}
	}
	info := cfg.Info
	if info == (host.Info{}) {
		info = host.Info{Renderer: "external", Tier: 2}
	}
	features := cfg.Features
	if features == nil {
		features = []string{"compute-shader"}
	}
	return &ProviderContext{
		provider: p,
		limits:   limits,
		info:     info,
		features: features,
		state:    host.DefaultRenderState(),
	}
}

// Name returns the context identifier.
func (p *ProviderContext) Name() string { return host.ContextWGPU }

// Init validates that the provider carries a live device.
func (p *ProviderContext) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if p.provider == nil || p.provider.Device() == nil {
		return host.ErrContextNotAvailable
	}
	p.initialized = true
	return nil
}

// Close detaches from the provider. The device is owned elsewhere and is
// left untouched.
func (p *ProviderContext) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = false
	p.provider = nil
}

// Supported reports whether the provider still carries a live device.
func (p *ProviderContext) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized && p.provider != nil && p.provider.Device() != nil
}

// Limits returns the configured device limits.
func (p *ProviderContext) Limits() host.Limits {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits
}

// Info returns the configured adapter identity.
func (p *ProviderContext) Info() host.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Features returns the configured feature names.
func (p *ProviderContext) Features() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.features))
	copy(out, p.features)
	return out
}

// Lost reports whether a loss notification is pending restoration.
func (p *ProviderContext) Lost() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lost
}

// CaptureState returns the mirrored render state.
func (p *ProviderContext) CaptureState() host.RenderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ApplyState replays a render-state snapshot.
func (p *ProviderContext) ApplyState(s host.RenderState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// OnLost registers an observer for loss notifications.
func (p *ProviderContext) OnLost(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLost = append(p.onLost, fn)
}

// OnRestored registers an observer for restoration notifications.
func (p *ProviderContext) OnRestored(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRestored = append(p.onRestored, fn)
}

// NotifyLost delivers a device-loss event from the device's owner.
func (p *ProviderContext) NotifyLost(reason string) {
	p.mu.Lock()
	if p.lost {
		p.mu.Unlock()
		return
	}
	p.lost = true
	observers := make([]func(string), len(p.onLost))
	copy(observers, p.onLost)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(reason)
	}
}

// NotifyRestored delivers a device-restored event once the owner has
// re-created the device.
func (p *ProviderContext) NotifyRestored() {
	p.mu.Lock()
	if !p.lost {
		p.mu.Unlock()
		return
	}
	p.lost = false
	observers := make([]func(), len(p.onRestored))
	copy(observers, p.onRestored)
	p.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// ForceLoss simulates a loss event without touching the device. Useful
// for exercising recovery paths against a real provider.
func (p *ProviderContext) ForceLoss() bool {
	p.NotifyLost("forced loss")
	return true
}

// ForceRestore simulates the matching restoration.
func (p *ProviderContext) ForceRestore() bool {
	p.mu.Lock()
	lost := p.lost
	p.mu.Unlock()
	if !lost {
		return false
	}
	p.NotifyRestored()
	return true
}
