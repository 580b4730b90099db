// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package host abstracts the rendering environment observed by shield.
//
// A Context represents one rendering-context lifetime: it exposes the
// adapter's identity and numeric limits, reports device loss, and lets the
// embedding application (or a test) deliver loss/restore lifecycle
// notifications. shield only observes the context; it never owns the GPU
// resources behind it.
//
// Implementations are registered via Register() and selected via Get() or
// Default(). The wgpu-backed implementation lives in the hostgpu package;
// Stub in this package is the deterministic in-memory fallback.
package host

import "errors"

// Common host errors.
var (
	// ErrContextNotAvailable is returned when a requested context is not available.
	ErrContextNotAvailable = errors.New("host: context not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("host: not initialized")
)

// Limits describes the numeric capability limits of a rendering context.
// A zero Limits value means the context could not be probed.
type Limits struct {
	// MaxTextureSize is the maximum 2D texture dimension in texels.
	MaxTextureSize int

	// MaxVertexAttribs is the maximum number of vertex attributes.
	MaxVertexAttribs int

	// MaxFragmentUniforms is the maximum number of uniform buffers
	// bindable in the fragment stage.
	MaxFragmentUniforms int

	// MaxBindGroups is the maximum number of bind groups.
	MaxBindGroups int

	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64
}

// Info identifies the adapter behind a context.
type Info struct {
	// Renderer is the device/renderer name (e.g. "NVIDIA GeForce RTX 3080").
	Renderer string

	// Vendor is the adapter vendor.
	Vendor string

	// Driver is the driver version string, when known.
	Driver string

	// DeviceClass is a human-readable device classification
	// ("DiscreteGPU", "IntegratedGPU", "CPU", ...), when known.
	DeviceClass string

	// Tier is the API capability tier: 0 unsupported, 1 baseline,
	// 2 full (compute-capable device).
	Tier int
}

// Context is one observable rendering-context lifetime.
//
// Implementations must be safe for concurrent use. Notification callbacks
// registered via OnLost/OnRestored are invoked in registration order.
type Context interface {
	// Name returns the context identifier (e.g. "wgpu", "stub").
	Name() string

	// Init brings the context up. Calling Init on an initialized
	// context is a no-op.
	Init() error

	// Close releases context resources. The context should not be
	// used after Close.
	Close()

	// Supported reports whether a usable device is present.
	Supported() bool

	// Limits returns the probed capability limits.
	Limits() Limits

	// Info returns the adapter identity.
	Info() Info

	// Features returns the names of supported optional features.
	Features() []string

	// Lost reports a live loss query against the underlying device.
	Lost() bool

	// CaptureState snapshots the minimal render state needed to resume
	// after a context loss.
	CaptureState() RenderState

	// ApplyState replays a snapshot onto the (restored) context.
	ApplyState(RenderState)

	// OnLost registers an observer for context-loss notifications.
	OnLost(func(reason string))

	// OnRestored registers an observer for context-restored notifications.
	OnRestored(func())

	// ForceLoss triggers an artificial context loss when the
	// implementation supports it. Returns false otherwise.
	ForceLoss() bool

	// ForceRestore triggers an artificial restoration after ForceLoss.
	// Returns false when unsupported or when the context is not lost.
	ForceRestore() bool
}
