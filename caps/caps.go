// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package caps probes and caches the capability profile of a rendering
// context.
//
// Detection is a one-shot operation per context lifetime: the first call
// probes the host, every later call returns the cached result until Reset
// (typically after context recreation). Probing never fails outward; a
// host that cannot be probed yields an unsupported profile.
package caps

import (
	"log/slog"
	"sync"

	"github.com/gogpu/shield/host"
)

// Minimum requirements for running the effect at all.
const (
	MinTextureSize      = 1024
	MinVertexAttribs    = 8
	MinFragmentUniforms = 16
)

// Capabilities is the probed capability profile of a rendering context.
type Capabilities struct {
	// Supported reports whether a usable device was found.
	Supported bool

	// Tier is the API capability tier: 0 unsupported, 1 baseline,
	// 2 full (compute-capable device).
	Tier int

	// MaxTextureSize is the maximum 2D texture dimension in texels.
	MaxTextureSize int

	// MaxVertexAttribs is the maximum number of vertex attributes.
	MaxVertexAttribs int

	// MaxFragmentUniforms is the maximum number of uniform buffers
	// bindable in the fragment stage.
	MaxFragmentUniforms int

	// Extensions are the optional feature names the host reports.
	Extensions []string

	// Renderer and Vendor identify the adapter.
	Renderer string
	Vendor   string

	// DeviceClass is the host's device classification, when known.
	DeviceClass string
}

// HasExtension reports whether the profile includes the named feature.
func (c Capabilities) HasExtension(name string) bool {
	for _, e := range c.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// Quality is a coarse recommended-quality bucket.
type Quality int

// Quality buckets.
const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
)

// String returns the lowercase quality name.
func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return "low"
	}
}

// Detector probes a host context once and caches the result.
//
// Detector is safe for concurrent use.
type Detector struct {
	mu     sync.Mutex
	ctx    host.Context
	cached *Capabilities
	logger *slog.Logger
}

// NewDetector creates a detector over the given host context.
// A nil logger disables diagnostics.
func NewDetector(ctx host.Context, logger *slog.Logger) *Detector {
	return &Detector{ctx: ctx, logger: logger}
}

// Detect returns the capability profile of the context.
//
// The first call probes the host; subsequent calls return the identical
// cached value until Reset. Probing faults degrade the result to an
// unsupported profile instead of propagating.
func (d *Detector) Detect() Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil {
		return *d.cached
	}

	c := d.probe()
	d.cached = &c

	if d.logger != nil {
		d.logger.Info("capabilities detected",
			"supported", c.Supported,
			"tier", c.Tier,
			"renderer", c.Renderer,
			"max_texture_size", c.MaxTextureSize)
	}
	return c
}

// probe queries the host context. Any panic from the host degrades the
// result to unsupported.
func (d *Detector) probe() (c Capabilities) {
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.Warn("capability probe failed", "panic", r)
			}
			c = Capabilities{}
		}
	}()

	if d.ctx == nil || !d.ctx.Supported() {
		return Capabilities{}
	}

	limits := d.ctx.Limits()
	info := d.ctx.Info()

	return Capabilities{
		Supported:           true,
		Tier:                info.Tier,
		MaxTextureSize:      limits.MaxTextureSize,
		MaxVertexAttribs:    limits.MaxVertexAttribs,
		MaxFragmentUniforms: limits.MaxFragmentUniforms,
		Extensions:          d.ctx.Features(),
		Renderer:            info.Renderer,
		Vendor:              info.Vendor,
		DeviceClass:         info.DeviceClass,
	}
}

// MeetsMinimum reports whether the context satisfies the fixed minimum
// thresholds for running the effect.
func (d *Detector) MeetsMinimum() bool {
	c := d.Detect()
	return c.Supported &&
		c.MaxTextureSize >= MinTextureSize &&
		c.MaxVertexAttribs >= MinVertexAttribs &&
		c.MaxFragmentUniforms >= MinFragmentUniforms
}

// RecommendedQuality maps the profile onto a coarse quality bucket.
// The mapping is deterministic in tier and texture size.
func (d *Detector) RecommendedQuality() Quality {
	c := d.Detect()
	switch {
	case !c.Supported:
		return QualityLow
	case c.Tier >= 2 && c.MaxTextureSize >= 8192:
		return QualityHigh
	case c.MaxTextureSize >= 4096:
		return QualityMedium
	default:
		return QualityLow
	}
}

// Reset discards the cached profile so the next Detect probes again.
// Call after context recreation.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}
