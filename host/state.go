// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

// RenderState is the minimal render state captured before a context loss
// and replayed after restoration. It deliberately covers only what a
// decorative effect needs to resume: viewport, clear color, the fixed
// toggles, and the active texture unit. Everything else is re-created by
// the owning renderer.
type RenderState struct {
	// Viewport is x, y, width, height in pixels.
	Viewport [4]int

	// ClearColor is premultiplied RGBA in [0, 1].
	ClearColor [4]float64

	// Toggles.
	BlendEnabled   bool
	DepthEnabled   bool
	CullEnabled    bool
	ScissorEnabled bool

	// ScissorRect is x, y, width, height; meaningful only when
	// ScissorEnabled is set.
	ScissorRect [4]int

	// ActiveTextureUnit is the bound texture unit index.
	ActiveTextureUnit int
}

// DefaultRenderState returns the state a fresh context starts in.
func DefaultRenderState() RenderState {
	return RenderState{
		ClearColor: [4]float64{0, 0, 0, 1},
	}
}
