// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"testing"

	"github.com/gogpu/shield/host"
)

func TestDetectIsMemoized(t *testing.T) {
	stub := host.NewStub()
	d := NewDetector(stub, nil)

	first := d.Detect()
	if !first.Supported {
		t.Fatal("Detect() on stub should report supported")
	}

	// Change the host after the first probe; the cached profile must win.
	stub.SetLimits(host.Limits{MaxTextureSize: 1})
	second := d.Detect()
	if second.MaxTextureSize != first.MaxTextureSize {
		t.Errorf("Detect() after host change = %d, want cached %d",
			second.MaxTextureSize, first.MaxTextureSize)
	}

	// Reset invalidates the cache.
	d.Reset()
	third := d.Detect()
	if third.MaxTextureSize != 1 {
		t.Errorf("Detect() after Reset = %d, want 1", third.MaxTextureSize)
	}
}

func TestDetectUnsupportedHost(t *testing.T) {
	stub := host.NewStub()
	stub.SetSupported(false)
	d := NewDetector(stub, nil)

	c := d.Detect()
	if c.Supported {
		t.Error("Detect() on unsupported host reported supported")
	}
	if c.MaxTextureSize != 0 || c.Tier != 0 {
		t.Errorf("unsupported profile not zeroed: %+v", c)
	}
}

func TestDetectNilContext(t *testing.T) {
	d := NewDetector(nil, nil)
	c := d.Detect()
	if c.Supported {
		t.Error("Detect() with nil context reported supported")
	}
}

// panickyContext panics on every probe call.
type panickyContext struct {
	*host.Stub
}

func (p *panickyContext) Limits() host.Limits { panic("probe exploded") }

func TestDetectRecoversProbePanic(t *testing.T) {
	d := NewDetector(&panickyContext{Stub: host.NewStub()}, nil)
	c := d.Detect()
	if c.Supported {
		t.Error("Detect() after probe panic reported supported")
	}
}

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		name   string
		limits host.Limits
		want   bool
	}{
		{"comfortable", host.Limits{MaxTextureSize: 4096, MaxVertexAttribs: 16, MaxFragmentUniforms: 16}, true},
		{"exact", host.Limits{MaxTextureSize: 1024, MaxVertexAttribs: 8, MaxFragmentUniforms: 16}, true},
		{"small textures", host.Limits{MaxTextureSize: 512, MaxVertexAttribs: 16, MaxFragmentUniforms: 16}, false},
		{"few attribs", host.Limits{MaxTextureSize: 4096, MaxVertexAttribs: 4, MaxFragmentUniforms: 16}, false},
		{"few uniforms", host.Limits{MaxTextureSize: 4096, MaxVertexAttribs: 16, MaxFragmentUniforms: 8}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := host.NewStub()
			stub.SetLimits(tt.limits)
			d := NewDetector(stub, nil)
			if got := d.MeetsMinimum(); got != tt.want {
				t.Errorf("MeetsMinimum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecommendedQuality(t *testing.T) {
	tests := []struct {
		name    string
		tier    int
		texSize int
		want    Quality
	}{
		{"full tier large textures", 2, 16384, QualityHigh},
		{"full tier mid textures", 2, 4096, QualityMedium},
		{"baseline tier mid textures", 1, 4096, QualityMedium},
		{"baseline tier small textures", 1, 2048, QualityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := host.NewStub()
			stub.SetLimits(host.Limits{
				MaxTextureSize:      tt.texSize,
				MaxVertexAttribs:    16,
				MaxFragmentUniforms: 16,
			})
			stub.SetInfo(host.Info{Tier: tt.tier})
			d := NewDetector(stub, nil)
			if got := d.RecommendedQuality(); got != tt.want {
				t.Errorf("RecommendedQuality() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecommendedQualityUnsupported(t *testing.T) {
	stub := host.NewStub()
	stub.SetSupported(false)
	d := NewDetector(stub, nil)
	if got := d.RecommendedQuality(); got != QualityLow {
		t.Errorf("RecommendedQuality() = %s, want low", got)
	}
}

func TestHasExtension(t *testing.T) {
	c := Capabilities{Extensions: []string{"compute-shader", "large-textures"}}
	if !c.HasExtension("compute-shader") {
		t.Error("HasExtension(compute-shader) = false")
	}
	if c.HasExtension("ray-tracing") {
		t.Error("HasExtension(ray-tracing) = true")
	}
}
