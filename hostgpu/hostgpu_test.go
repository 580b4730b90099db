// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hostgpu

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shield/host"
)

type mockDevice struct {
	destroyed bool
}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       { m.destroyed = true }

type mockProvider struct {
	device *mockDevice
}

func (m *mockProvider) Device() gpucontext.Device {
	if m.device == nil {
		return nil
	}
	return m.device
}
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestWGPUContextIsRegistered(t *testing.T) {
	if !host.IsRegistered(host.ContextWGPU) {
		t.Fatal("wgpu context is not registered")
	}
	c := host.Get(host.ContextWGPU)
	if c == nil {
		t.Fatal("Get(wgpu) = nil")
	}
	if c.Name() != host.ContextWGPU {
		t.Errorf("Name() = %q, want %q", c.Name(), host.ContextWGPU)
	}
}

func TestContextUnsupportedBeforeInit(t *testing.T) {
	c := New()
	if c.Supported() {
		t.Error("Supported() = true before Init")
	}
	if c.Lost() {
		t.Error("Lost() = true before Init")
	}
	// Close before Init is a no-op.
	c.Close()
}

func TestProviderContextInit(t *testing.T) {
	dev := &mockDevice{}
	pc := NewFromProvider(&mockProvider{device: dev}, ProviderConfig{})

	if err := pc.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if !pc.Supported() {
		t.Error("Supported() = false after Init with a live device")
	}

	// Defaults fill in for a zero config.
	if pc.Limits().MaxTextureSize == 0 {
		t.Error("zero config produced zero limits")
	}
	if pc.Info().Tier != 2 {
		t.Errorf("Tier = %d, want 2", pc.Info().Tier)
	}
}

func TestProviderContextNilDevice(t *testing.T) {
	pc := NewFromProvider(&mockProvider{}, ProviderConfig{})
	if err := pc.Init(); err != host.ErrContextNotAvailable {
		t.Errorf("Init() = %v, want ErrContextNotAvailable", err)
	}

	pc = NewFromProvider(nil, ProviderConfig{})
	if err := pc.Init(); err != host.ErrContextNotAvailable {
		t.Errorf("Init() with nil provider = %v, want ErrContextNotAvailable", err)
	}
}

func TestProviderContextConfigOverrides(t *testing.T) {
	cfg := ProviderConfig{
		Limits:   host.Limits{MaxTextureSize: 16384, MaxVertexAttribs: 32, MaxFragmentUniforms: 64},
		Info:     host.Info{Renderer: "Test GPU", DeviceClass: "DiscreteGPU", Tier: 2},
		Features: []string{"compute-shader", "large-textures"},
	}
	pc := NewFromProvider(&mockProvider{device: &mockDevice{}}, cfg)

	if pc.Limits() != cfg.Limits {
		t.Errorf("Limits() = %+v, want %+v", pc.Limits(), cfg.Limits)
	}
	if pc.Info() != cfg.Info {
		t.Errorf("Info() = %+v, want %+v", pc.Info(), cfg.Info)
	}
	if got := pc.Features(); len(got) != 2 {
		t.Errorf("Features() = %v, want the configured pair", got)
	}
}

func TestProviderContextLossLifecycle(t *testing.T) {
	pc := NewFromProvider(&mockProvider{device: &mockDevice{}}, ProviderConfig{})
	if err := pc.Init(); err != nil {
		t.Fatal(err)
	}

	var events []string
	pc.OnLost(func(reason string) { events = append(events, "lost:"+reason) })
	pc.OnRestored(func() { events = append(events, "restored") })

	pc.NotifyLost("device removed")
	if !pc.Lost() {
		t.Fatal("Lost() = false after NotifyLost")
	}
	// A duplicate loss is swallowed.
	pc.NotifyLost("device removed")

	pc.NotifyRestored()
	if pc.Lost() {
		t.Fatal("Lost() = true after NotifyRestored")
	}

	want := []string{"lost:device removed", "restored"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestProviderContextForceHooks(t *testing.T) {
	pc := NewFromProvider(&mockProvider{device: &mockDevice{}}, ProviderConfig{})

	if pc.ForceRestore() {
		t.Error("ForceRestore() = true without a prior loss")
	}
	if !pc.ForceLoss() {
		t.Error("ForceLoss() = false")
	}
	if !pc.ForceRestore() {
		t.Error("ForceRestore() = false after ForceLoss")
	}
}

func TestProviderContextStateRoundTrip(t *testing.T) {
	pc := NewFromProvider(&mockProvider{device: &mockDevice{}}, ProviderConfig{})

	s := host.DefaultRenderState()
	s.Viewport = [4]int{0, 0, 800, 600}
	s.BlendEnabled = true
	pc.ApplyState(s)

	if got := pc.CaptureState(); got != s {
		t.Errorf("CaptureState() = %+v, want %+v", got, s)
	}
}

func TestProviderContextCloseLeavesDevice(t *testing.T) {
	dev := &mockDevice{}
	pc := NewFromProvider(&mockProvider{device: dev}, ProviderConfig{})
	if err := pc.Init(); err != nil {
		t.Fatal(err)
	}

	pc.Close()
	if pc.Supported() {
		t.Error("Supported() = true after Close")
	}
	if dev.destroyed {
		t.Error("Close destroyed a device it does not own")
	}
}
