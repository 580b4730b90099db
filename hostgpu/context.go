// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hostgpu provides the wgpu-backed host.Context.
//
// Context owns its GPU resources (instance, adapter, device, queue) and
// probes real adapter limits. ProviderContext instead wraps an
// externally-owned device handed in through gpucontext.DeviceProvider;
// the embedding application keeps ownership and delivers loss/restore
// notifications.
package hostgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"

	"github.com/gogpu/shield/host"
)

// ErrNoGPU is returned when no compatible GPU adapter is found.
var ErrNoGPU = errors.New("hostgpu: no compatible GPU adapter found")

func init() {
	host.Register(host.ContextWGPU, func() host.Context { return New() })
}

// Context is a host.Context backed by a device this package creates and
// owns. Safe for concurrent use.
type Context struct {
	mu sync.Mutex

	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID

	limits   host.Limits
	info     host.Info
	features []string
	state    host.RenderState

	initialized bool
	lost        bool

	onLost     []func(reason string)
	onRestored []func()
}

// New creates an uninitialized wgpu context.
func New() *Context {
	return &Context{state: host.DefaultRenderState()}
}

// Name returns the context identifier.
func (c *Context) Name() string { return host.ContextWGPU }

// Init creates the instance, requests a high-performance adapter, creates
// a device with default limits, and probes the adapter identity and
// capability limits. Calling Init on an initialized context is a no-op.
func (c *Context) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	c.instance = core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})

	adapterID, err := c.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		c.instance = nil
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	c.adapter = adapterID

	deviceID, err := core.RequestDevice(adapterID, &gputypes.DeviceDescriptor{
		Label:            "shield-host-device",
		RequiredFeatures: nil,
		RequiredLimits:   gputypes.DefaultLimits(),
	})
	if err != nil {
		_ = core.AdapterDrop(adapterID)
		c.adapter = core.AdapterID{}
		c.instance = nil
		return fmt.Errorf("hostgpu: device creation failed: %w", err)
	}
	c.device = deviceID

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		_ = core.DeviceDrop(deviceID)
		_ = core.AdapterDrop(adapterID)
		c.device = core.DeviceID{}
		c.adapter = core.AdapterID{}
		c.instance = nil
		return fmt.Errorf("hostgpu: queue retrieval failed: %w", err)
	}
	c.queue = queueID

	c.probeLocked()
	c.state = host.DefaultRenderState()
	c.initialized = true
	return nil
}

// probeLocked fills limits, info, and features from the live adapter and
// device. Probe failures leave the corresponding fields zero rather than
// failing Init: a device we could create is still usable.
func (c *Context) probeLocked() {
	if info, err := core.GetAdapterInfo(c.adapter); err == nil {
		c.info = host.Info{
			Renderer:    info.Name,
			Vendor:      info.Vendor,
			Driver:      info.Driver,
			DeviceClass: fmt.Sprintf("%v", info.DeviceType),
			Tier:        2,
		}
	}

	limits, err := core.GetDeviceLimits(c.device)
	if err != nil {
		return
	}
	c.limits = host.Limits{
		MaxTextureSize:      int(limits.MaxTextureDimension2D),
		MaxVertexAttribs:    int(limits.MaxVertexAttributes),
		MaxFragmentUniforms: int(limits.MaxUniformBuffersPerShaderStage),
		MaxBindGroups:       int(limits.MaxBindGroups),
		MaxBufferSize:       limits.MaxBufferSize,
	}

	c.features = nil
	if limits.MaxComputeWorkgroupSizeX > 0 {
		c.features = append(c.features, "compute-shader")
	}
	if limits.MaxTextureDimension2D >= 8192 {
		c.features = append(c.features, "large-textures")
	}
	if limits.MaxStorageBuffersPerShaderStage > 0 {
		c.features = append(c.features, "storage-buffers")
	}
}

// Close releases the device and adapter in reverse order of creation.
// The queue is released when the device is dropped.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}

	if !c.device.IsZero() {
		_ = core.DeviceDrop(c.device)
		c.device = core.DeviceID{}
	}
	if !c.adapter.IsZero() {
		_ = core.AdapterDrop(c.adapter)
		c.adapter = core.AdapterID{}
	}
	c.instance = nil
	c.queue = core.QueueID{}
	c.initialized = false
}

// Supported reports whether a usable device is present.
func (c *Context) Supported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && !c.device.IsZero()
}

// Limits returns the probed device limits.
func (c *Context) Limits() host.Limits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

// Info returns the adapter identity.
func (c *Context) Info() host.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Features returns the derived optional feature names.
func (c *Context) Features() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.features))
	copy(out, c.features)
	return out
}

// Lost reports whether a loss notification has been delivered without a
// matching restoration.
func (c *Context) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// CaptureState returns the mirrored render state.
func (c *Context) CaptureState() host.RenderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ApplyState replays a render-state snapshot onto the context.
func (c *Context) ApplyState(s host.RenderState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// OnLost registers an observer for loss notifications.
func (c *Context) OnLost(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = append(c.onLost, fn)
}

// OnRestored registers an observer for restoration notifications.
func (c *Context) OnRestored(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRestored = append(c.onRestored, fn)
}

// NotifyLost delivers a device-loss event from the embedding application.
// Observers run with the pre-loss render state still capturable.
func (c *Context) NotifyLost(reason string) {
	c.mu.Lock()
	if c.lost {
		c.mu.Unlock()
		return
	}
	c.lost = true
	observers := make([]func(string), len(c.onLost))
	copy(observers, c.onLost)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(reason)
	}
}

// NotifyRestored delivers a device-restored event from the embedding
// application after it has re-created the device.
func (c *Context) NotifyRestored() {
	c.mu.Lock()
	if !c.lost {
		c.mu.Unlock()
		return
	}
	c.lost = false
	observers := make([]func(), len(c.onRestored))
	copy(observers, c.onRestored)
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// ForceLoss is unsupported: a real device cannot be dropped artificially.
func (c *Context) ForceLoss() bool { return false }

// ForceRestore is unsupported.
func (c *Context) ForceRestore() bool { return false }
