// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shield keeps GPU-rendered visual effects alive on hostile
// hardware. It watches a rendering context for device loss, compilation
// failures, memory pressure, and frame-rate collapse, and degrades the
// effect through fixed quality tiers instead of letting it crash the
// embedding application.
//
// The Handler type is the composition root: it owns a fault log
// (faultlog), a capability detector (caps), a shader compiler (shaderc),
// a context-loss recovery manager (recovery), a performance monitor
// (perfmon), a degradation manager (degrade), and a recovery scenario
// engine (scenario), all bound to one host.Context for the lifetime of
// one mounted effect.
//
// Typical use:
//
//	h := shield.New(shield.Options{})
//	if err := h.Initialize(); err != nil {
//	    // no usable context; h.Config() is already the disabled tier
//	}
//	h.StartMonitoring()
//	defer h.Cleanup()
//
//	for running {
//	    h.RecordFrame()
//	    render(h.Config())
//	    h.CheckAndApplyFallbacks()
//	}
//
// shield produces no log output by default; call SetLogger to enable
// diagnostics.
package shield
