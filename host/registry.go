// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import (
	"sync"
)

// Context identifiers for the built-in implementations.
const (
	// ContextWGPU is the wgpu-backed context (hostgpu package).
	ContextWGPU = "wgpu"

	// ContextStub is the in-memory stub context.
	ContextStub = "stub"
)

// ContextFactory creates a new context instance.
type ContextFactory func() Context

var (
	registryMu sync.RWMutex
	contexts   = make(map[string]ContextFactory)
	// Selection tries these in order; a real device beats the stub.
	contextPriority = []string{ContextWGPU, ContextStub}
)

// Register makes a context factory selectable under the given name,
// replacing any earlier registration. Context packages call this from
// their init() so a blank import is enough to enable them.
func Register(name string, factory ContextFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	contexts[name] = factory
}

// Unregister removes a context from the registry. Tests use it to force
// selection of a specific implementation.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(contexts, name)
}

// Available returns the names of all registered contexts, in no
// particular order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(contexts))
	for name := range contexts {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a context is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := contexts[name]
	return ok
}

// Get returns a fresh context instance by name, or nil when nothing is
// registered under it.
func Get(name string) Context {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := contexts[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the highest-priority registered context, or nil when
// the registry is empty. Unlike InitDefault it does not call Init.
func Default() Context {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range contextPriority {
		if factory, ok := contexts[name]; ok {
			if c := factory(); c != nil {
				return c
			}
		}
	}

	// Nothing on the priority list is registered; take whatever is.
	for _, factory := range contexts {
		if c := factory(); c != nil {
			return c
		}
	}

	return nil
}

// InitDefault walks the priority order and returns the first context
// whose Init succeeds. A missing GPU therefore degrades to the stub
// instead of failing outright.
func InitDefault() (Context, error) {
	registryMu.RLock()
	order := make([]ContextFactory, 0, len(contextPriority))
	for _, name := range contextPriority {
		if factory, ok := contexts[name]; ok {
			order = append(order, factory)
		}
	}
	registryMu.RUnlock()

	for _, factory := range order {
		c := factory()
		if c == nil {
			continue
		}
		if err := c.Init(); err == nil {
			return c, nil
		}
	}

	return nil, ErrContextNotAvailable
}
