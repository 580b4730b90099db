package shaderc

import (
	_ "embed"
)

// Embedded reference WGSL sources for the background effect.
// These are compiled at build time using go:embed directives.

//go:embed shaders/particles.wgsl
var particlesSource string

//go:embed shaders/particles_simple.wgsl
var particlesSimpleSource string

// ParticlesSource returns the full-quality background effect source.
func ParticlesSource() string { return particlesSource }

// ParticlesSimpleSource returns the simplified fallback source used when
// the full effect fails to compile or the fallback level demands it.
func ParticlesSimpleSource() string { return particlesSimpleSource }

// FallbackChain returns the built-in sources ordered from richest to
// simplest. The recovery ladder walks this chain.
func FallbackChain() []string {
	return []string{particlesSource, particlesSimpleSource}
}
