// Package shaderc compiles WGSL shader sources with fallback retry.
//
// Compilation goes through naga (WGSL → SPIR-V words); the resulting words
// are handed to whatever device the renderer owns. A failed primary source
// is retried with a caller-supplied simpler fallback before the failure is
// surfaced, and every outcome is recorded in the fault log. Compile never
// panics outward: internal faults become a failed Result plus a
// critical-severity log entry.
package shaderc

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/naga"

	"github.com/gogpu/shield/faultlog"
)

// Stage identifies the pipeline stage a shader targets.
type Stage int

// Shader stages.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// String returns the lowercase stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Module is a compiled shader unit: SPIR-V words ready for device upload.
type Module struct {
	// Words is the compiled SPIR-V bytecode as little-endian 32-bit words.
	Words []uint32

	// Stage is the pipeline stage the module targets.
	Stage Stage
}

// Valid reports whether the module holds compiled code.
func (m Module) Valid() bool { return len(m.Words) > 0 }

// Result is the outcome of a Compile call.
type Result struct {
	// OK reports compilation success (primary or fallback).
	OK bool

	// Module is the compiled unit when OK.
	Module Module

	// Err describes the failure when !OK. Never set alongside OK.
	Err error

	// Warnings are advisory source issues; they never fail the result.
	Warnings []string

	// FallbackUsed reports that the fallback source was compiled instead
	// of the primary one.
	FallbackUsed bool
}

// Program is a vertex+fragment module pair built by Link.
type Program struct {
	Vertex   Module
	Fragment Module
}

// LinkResult is the outcome of a Link call.
type LinkResult struct {
	OK       bool
	Program  Program
	Warnings []string
}

// Compiler compiles WGSL with fault reporting. Successful compilations
// are memoized in an LRU cache keyed by source hash and stage, so the
// recovery paths can re-request known-good modules without paying for
// recompilation.
//
// Compiler is safe for concurrent use.
type Compiler struct {
	log    *faultlog.Log
	logger *slog.Logger
	cache  *Cache
}

// NewCompiler creates a compiler reporting to the given fault log.
// A nil logger disables diagnostics.
func NewCompiler(log *faultlog.Log, logger *slog.Logger) *Compiler {
	return &Compiler{log: log, logger: logger, cache: NewCache(0)}
}

// Cache exposes the module cache for stats and explicit invalidation.
func (c *Compiler) Cache() *Cache { return c.cache }

// Compile compiles primary WGSL source for the given stage. On failure it
// logs a medium-severity compilation fault and, when fallback is non-empty,
// retries with the fallback source: success there is logged at low
// severity, a second failure at high severity.
func (c *Compiler) Compile(primary string, stage Stage, fallback string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Log(faultlog.Compilation,
				fmt.Sprintf("%s shader compilation panicked: %v", stage, r),
				faultlog.SeverityCritical, nil)
			res = Result{Err: fmt.Errorf("shaderc: compilation panicked: %v", r)}
		}
	}()

	res.Warnings = ValidateSource(primary).Issues

	if mod, ok := c.cache.Get(primary, stage); ok {
		res.OK = true
		res.Module = mod
		return res
	}

	words, err := compileWGSL(primary)
	if err == nil {
		res.OK = true
		res.Module = Module{Words: words, Stage: stage}
		c.cache.Put(primary, stage, res.Module)
		return res
	}

	c.log.Log(faultlog.Compilation,
		fmt.Sprintf("%s shader failed to compile: %v", stage, err),
		faultlog.SeverityMedium,
		map[string]any{"stage": stage.String()})

	if fallback == "" {
		res.Err = err
		return res
	}

	words, ferr := compileWGSL(fallback)
	if ferr != nil {
		c.log.Log(faultlog.Compilation,
			fmt.Sprintf("%s fallback shader also failed: %v", stage, ferr),
			faultlog.SeverityHigh,
			map[string]any{"stage": stage.String()})
		res.Err = fmt.Errorf("shaderc: primary: %w; fallback: %w", err, ferr)
		return res
	}

	c.log.Log(faultlog.Compilation,
		fmt.Sprintf("%s shader recovered via fallback source", stage),
		faultlog.SeverityLow,
		map[string]any{"stage": stage.String()})

	res.OK = true
	res.Module = Module{Words: words, Stage: stage}
	res.FallbackUsed = true
	c.cache.Put(fallback, stage, res.Module)
	return res
}

// Link combines a vertex and a fragment module into a program. There is no
// GL-style link step for SPIR-V modules, so Link validates that both units
// carry code for the right stages; a mismatch is logged at high severity.
// Post-link checks only produce warnings, never failure.
func (c *Compiler) Link(vertex, fragment Module) LinkResult {
	if !vertex.Valid() || vertex.Stage != StageVertex ||
		!fragment.Valid() || fragment.Stage != StageFragment {
		c.log.Log(faultlog.Compilation,
			"program link failed: invalid or mismatched shader modules",
			faultlog.SeverityHigh, nil)
		return LinkResult{}
	}

	var warnings []string
	const largeProgramWords = 1 << 18
	if len(vertex.Words)+len(fragment.Words) > largeProgramWords {
		warnings = append(warnings, "program exceeds expected size for a background effect")
	}

	if c.logger != nil {
		c.logger.Debug("program linked",
			"vertex_words", len(vertex.Words),
			"fragment_words", len(fragment.Words))
	}

	return LinkResult{
		OK:       true,
		Program:  Program{Vertex: vertex, Fragment: fragment},
		Warnings: warnings,
	}
}

// compileWGSL compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shaderc: compile failed: %w", err)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
