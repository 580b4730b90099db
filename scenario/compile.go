package scenario

import (
	"fmt"

	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/shaderc"
)

// RecoverCompilation walks an ordered list of progressively simpler
// shader sources until one compiles, spending one unit of the
// per-session recovery budget per call. A success is logged at low
// severity; exhausting the source list at high; an empty budget refuses
// the attempt and logs critical, signalling that the caller should stop
// retrying and degrade instead.
func (e *Engine) RecoverCompilation(comp *shaderc.Compiler, stage shaderc.Stage, sources []string) (shaderc.Module, bool) {
	e.mu.Lock()
	if e.compileBudget <= 0 {
		e.mu.Unlock()
		e.log.Log(faultlog.Compilation,
			fmt.Sprintf("%s shader recovery budget exhausted", stage),
			faultlog.SeverityCritical,
			map[string]any{"stage": stage.String()})
		return shaderc.Module{}, false
	}
	e.compileBudget--
	remaining := e.compileBudget
	e.mu.Unlock()

	for i, src := range sources {
		res := comp.Compile(src, stage, "")
		if res.OK {
			e.log.Log(faultlog.Compilation,
				fmt.Sprintf("%s shader recovered with source %d of %d", stage, i+1, len(sources)),
				faultlog.SeverityLow,
				map[string]any{"stage": stage.String(), "source": i, "budget": remaining})
			return res.Module, true
		}
	}

	e.log.Log(faultlog.Compilation,
		fmt.Sprintf("%s shader recovery failed: all %d sources rejected", stage, len(sources)),
		faultlog.SeverityHigh,
		map[string]any{"stage": stage.String(), "budget": remaining})
	return shaderc.Module{}, false
}

// CompileBudget returns the remaining shader-recovery attempts.
func (e *Engine) CompileBudget() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compileBudget
}
