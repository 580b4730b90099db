// Command shielddemo walks a simulated rendering session through shield's
// degradation pipeline: it compiles the bundled shaders, injects faults,
// forces a context loss, and prints the fallback level after each phase.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/shield"
	"github.com/gogpu/shield/degrade"
	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/host"
	"github.com/gogpu/shield/shaderc"

	// Registers the wgpu context for -gpu.
	_ "github.com/gogpu/shield/hostgpu"
)

func main() {
	var (
		verbose = flag.Bool("v", false, "enable diagnostic logging")
		useGPU  = flag.Bool("gpu", false, "select the best registered context instead of the stub")
		frames  = flag.Int("frames", 120, "frames to simulate")
		target  = flag.Float64("target-fps", 60, "target frame rate")
	)
	flag.Parse()

	if *verbose {
		shield.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	// The stub supports forced loss/restore; a real context does not, so
	// -gpu skips that phase.
	var stub *host.Stub
	opts := shield.Options{
		TargetFPS: *target,
		OnFallback: func(st degrade.State) {
			fmt.Printf("fallback applied: %s (%s)\n", st.Level, st.Reason)
		},
	}
	if !*useGPU {
		stub = host.NewStub()
		opts.Context = stub
	}
	h := shield.New(opts)
	defer h.Cleanup()

	if err := h.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}
	report(h, "after initialize")

	// Compile the bundled shader pair, falling back to the simple source.
	res := h.Compiler().Compile(shaderc.ParticlesSource(), shaderc.StageFragment, shaderc.ParticlesSimpleSource())
	fmt.Printf("shader compile: ok=%v fallback=%v warnings=%d\n", res.OK, res.FallbackUsed, len(res.Warnings))

	// Simulate the render loop.
	h.StartMonitoring()
	for i := 0; i < *frames; i++ {
		h.RecordFrame()
		time.Sleep(time.Second / time.Duration(*target))
	}
	report(h, "after render loop")

	// A context loss and restoration.
	if stub != nil {
		stub.ForceLoss()
		fmt.Printf("context lost: %v\n", h.ContextLost())
		stub.ForceRestore()
		fmt.Printf("context restored, lost=%v\n", h.ContextLost())
	}

	// Pile on faults until the cascade detector trips.
	for i := 0; i < 2; i++ {
		h.Log().Log(faultlog.ContextLoss, "simulated device removal", faultlog.SeverityCritical, nil)
	}
	if h.CheckCascadingFailures() {
		report(h, "after cascading failure")
	}
}

func report(h *shield.Handler, phase string) {
	stats := h.GetErrorStatistics()
	cfg := h.Config()
	fmt.Printf("%-24s level=%-8s fps=%6.1f faults=%d particles=%d scale=%.2f\n",
		phase, stats.Level, stats.AverageFPS, stats.TotalFaults, cfg.ParticleCount, cfg.RenderScale)
}
