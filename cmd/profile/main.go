// Package main provides a profiling wrapper for rvsim to find hot spots in
// the simulator itself.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var (
	timing      = flag.Bool("timing", false, "Run on the out-of-order pipeline instead of the emulator")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max emulator instructions (0 = unlimited)")
	cycles      = flag.Uint64("max-cycles", 0, "max pipeline cycles (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <binary>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)
	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.Entry)

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var count uint64
	if *timing {
		count, err = runTimingProfile(prog)
	} else {
		count, err = runEmulationProfile(prog)
	}

	elapsed := time.Since(start)

	if *memProfile != "" {
		f, ferr := os.Create(*memProfile)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", ferr)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	if err != nil {
		fmt.Printf("Stopped: %v\n", err)
	}
	fmt.Printf("Instructions executed: %d\n", count)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if count > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(count)/elapsed.Seconds())
	}
}

// runEmulationProfile runs the program on the functional emulator.
func runEmulationProfile(prog *loader.Program) (uint64, error) {
	cfg := config.DefaultConfig()
	c, err := core.NewCore(cfg, prog)
	if err != nil {
		return 0, err
	}

	e, err := c.Golden(
		emu.WithDebugPort(emu.NewStreamDebugPort(os.Stdout, os.Stdin)),
		emu.WithMaxInstructions(*instruction),
	)
	if e == nil {
		return 0, err
	}
	if errors.Is(err, emu.ErrMaxInstructions) {
		err = nil
	}
	return e.InstructionCount(), err
}

// runTimingProfile runs the program on the pipeline, ignoring pauses.
func runTimingProfile(prog *loader.Program) (uint64, error) {
	c, err := core.NewCore(config.DefaultConfig(), prog,
		pipeline.WithDebugPort(emu.NewStreamDebugPort(os.Stdout, os.Stdin)),
		pipeline.WithMaxCycles(*cycles),
	)
	if err != nil {
		return 0, err
	}

	for {
		stop, err := c.Run()
		if err != nil || c.Halted() || stop == pipeline.StopMaxCycles {
			return c.Pipeline.Stats().Retired, err
		}
	}
}
