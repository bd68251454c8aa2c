// Package benchmarks provides built-in RV32I kernels and a harness that runs
// them on the out-of-order core.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/results"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// SimulatedCycles counts the cycles of the benchmark region.
	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	InstructionsIssued  uint64  `json:"instructions_issued"`
	IPC                 float64 `json:"ipc"`
	CPI                 float64 `json:"cpi"`

	// StallCycles counts commit cycles blocked on the ROB tail.
	StallCycles     uint64 `json:"stall_cycles"`
	MispredictStall uint64 `json:"mispredict_stall_cycles"`
	Flushed         uint64 `json:"flushed"`

	Branches              uint64  `json:"branches"`
	BranchMispredictions  uint64  `json:"branch_mispredictions"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent"`

	// Stop is the reason the run ended.
	Stop string `json:"stop"`

	// Verified is true when the final state matched the functional
	// emulator and the kernel's own check.
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`

	// Record is the run in results store form.
	Record *results.Record `json:"-"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	Name        string
	Description string

	Program *loader.Program

	// Check validates the final registers, if set.
	Check func(reg func(uint8) uint32) error
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Core is the configuration every benchmark runs with.
	Core *config.Config

	// Verify compares each run against the functional emulator.
	Verify bool

	// MaxCycles bounds each run; 0 means no limit.
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Core:      config.DefaultConfig(),
		Verify:    true,
		MaxCycles: 10_000_000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Core == nil {
		config.Core = DefaultConfig().Core
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark. Benchmark-end pauses are run
// through so the whole program executes.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	c, err := core.NewCore(h.config.Core, bench.Program, pipeline.WithMaxCycles(h.config.MaxCycles))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	stop, runErr := runToEnd(c)
	result.WallTime = time.Since(start)

	p := c.Pipeline
	stats := p.Stats()
	bp := stats.BranchPredictorStats()
	result.SimulatedCycles = stats.Cycles(p.Clock())
	result.InstructionsRetired = stats.Retired
	result.InstructionsIssued = stats.Issued
	result.IPC = stats.IPC(p.Clock())
	result.CPI = stats.CPI(p.Clock())
	result.StallCycles = stats.Stalled
	result.MispredictStall = stats.StallMispredict
	result.Flushed = stats.Flushed
	result.Branches = stats.Branches
	result.BranchMispredictions = bp.Mispredictions
	result.BranchAccuracyPercent = bp.Accuracy()
	result.Stop = stop.String()
	result.Record = results.NewRecord(bench.Name, "builtin", p, stop, runErr)

	if err := h.verify(c, bench, stop, runErr); err != nil {
		result.Error = err.Error()
	} else {
		result.Verified = h.config.Verify || bench.Check != nil
	}

	return result
}

func runToEnd(c *core.Core) (pipeline.StopReason, error) {
	for {
		stop, err := c.Run()
		if err != nil || c.Halted() || stop == pipeline.StopMaxCycles {
			return stop, err
		}
	}
}

func (h *Harness) verify(c *core.Core, bench Benchmark, stop pipeline.StopReason, runErr error) error {
	if runErr != nil {
		return runErr
	}
	if stop != pipeline.StopQuit && stop != pipeline.StopBenchEnd {
		return fmt.Errorf("stopped early (%s)", stop)
	}

	if bench.Check != nil {
		if err := bench.Check(c.Pipeline.Reg); err != nil {
			return err
		}
	}

	if !h.config.Verify {
		return nil
	}
	e, err := c.Golden()
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}
	return c.Matches(e)
}

// regEquals returns a check that register r holds want.
func regEquals(r uint8, want uint32) func(func(uint8) uint32) error {
	return func(reg func(uint8) uint32) error {
		if got := reg(r); got != want {
			return fmt.Errorf("%s = %d, want %d", insts.RegName(r), got, want)
		}
		return nil
	}
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== rvsim Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Stop: %s\n", r.Stop)
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  Instructions Issued:  %d\n", r.InstructionsIssued)
		_, _ = fmt.Fprintf(w, "  IPC:                  %.3f\n", r.IPC)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Mispredict Stalls:    %d\n", r.MispredictStall)
		_, _ = fmt.Fprintf(w, "  Flushed:              %d\n", r.Flushed)

		if r.Branches > 0 {
			_, _ = fmt.Fprintln(w, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(w, "  Branches:        %d\n", r.Branches)
			_, _ = fmt.Fprintf(w, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(w, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		switch {
		case r.Error != "":
			_, _ = fmt.Fprintf(w, "  FAILED: %s\n", r.Error)
		case r.Verified:
			_, _ = fmt.Fprintln(w, "  Verified against the functional emulator")
		}
		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,retired,issued,ipc,cpi,stalls,mispredict_stalls,flushed,branches,mispredictions,stop,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%.3f,%.3f,%d,%d,%d,%d,%d,%s,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.InstructionsIssued,
			r.IPC,
			r.CPI,
			r.StallCycles,
			r.MispredictStall,
			r.Flushed,
			r.Branches,
			r.BranchMispredictions,
			r.Stop,
			r.Verified,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp string         `json:"timestamp"`
	Config    *config.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	Failed            int           `json:"failed"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageIPC        float64       `json:"average_ipc"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsRetired
		s.TotalWallTime += r.WallTime
		if r.Error != "" {
			s.Failed++
		}
	}
	if s.TotalCycles > 0 {
		s.AverageIPC = float64(s.TotalInstructions) / float64(s.TotalCycles)
	}
	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config:    h.config.Core,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
