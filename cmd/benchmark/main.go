// Command benchmark runs the built-in kernels on the out-of-order core and
// checks each against the functional emulator.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv         Output results in CSV format (default: human-readable)
//	-json        Output results in JSON format
//	-config      Core configuration file
//	-preset      Named configuration preset
//	-quick       Run only the core subset
//	-no-verify   Skip the emulator comparison
//	-db          Store every run in this results database
//
// Example:
//
//	# Compare the presets in a spreadsheet
//	go run ./cmd/benchmark -preset narrow -csv > narrow.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/results"
	"github.com/sarchlab/rvsim/timing/config"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	configPath := flag.String("config", "", "Core configuration file")
	preset := flag.String("preset", "", "Named configuration preset ("+strings.Join(config.PresetNames(), ", ")+")")
	quick := flag.Bool("quick", false, "Run only the core benchmarks")
	noVerify := flag.Bool("no-verify", false, "Skip the functional emulator comparison")
	dbPath := flag.String("db", "", "Store results in this database directory")
	flag.Parse()

	cfg, err := coreConfig(*configPath, *preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hc := benchmarks.DefaultConfig()
	hc.Core = cfg
	hc.Verify = !*noVerify
	hc.Output = os.Stdout

	harness := benchmarks.NewHarness(hc)
	if *quick {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("rvsim Benchmark Harness")
		fmt.Println("=======================")
		fmt.Printf("Issue width: %d, ROB: %d, RS: %d\n", cfg.IssueWidth, cfg.ROBSize, cfg.RSCount)
		fmt.Println("")
	}

	res := harness.RunAll()

	switch {
	case *jsonOutput:
		err = harness.PrintJSON(res)
	case *csvOutput:
		harness.PrintCSV(res)
	default:
		harness.PrintResults(res)
		s := benchmarks.Summarize(res)
		fmt.Println("=== Summary ===")
		fmt.Printf("%d benchmarks, %d failed, %d instructions in %d cycles (IPC %.3f)\n",
			s.TotalBenchmarks, s.Failed, s.TotalInstructions, s.TotalCycles, s.AverageIPC)
	}
	if err == nil && *dbPath != "" {
		err = store(*dbPath, res)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if benchmarks.Summarize(res).Failed > 0 {
		os.Exit(1)
	}
}

func coreConfig(path, preset string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "" && preset != "":
		return nil, fmt.Errorf("-config and -preset are exclusive")
	case path != "":
		cfg, err = config.LoadConfig(path)
	case preset != "":
		var ok bool
		if cfg, ok = config.Presets()[preset]; !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
	default:
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func store(path string, res []benchmarks.BenchmarkResult) error {
	s, err := results.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range res {
		if r.Record == nil {
			continue
		}
		if err := s.Put(r.Record); err != nil {
			return err
		}
	}
	return nil
}
