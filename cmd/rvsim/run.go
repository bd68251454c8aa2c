package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/debugger"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/log"
	"github.com/sarchlab/rvsim/report"
	"github.com/sarchlab/rvsim/results"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

type runOptions struct {
	configPath string
	preset     string

	bench    bool
	loud     bool
	granular bool
	emulate  bool

	tracePC   string
	htmlPath  string
	dbPath    string
	name      string
	logLevel  string
	history   string
	maxCycles uint64

	static             bool
	no2Level           bool
	noForward          bool
	clearHistoryOnCall bool
	oneBitBHT          bool
	noSpec             bool
	gshare             bool
	noStoreCheck       bool
	permissive         bool
	dcache             bool
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <binary>",
		Short: "Simulate a flat binary (with its .enp entry file) or an ELF executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "configuration file")
	f.StringVar(&o.preset, "preset", "", "named configuration preset")
	f.BoolVar(&o.bench, "bench", false, "run without the debugger; stop at the end of the benchmark region")
	f.BoolVar(&o.loud, "loud", false, "print the per-cycle trace")
	f.BoolVar(&o.granular, "granular", false, "collect and print per-instruction statistics")
	f.BoolVar(&o.emulate, "emulate", false, "run on the functional emulator instead of the pipeline")
	f.StringVar(&o.tracePC, "trace-pc", "", "write committed PCs to this file")
	f.StringVar(&o.htmlPath, "html", "", "write an HTML statistics report to this file")
	f.StringVar(&o.dbPath, "db", "", "store the run in this results database")
	f.StringVar(&o.name, "name", "", "run name in the results database (default: binary name)")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	f.StringVar(&o.history, "history-file", filepath.Join(os.TempDir(), "rvsim_history"), "debugger command history")
	f.Uint64Var(&o.maxCycles, "max-cycles", 0, "stop after this many cycles (0: no limit)")

	f.BoolVar(&o.static, "static", false, "predict statically; never train the BHT or BTAC")
	f.BoolVar(&o.no2Level, "no2level", false, "index the BHT by address only")
	f.BoolVar(&o.noForward, "noforward", false, "disable store-to-load forwarding")
	f.BoolVar(&o.clearHistoryOnCall, "clearhistoryoncall", false, "clear the global history on calls")
	f.BoolVar(&o.oneBitBHT, "1bitbht", false, "use one-bit BHT counters")
	f.BoolVar(&o.noSpec, "nospec", false, "never fetch past an unresolved branch")
	f.BoolVar(&o.gshare, "gshare", false, "index the BHT with gshare")
	f.BoolVar(&o.noStoreCheck, "nostorechk", false, "let loads pass stores with unknown addresses (unsafe, results may be wrong)")
	f.BoolVar(&o.permissive, "permissive", false, "turn bad stores into warnings")
	f.BoolVar(&o.dcache, "dcache", false, "model data cache latency")
	return cmd
}

// config builds the core configuration from the base file or preset and
// the feature flags.
func (o *runOptions) config() (*config.Config, error) {
	cfg, err := loadConfig(o.configPath, o.preset)
	if err != nil {
		return nil, err
	}

	ft := &cfg.Features
	ft.BenchOnly = ft.BenchOnly || o.bench
	ft.StaticPrediction = ft.StaticPrediction || o.static
	ft.TwoLevel = ft.TwoLevel && !o.no2Level
	ft.StoreForward = ft.StoreForward && !o.noForward
	ft.ClearHistoryOnCall = ft.ClearHistoryOnCall || o.clearHistoryOnCall
	ft.OneBitBHT = ft.OneBitBHT || o.oneBitBHT
	ft.NoSpec = ft.NoSpec || o.noSpec
	ft.GShare = ft.GShare || o.gshare
	ft.StoreCheck = ft.StoreCheck && !o.noStoreCheck
	ft.Permissive = ft.Permissive || o.permissive
	cfg.DCache.Enabled = cfg.DCache.Enabled || o.dcache

	return cfg, cfg.Validate()
}

func (o *runOptions) run(path string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}

	prog, err := loader.Load(path)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)
	logger := log.New(stderr, lv)
	if !cfg.Features.StoreCheck {
		logger.Warn("store check disabled, loads may read stale memory")
	}

	port := emu.NewStreamDebugPort(stdout, stdin)
	opts := []pipeline.PipelineOption{
		pipeline.WithLogger(logger),
		pipeline.WithLogLevel(lv),
		pipeline.WithTrace(o.loud),
		pipeline.WithPerPCStats(o.granular),
		pipeline.WithDebugPort(port),
		pipeline.WithMaxCycles(o.maxCycles),
	}
	if o.tracePC != "" {
		f, err := os.Create(o.tracePC)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer f.Close()
		opts = append(opts, pipeline.WithCommitTrace(f))
	}

	c, err := core.NewCore(cfg, prog, opts...)
	if err != nil {
		return err
	}

	if o.emulate {
		e, err := c.Golden(emu.WithDebugPort(port))
		if e == nil {
			return err
		}
		fmt.Fprintf(stdout, "Instructions executed: %d (%d in benchmark region)\n",
			e.InstructionCount(), e.BenchInstructions())
		return err
	}

	stop, runErr := o.simulate(c, stdout)

	name := o.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := o.report(name, path, c, stop, runErr, stdout); err != nil {
		return err
	}
	return runErr
}

// simulate runs the core to completion, through the debugger unless bench
// mode is on. Break requests are ignored in bench mode.
func (o *runOptions) simulate(c *core.Core, stdout io.Writer) (pipeline.StopReason, error) {
	if !o.bench {
		rl, err := debugger.NewReadline(o.history)
		if err != nil {
			return pipeline.StopNone, err
		}
		defer rl.Close()

		fmt.Fprintln(stdout, "Press 'c' to begin execution.")
		if err := debugger.New(c, stdout).Run(rl); err != nil {
			return pipeline.StopNone, err
		}
		return runOutcome(c)
	}

	for {
		stop, err := c.Run()
		if err != nil || c.Halted() || stop == pipeline.StopMaxCycles {
			return stop, err
		}
	}
}

// runOutcome recovers the stop reason after an interactive session.
func runOutcome(c *core.Core) (pipeline.StopReason, error) {
	if !c.Halted() {
		return pipeline.StopNone, nil
	}
	return c.Run()
}

func (o *runOptions) report(name, binary string, c *core.Core, stop pipeline.StopReason, runErr error,
	stdout io.Writer) error {
	r := report.New(name, c.Pipeline)
	if err := r.WriteText(stdout); err != nil {
		return err
	}

	if o.granular {
		report.WritePerPC(stdout, c.Pipeline.PerPCStats(), c.Memory())
	}

	if o.htmlPath != "" {
		f, err := os.Create(o.htmlPath)
		if err != nil {
			return err
		}
		err = r.WriteHTML(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
	}

	if o.dbPath != "" {
		store, err := results.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Put(results.NewRecord(name, binary, c.Pipeline, stop, runErr)); err != nil {
			return errors.Join(err, runErr)
		}
	}

	return nil
}
