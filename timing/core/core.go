// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the number of cycles in the measured region.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of commit cycles blocked on the ROB tail.
	Stalls uint64
	// Flushes is the number of speculative entries discarded.
	Flushes uint64
	// IPC is the retired instructions per cycle.
	IPC float64
}

// Core represents a cycle-accurate CPU core model running one program.
type Core struct {
	// Pipeline is the underlying out-of-order pipeline.
	Pipeline *pipeline.Pipeline

	cfg     *config.Config
	program *loader.Program
	opts    []pipeline.PipelineOption
	memory  *emu.Memory
}

// NewCore creates a core with a fresh memory holding prog. The stack and
// thread pointers are set from cfg and execution starts at prog's entry.
func NewCore(cfg *config.Config, prog *loader.Program, opts ...pipeline.PipelineOption) (*Core, error) {
	c := &Core{
		cfg:     cfg.Clone(),
		program: prog,
		opts:    opts,
	}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset reloads the program into a fresh memory and rebuilds the pipeline.
func (c *Core) Reset() error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	memory := emu.NewMemory(c.cfg.MemorySize)
	if err := c.program.LoadInto(memory); err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	opts := append([]pipeline.PipelineOption{
		pipeline.WithConfig(c.cfg),
		pipeline.WithImageEnd(c.program.End()),
	}, c.opts...)
	p, err := pipeline.NewPipeline(memory, opts...)
	if err != nil {
		return err
	}

	p.SetPC(c.program.Entry)
	p.SetReg(insts.RegSP, c.cfg.StackPointer())
	p.SetReg(insts.RegTP, c.cfg.ThreadPointer())

	c.Pipeline = p
	c.memory = memory
	return nil
}

// Memory returns the memory the core runs on.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Program returns the loaded program.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the program has stopped for good.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	clock := c.Pipeline.Clock()
	s := c.Pipeline.Stats()
	return Stats{
		Cycles:       s.Cycles(clock),
		Instructions: s.Retired,
		Stalls:       s.Stalled,
		Flushes:      s.Flushed,
		IPC:          s.IPC(clock),
	}
}

// Run executes the core until the program stops or pauses.
func (c *Core) Run() (pipeline.StopReason, error) {
	return c.Pipeline.Run()
}

// RunCycles executes the core for at most the specified number of cycles.
// It returns true while the program is still running.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	reason, err := c.Pipeline.RunCycles(cycles)
	return reason == pipeline.StopNone && !c.Pipeline.Halted(), err
}

// Golden runs the loaded program on the functional emulator with the same
// memory size and initial registers, for comparison with the pipeline.
func (c *Core) Golden(opts ...emu.EmulatorOption) (*emu.Emulator, error) {
	opts = append([]emu.EmulatorOption{
		emu.WithMemory(emu.NewMemory(c.cfg.MemorySize)),
		emu.WithBenchOnly(c.cfg.Features.BenchOnly),
	}, opts...)
	e := emu.NewEmulator(opts...)

	if err := c.program.LoadInto(e.Memory()); err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	e.RegFile().PC = c.program.Entry
	e.RegFile().WriteReg(insts.RegSP, c.cfg.StackPointer())
	e.RegFile().WriteReg(insts.RegTP, c.cfg.ThreadPointer())

	return e, e.Run()
}

// Matches reports the first architectural difference between the core and
// a finished emulator, or nil when registers and memory agree.
func (c *Core) Matches(e *emu.Emulator) error {
	for r := uint8(1); r < insts.NumRegs; r++ {
		got, want := c.Pipeline.Reg(r), e.RegFile().ReadReg(r)
		if got != want {
			return fmt.Errorf("register %s: pipeline 0x%x, emulator 0x%x", insts.RegName(r), got, want)
		}
	}
	if !c.memory.Equal(e.Memory()) {
		return fmt.Errorf("memory contents differ")
	}
	return nil
}
