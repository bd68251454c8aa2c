package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/exp/slices"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/log"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/latency"
)

var (
	// ErrFault is wrapped by every fault that reaches commit.
	ErrFault = errors.New("fault")
	// ErrNullStore is returned for a committed store to the null address.
	ErrNullStore = errors.New("store to null address")
	// ErrProtocolViolation is returned for debug requests with an unknown
	// operation.
	ErrProtocolViolation = emu.ErrProtocolViolation
)

// StopReason tells why Run returned.
type StopReason uint8

// Stop reasons.
const (
	StopNone StopReason = iota
	StopQuit
	StopBreak
	StopBenchEnd
	StopAbort
	StopFault
	StopProtocol
	StopMaxCycles
	StopBreakpoint
)

func (r StopReason) String() string {
	switch r {
	case StopQuit:
		return "quit"
	case StopBreak:
		return "break"
	case StopBenchEnd:
		return "bench end"
	case StopAbort:
		return "abort"
	case StopFault:
		return "fault"
	case StopProtocol:
		return "protocol violation"
	case StopMaxCycles:
		return "max cycles"
	case StopBreakpoint:
		return "breakpoint"
	}
	return "none"
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithConfig sets the core configuration. The pipeline keeps its own copy.
func WithConfig(cfg *config.Config) PipelineOption {
	return func(p *Pipeline) {
		p.cfg = cfg.Clone()
	}
}

// WithDebugPort sets the host side of the debug protocol.
func WithDebugPort(port emu.DebugPort) PipelineOption {
	return func(p *Pipeline) {
		p.debug = port
	}
}

// WithLogger sets the logger. Per-cycle tracing is logged at LevelTrace.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithLogLevel hands the pipeline the level variable its logger's handler
// filters on. SetTrace lowers it to LevelTrace and restores it afterwards.
func WithLogLevel(level *slog.LevelVar) PipelineOption {
	return func(p *Pipeline) {
		p.level = level
	}
}

// WithTrace turns per-cycle tracing on from the first cycle.
func WithTrace(on bool) PipelineOption {
	return func(p *Pipeline) {
		p.traceOn = on
	}
}

// WithCommitTrace writes the PC of every retired instruction to w, one hex
// address per line.
func WithCommitTrace(w io.Writer) PipelineOption {
	return func(p *Pipeline) {
		p.commitTrace = w
	}
}

// WithPerPCStats enables the per-instruction-address counters.
func WithPerPCStats(on bool) PipelineOption {
	return func(p *Pipeline) {
		p.perPCOn = on
	}
}

// WithLatencyTable sets a custom load latency model.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latency = table
	}
}

// WithImageEnd sets the end of the loaded program image. Stores below it
// are reported.
func WithImageEnd(end uint32) PipelineOption {
	return func(p *Pipeline) {
		p.imageEnd = end
	}
}

// WithMaxCycles makes Run stop once the clock reaches n. 0 means no limit.
func WithMaxCycles(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = n
	}
}

// Pipeline is a cycle-level model of an out-of-order RV32I core.
//
// Instructions are fetched and decoded in order, wait in reservation
// stations (loads in the load buffer) until their operands are broadcast on
// the common data bus, execute out of order, and retire in program order
// from the reorder buffer. Branches are predicted with a BHT, a BTAC and a
// return address stack; a mispredicted branch flushes all younger state
// when it commits.
type Pipeline struct {
	cfg *config.Config

	memory  *emu.Memory
	debug   emu.DebugPort
	decoder *insts.Decoder
	latency *latency.Table
	bp      *BranchPredictor
	hazard  HazardUnit

	curr, next *State

	logger     *slog.Logger
	level      *slog.LevelVar
	quietLevel slog.Level
	traceOn    bool

	commitTrace io.Writer
	imageEnd    uint32
	maxCycles   uint64

	perPCOn   bool
	perPC     map[uint32]*PerPCStats
	scratchPC PerPCStats

	breakpoints map[uint32]bool

	stop   StopReason
	err    error
	halted bool
}

// NewPipeline creates a pipeline operating on memory.
func NewPipeline(memory *emu.Memory, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		cfg:         config.DefaultConfig(),
		memory:      memory,
		decoder:     insts.NewDecoder(),
		logger:      log.Discard(),
		breakpoints: make(map[uint32]bool),
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	if p.debug == nil {
		p.debug = emu.NewStreamDebugPort(nil, nil)
	}
	if p.latency == nil {
		p.latency = latency.NewTable(p.cfg)
	}
	if p.perPCOn {
		p.perPC = make(map[uint32]*PerPCStats)
	}
	if p.traceOn {
		p.traceOn = false
		p.SetTrace(true)
	}

	p.bp = NewBranchPredictor(PredictorConfigFrom(p.cfg))
	p.hazard = HazardUnit{
		StoreCheck:   p.cfg.Features.StoreCheck,
		StoreForward: p.cfg.Features.StoreForward,
	}
	p.curr = NewState(p.cfg)
	p.next = NewState(p.cfg)

	return p, nil
}

// SetPC makes fetch start at pc on the next cycle.
func (p *Pipeline) SetPC(pc uint32) {
	p.curr.FetchWaitROBMispredict = true
	p.curr.PCROBMispredict = redirectTo(pc)
}

// SetReg sets the committed value of an architectural register.
func (p *Pipeline) SetReg(reg uint8, value uint32) {
	if reg == insts.RegZero {
		return
	}
	p.curr.ARF[reg].Value = value
}

// Reg returns the committed value of an architectural register.
func (p *Pipeline) Reg(reg uint8) uint32 {
	return p.curr.ARF[reg].Value
}

// Tick advances the pipeline by one cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	curr, next := p.curr, p.next
	next.reset()
	next.carry(curr)

	p.age()
	p.propagate()
	p.fetch()
	p.decode()
	next.RAS.apply(&curr.RAS)
	p.execute()
	p.commit()

	p.curr, p.next = next, curr
}

// Run ticks until the program stops, pauses or faults.
func (p *Pipeline) Run() (StopReason, error) {
	if p.halted {
		return p.stop, p.err
	}

	p.stop, p.err = StopNone, nil
	for p.stop == StopNone {
		if p.maxCycles > 0 && p.curr.Clock >= p.maxCycles {
			p.pause(StopMaxCycles, nil)
			break
		}
		p.Tick()
	}

	return p.stop, p.err
}

// RunCycles ticks at most n cycles. It returns StopNone when all n cycles
// ran without the program stopping.
func (p *Pipeline) RunCycles(n uint64) (StopReason, error) {
	if p.halted {
		return p.stop, p.err
	}

	p.stop, p.err = StopNone, nil
	for i := uint64(0); i < n && p.stop == StopNone; i++ {
		p.Tick()
	}

	return p.stop, p.err
}

func (p *Pipeline) pause(reason StopReason, err error) {
	p.stop = reason
	p.err = err
	p.logger.Debug("pause", log.ModKey, log.ModCommit, "reason", reason.String(), "clock", p.next.Clock)
}

// Halted reports whether the program has stopped for good.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Clock returns the current cycle.
func (p *Pipeline) Clock() uint64 {
	return p.curr.Clock
}

// Stats returns the performance counters.
func (p *Pipeline) Stats() Statistics {
	return p.curr.Stats
}

// State returns a copy of the current machine state.
func (p *Pipeline) State() *State {
	return p.curr.Clone()
}

// Memory returns the memory the pipeline operates on.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Config returns a copy of the core configuration.
func (p *Pipeline) Config() *config.Config {
	return p.cfg.Clone()
}

// Latency returns the load latency model.
func (p *Pipeline) Latency() *latency.Table {
	return p.latency
}

// PerPCStats returns a copy of the per-address counters, or nil when they
// are disabled.
func (p *Pipeline) PerPCStats() map[uint32]PerPCStats {
	if p.perPC == nil {
		return nil
	}

	out := make(map[uint32]PerPCStats, len(p.perPC))
	for pc, s := range p.perPC {
		out[pc] = *s
	}
	return out
}

// SetTrace turns per-cycle tracing on or off. With a level variable set,
// the logger is opened to LevelTrace while tracing is on.
func (p *Pipeline) SetTrace(on bool) {
	if on == p.traceOn {
		return
	}
	p.traceOn = on

	if p.level == nil {
		return
	}
	if on {
		p.quietLevel = p.level.Level()
		p.level.Set(min(p.quietLevel, log.LevelTrace))
		return
	}
	p.level.Set(p.quietLevel)
}

// Tracing reports whether per-cycle tracing is on.
func (p *Pipeline) Tracing() bool {
	return p.traceOn
}

// ToggleBreakpoint sets or clears a breakpoint on pc and returns whether it
// is now set. The pipeline pauses after an instruction at a breakpoint
// retires.
func (p *Pipeline) ToggleBreakpoint(pc uint32) bool {
	if p.breakpoints[pc] {
		delete(p.breakpoints, pc)
		return false
	}
	p.breakpoints[pc] = true
	return true
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (p *Pipeline) Breakpoints() []uint32 {
	pcs := make([]uint32, 0, len(p.breakpoints))
	for pc := range p.breakpoints {
		pcs = append(pcs, pc)
	}
	slices.Sort(pcs)
	return pcs
}

func (p *Pipeline) trace(mod, msg string, args ...any) {
	if !p.traceOn {
		return
	}
	p.logger.Log(context.Background(), log.LevelTrace, msg, append([]any{log.ModKey, mod}, args...)...)
}

func hex(v uint32) string {
	return fmt.Sprintf("0x%x", v)
}
