// Package emu provides functional RV32I emulation.
package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

var (
	// ErrUnknownInstruction is returned for words that do not decode.
	ErrUnknownInstruction = errors.New("unknown instruction")
	// ErrNullAccess is returned for loads from and stores to address 0.
	ErrNullAccess = errors.New("null pointer access")
	// ErrAbort is returned when the program reports a failed assertion.
	ErrAbort = errors.New("program assertion failed")
	// ErrProtocolViolation is returned for debug requests with an unknown
	// operation.
	ErrProtocolViolation = errors.New("debug protocol violation")
	// ErrMaxInstructions is returned when the instruction limit is reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program requested to stop.
	Exited bool

	// Break is true if the program requested a breakpoint or ended a
	// benchmark region outside bench-only mode.
	Break bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV32I instructions functionally, one at a time and in
// program order. It serves as the reference model for the timing pipeline.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	debug   DebugPort

	benchOnly bool

	instructionCount uint64
	benchStart       uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory makes the emulator operate on an existing memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithDebugPort sets the host side of the debug protocol.
func WithDebugPort(p DebugPort) EmulatorOption {
	return func(e *Emulator) {
		e.debug = p
	}
}

// WithBenchOnly makes the end of a benchmark region stop the program.
func WithBenchOnly(benchOnly bool) EmulatorOption {
	return func(e *Emulator) {
		e.benchOnly = benchOnly
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new RV32I emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory(DefaultMemorySize)
	}
	if e.debug == nil {
		e.debug = NewStreamDebugPort(nil, nil)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// BenchInstructions returns the number of instructions executed since the
// last benchmark-begin request.
func (e *Emulator) BenchInstructions() uint64 {
	return e.instructionCount - e.benchStart
}

// LoadProgram copies image to offset and starts execution at entry.
func (e *Emulator) LoadProgram(offset uint32, image []byte, entry uint32) error {
	if err := e.memory.LoadImage(offset, image); err != nil {
		return err
	}

	e.regFile.PC = entry
	return nil
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	pc := e.regFile.PC
	word, err := e.memory.Read(pc, 4)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at PC=0x%08x: %w", pc, err)}
	}

	inst := e.decoder.Decode(word)
	result := e.execute(inst)
	if result.Err != nil {
		result.Err = fmt.Errorf("PC=0x%08x: %w", pc, result.Err)
		return result
	}

	e.instructionCount++
	return result
}

// Run executes instructions until the program stops or an error occurs.
// Breakpoint requests are ignored.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Exited {
			return nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	rf := e.regFile
	pc := rf.PC
	rs1 := rf.ReadReg(inst.Rs1)
	rs2 := rf.ReadReg(inst.Rs2)
	next := pc + 4

	switch inst.Class {
	case insts.ClassALU:
		v, _ := ALU(inst.Op, rs1, rs2)
		rf.WriteReg(inst.Rd, v)
	case insts.ClassALUImm:
		v, _ := ALU(inst.Op, rs1, uint32(inst.Imm))
		rf.WriteReg(inst.Rd, v)
	case insts.ClassLUI:
		rf.WriteReg(inst.Rd, uint32(inst.Imm))
	case insts.ClassAUIPC:
		rf.WriteReg(inst.Rd, pc+uint32(inst.Imm))
	case insts.ClassJAL:
		rf.WriteReg(inst.Rd, pc+4)
		next = pc + uint32(inst.Imm)
	case insts.ClassJALR:
		next = JALRTarget(rs1, inst.Imm)
		rf.WriteReg(inst.Rd, pc+4)
	case insts.ClassBranch:
		next = BranchTarget(inst.Op, pc, pc+uint32(inst.Imm), rs1, rs2)
	case insts.ClassLoad:
		v, err := Load(e.memory, inst.Op, EffectiveAddress(rs1, inst.Imm))
		if err != nil {
			return StepResult{Err: err}
		}
		rf.WriteReg(inst.Rd, v)
	case insts.ClassStore:
		addr := EffectiveAddress(rs1, inst.Imm)
		if addr == NullAddress {
			return StepResult{Err: ErrNullAccess}
		}
		if err := e.memory.Write(addr, inst.Op.MemWidth(), rs2); err != nil {
			return StepResult{Err: err}
		}
	case insts.ClassFence:
	case insts.ClassSystem:
		if inst.Op != insts.OpEBREAK {
			return StepResult{Err: fmt.Errorf("%w: %s", ErrUnknownInstruction, inst.Op)}
		}
		result := e.debugRequest()
		if result.Err != nil {
			return result
		}
		rf.PC = next
		return result
	default:
		return StepResult{Err: fmt.Errorf("%w: 0x%08x", ErrUnknownInstruction, inst.Word)}
	}

	rf.PC = next
	return StepResult{}
}

func (e *Emulator) debugRequest() StepResult {
	op := insts.DebugOp(e.regFile.ReadReg(insts.RegT3))
	operand := e.regFile.ReadReg(insts.RegT4)

	switch op {
	case insts.DebugBreak:
		return StepResult{Break: true}
	case insts.DebugQuit:
		return StepResult{Exited: true}
	case insts.DebugAbort:
		return StepResult{Err: ErrAbort}
	case insts.DebugPrint:
		s, err := e.memory.CString(operand)
		if err != nil {
			return StepResult{Err: err}
		}
		if err := e.debug.Print(s); err != nil {
			return StepResult{Err: err}
		}
	case insts.DebugBenchBegin:
		e.benchStart = e.instructionCount + 1
	case insts.DebugBenchEnd:
		if e.benchOnly {
			return StepResult{Exited: true}
		}
		return StepResult{Break: true}
	case insts.DebugInput:
		ch, err := e.debug.Input()
		if err != nil {
			return StepResult{Err: err}
		}
		e.regFile.WriteReg(insts.RegT3, ch)
	default:
		return StepResult{Err: fmt.Errorf("%w: %d", ErrProtocolViolation, uint32(op))}
	}

	return StepResult{}
}
