// Package emu provides functional RV32I emulation.
package emu

import "github.com/sarchlab/rvsim/insts"

// RegFile represents the RV32I integer register file and program counter.
type RegFile struct {
	// X holds the integer registers. X[0] is hard-wired to zero.
	X [insts.NumRegs]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 and out-of-range registers
// read as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || int(reg) >= insts.NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a register value. Writes to register 0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || int(reg) >= insts.NumRegs {
		return
	}
	r.X[reg] = value
}
