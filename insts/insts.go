// Package insts provides RV32I instruction definitions, decoding and encoding.
//
// This package turns 32-bit RISC-V machine words into structured instruction
// representations and back. It supports:
//   - Integer register-register and register-immediate ALU operations
//   - LUI and AUIPC
//   - Loads and stores of bytes, halfwords and words
//   - Conditional branches, JAL and JALR
//   - FENCE (treated as a no-op), ECALL and EBREAK
//
// The Assembler builds small programs with labels, which the simulator's
// tests and built-in kernels use instead of an external toolchain.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02A00093) // addi ra, zero, 42
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts

// ABI register numbers used by the simulator.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegGP   uint8 = 3
	RegTP   uint8 = 4
	RegT0   uint8 = 5
	RegT1   uint8 = 6
	RegT2   uint8 = 7
	RegS0   uint8 = 8
	RegS1   uint8 = 9
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA4   uint8 = 14
	RegA5   uint8 = 15
	RegA6   uint8 = 16
	RegA7   uint8 = 17
	RegS2   uint8 = 18
	RegT3   uint8 = 28
	RegT4   uint8 = 29
	RegT5   uint8 = 30
	RegT6   uint8 = 31
)

// NumRegs is the number of integer registers.
const NumRegs = 32

var regNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of an integer register.
func RegName(reg uint8) string {
	if int(reg) >= NumRegs {
		return "?"
	}
	return regNames[reg]
}

// IsLinkReg reports whether reg is one of the return-address registers
// (ra or t0) that the return address stack tracks.
func IsLinkReg(reg uint8) bool {
	return reg == RegRA || reg == RegT0
}
