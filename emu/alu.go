package emu

import "github.com/sarchlab/rvsim/insts"

// ALU evaluates an RV32I arithmetic or logic operation. Register-immediate
// operations take the immediate (or shift amount) as b. The second result is
// false when op is not an ALU operation.
func ALU(op insts.Op, a, b uint32) (uint32, bool) {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return a + b, true
	case insts.OpSUB:
		return a - b, true
	case insts.OpSLT, insts.OpSLTI:
		return boolWord(int32(a) < int32(b)), true
	case insts.OpSLTU, insts.OpSLTIU:
		return boolWord(a < b), true
	case insts.OpXOR, insts.OpXORI:
		return a ^ b, true
	case insts.OpOR, insts.OpORI:
		return a | b, true
	case insts.OpAND, insts.OpANDI:
		return a & b, true
	case insts.OpSLL, insts.OpSLLI:
		return a << (b & 0x1F), true
	case insts.OpSRL, insts.OpSRLI:
		return a >> (b & 0x1F), true
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(a) >> (b & 0x1F)), true
	}

	return 0, false
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
