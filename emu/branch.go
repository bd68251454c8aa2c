package emu

import "github.com/sarchlab/rvsim/insts"

// BranchTaken evaluates the condition of a conditional branch.
func BranchTaken(op insts.Op, a, b uint32) bool {
	switch op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	case insts.OpBLT:
		return int32(a) < int32(b)
	case insts.OpBGE:
		return int32(a) >= int32(b)
	case insts.OpBLTU:
		return a < b
	case insts.OpBGEU:
		return a >= b
	}
	return false
}

// BranchTarget returns the next PC of a conditional branch at pc whose taken
// target is target.
func BranchTarget(op insts.Op, pc, target, a, b uint32) uint32 {
	if BranchTaken(op, a, b) {
		return target
	}
	return pc + 4
}

// JALRTarget computes the target of jalr with the given base register value.
func JALRTarget(base uint32, imm int32) uint32 {
	return (base + uint32(imm)) &^ 1
}
