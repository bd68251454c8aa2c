package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// ALUUnit is a single-cycle arithmetic unit. It is idle when ROBID is NoTag.
type ALUUnit struct {
	Op       insts.Op
	Op1, Op2 uint32
	ROBID    Tag
	Start    uint64
}

// Result computes the unit's output.
func (a *ALUUnit) Result() uint32 {
	v, ok := emu.ALU(a.Op, a.Op1, a.Op2)
	if !ok {
		panic(fmt.Sprintf("pipeline: %s issued to an ALU", a.Op))
	}
	return v
}

// LSUUnit is a load unit. It is idle when ROBID is NoTag.
type LSUUnit struct {
	Op    insts.Op
	Addr  uint32
	ROBID Tag
	Start uint64

	// ReadyAt is the first cycle at which memory may be read.
	ReadyAt uint64

	HasResult bool
	Exception bool
	Result    uint32
}

// BRUUnit resolves branch targets. It is idle when Busy is false.
type BRUUnit struct {
	Busy    bool
	Op      insts.Op
	ToFetch bool

	Op1, Op2 uint32
	ROBID    Tag
	PC       uint32

	// Imm is the taken target of a conditional branch or the JALR offset.
	Imm uint32

	PredTarget uint32
}

// Target computes the actual next PC of the branch.
func (b *BRUUnit) Target() uint32 {
	switch {
	case b.Op == insts.OpJALR:
		return emu.JALRTarget(b.Op1, int32(b.Imm))
	case b.Op.IsBranch():
		return emu.BranchTarget(b.Op, b.PC, b.Imm, b.Op1, b.Op2)
	}
	panic(fmt.Sprintf("pipeline: %s issued to a BRU", b.Op))
}
