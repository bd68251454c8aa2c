package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

// ROBType selects the commit action of a reorder buffer entry.
type ROBType uint8

// ROB entry types.
const (
	ROBInvalid ROBType = iota
	ROBBranch
	ROBStore
	ROBRegister
	ROBDebug
)

func (t ROBType) String() string {
	switch t {
	case ROBBranch:
		return "branch"
	case ROBStore:
		return "store"
	case ROBRegister:
		return "reg"
	case ROBDebug:
		return "debug"
	}
	return "invalid"
}

// BranchKind classifies control-flow entries for statistics.
type BranchKind uint8

// Branch kinds.
const (
	BranchNone BranchKind = iota
	BranchJALR
	BranchJAL
	BranchCond
)

func (k BranchKind) String() string {
	switch k {
	case BranchJALR:
		return "jalr"
	case BranchJAL:
		return "jal"
	case BranchCond:
		return "cond"
	}
	return "-"
}

// PredSource records which predictor supplied a branch prediction.
type PredSource uint8

// Prediction sources.
const (
	PredInvalid PredSource = iota
	PredStatic
	PredNone
	PredBTAC
	PredBHT
	PredRAS
)

func (s PredSource) String() string {
	switch s {
	case PredStatic:
		return "static"
	case PredNone:
		return "none"
	case PredBTAC:
		return "btac"
	case PredBHT:
		return "bht"
	case PredRAS:
		return "ras"
	}
	return "invalid"
}

// Cause describes why an entry is excepting.
type Cause uint8

// Exception causes.
const (
	CauseNone Cause = iota
	CauseFetch
	CauseIllegal
	CauseEnvCall
	CauseLoad
)

func (c Cause) String() string {
	switch c {
	case CauseFetch:
		return "instruction fetch out of bounds"
	case CauseIllegal:
		return "illegal instruction"
	case CauseEnvCall:
		return "unsupported environment call"
	case CauseLoad:
		return "load from null or out-of-bounds address"
	}
	return "none"
}

// BranchControl holds the commit-time intent of a control-flow entry.
type BranchControl struct {
	// ConsiderPrediction makes commit flush when the prediction was wrong.
	ConsiderPrediction Tristate

	// ChangeBHT makes commit train the BHT as well as the BTAC.
	ChangeBHT Tristate

	// PredTaken is the predicted direction. Only set with ChangeBHT.
	PredTaken Tristate

	// History is the global history before this branch was shifted in.
	History uint32
}

// ROBEntry is one reorder buffer slot.
type ROBEntry struct {
	ID   Tag
	PC   uint32
	Word uint32
	Type ROBType

	// Dest is the destination register of REGISTER and DEBUG entries.
	Dest uint8

	// Value is the result of a REGISTER entry or the data of a STORE.
	Value uint32

	// Addr is the store address; 0 until the store has completed.
	Addr       uint32
	StoreWidth uint32

	PredTarget uint32
	ActTarget  uint32

	DebugOp      uint32
	DebugOperand uint32

	Ready     bool
	Exception bool
	Cause     Cause

	Branch     BranchControl
	BranchKind BranchKind
	PredSource PredSource

	// Call and Return mark link-register jumps for call depth tracking.
	Call   bool
	Return bool

	// BTACAgreed marks a return whose fetch-time BTAC entry matched the
	// RAS prediction.
	BTACAgreed bool

	WasLoad bool

	// Link marks the return-address entry of a JAL or JALR. It retires with
	// its jump and is not counted separately.
	Link bool
}

// markReady completes an entry with val, which is the register value or the
// actual branch target depending on the entry type.
func (e *ROBEntry) markReady(val uint32) {
	if e.Ready {
		panic(fmt.Sprintf("pipeline: ROB entry %d completed twice", e.ID))
	}

	e.Ready = true
	switch e.Type {
	case ROBRegister:
		e.Value = val
	case ROBBranch:
		e.ActTarget = val
	default:
		panic(fmt.Sprintf("pipeline: ROB entry %d of type %s takes no result", e.ID, e.Type))
	}
}

func (e *ROBEntry) String() string {
	s := fmt.Sprintf("#%d pc=0x%x %s %s", e.ID, e.PC, e.Type, insts.Disassemble(e.Word, e.PC))
	switch e.Type {
	case ROBRegister:
		s += fmt.Sprintf(" %s=0x%x", insts.RegName(e.Dest), e.Value)
	case ROBStore:
		s += fmt.Sprintf(" [0x%x]=0x%x", e.Addr, e.Value)
	case ROBBranch:
		s += fmt.Sprintf(" pred=0x%x act=0x%x", e.PredTarget, e.ActTarget)
	case ROBDebug:
		s += fmt.Sprintf(" op=%s arg=0x%x", insts.DebugOp(e.DebugOp), e.DebugOperand)
	}
	if e.Ready {
		s += " ready"
	}
	if e.Exception {
		s += " exception(" + e.Cause.String() + ")"
	}
	return s
}

// robFree reports whether n more entries can be allocated this cycle.
func (p *Pipeline) robFree(n int) bool {
	mask := len(p.next.ROB) - 1
	for i := 1; i <= n; i++ {
		if (p.next.ROBHead+i)&mask == p.curr.ROBTail {
			return false
		}
	}
	return true
}

// allocROB claims the slot at the head of next's ROB.
func (p *Pipeline) allocROB(typ ROBType, fi *FetchedInst) *ROBEntry {
	next := p.next
	mask := len(next.ROB) - 1

	e := &next.ROB[next.ROBHead]
	*e = ROBEntry{
		ID:   Tag(next.ROBHead + 1),
		PC:   fi.PC,
		Word: fi.Word,
		Type: typ,
	}
	if typ == ROBBranch {
		e.Branch.History = next.GlobalHistory
	}

	next.ROBHead = (next.ROBHead + 1) & mask
	if next.ROBHead == p.curr.ROBTail {
		panic("pipeline: ROB overflow")
	}
	return e
}

// rename makes e the producer of rd.
func (p *Pipeline) rename(e *ROBEntry, rd uint8) {
	if rd == insts.RegZero {
		return
	}
	e.Dest = rd
	p.next.ARF[rd].Tag = e.ID
}

// liveROB calls fn for every live entry of s, oldest first. Iteration stops
// when fn returns false.
func (s *State) liveROB(fn func(i int, e *ROBEntry) bool) {
	mask := len(s.ROB) - 1
	for i := s.ROBTail; i != s.ROBHead; i = (i + 1) & mask {
		if !fn(i, &s.ROB[i]) {
			return
		}
	}
}

// ROBOccupancy returns the number of live entries.
func (s *State) ROBOccupancy() int {
	return (s.ROBHead - s.ROBTail) & (len(s.ROB) - 1)
}
