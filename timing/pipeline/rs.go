package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// RSKind selects the functional unit that consumes a reservation station.
type RSKind uint8

// Reservation station kinds. Loads live in the load buffer.
const (
	RSInvalid RSKind = iota
	RSLoad
	RSStore
	RSALU
	RSBranch
	RSDebug
)

func (k RSKind) String() string {
	switch k {
	case RSLoad:
		return "load"
	case RSStore:
		return "store"
	case RSALU:
		return "alu"
	case RSBranch:
		return "branch"
	case RSDebug:
		return "debug"
	}
	return "invalid"
}

// RSEntry is a reservation station or load buffer entry.
type RSEntry struct {
	Busy bool
	Kind RSKind
	Op   insts.Op

	// ToFetch marks a JALR whose target fetch is waiting for.
	ToFetch bool

	// Qj and Qk name the producers of the operands; NoTag once Vj and Vk
	// hold the values.
	Qj, Qk Tag
	Vj, Vk uint32

	// Imm is the memory offset, the JALR offset, or the taken target of a
	// conditional branch.
	Imm uint32

	// Addr is the effective address of a load or store once its base is
	// known, 0 before.
	Addr uint32

	PredTarget uint32

	ROBID Tag
	Clock uint64
	PC    uint32
}

// Ready reports whether both operands are available.
func (r *RSEntry) Ready() bool {
	return r.Qj == NoTag && r.Qk == NoTag
}

func (r *RSEntry) String() string {
	s := fmt.Sprintf("#%d %s %s pc=0x%x", r.ROBID, r.Kind, r.Op, r.PC)
	if r.Qj != NoTag {
		s += fmt.Sprintf(" qj=#%d", r.Qj)
	} else {
		s += fmt.Sprintf(" vj=0x%x", r.Vj)
	}
	if r.Qk != NoTag {
		s += fmt.Sprintf(" qk=#%d", r.Qk)
	} else {
		s += fmt.Sprintf(" vk=0x%x", r.Vk)
	}
	if r.Kind == RSLoad || r.Kind == RSStore {
		s += fmt.Sprintf(" addr=0x%x", r.Addr)
	}
	return s
}

// resolve fills a waiting operand from a broadcast. Loads and stores compute
// their address once the base arrives.
func (r *RSEntry) resolve(cdb []CDBSlot) {
	if r.Qj != NoTag {
		if slot := findCDB(cdb, r.Qj); slot != nil {
			r.Qj = NoTag
			r.Vj = slot.Value
			if r.Kind == RSLoad || r.Kind == RSStore {
				r.Addr = emu.EffectiveAddress(r.Vj, int32(r.Imm))
			}
		}
	}
	if r.Qk != NoTag {
		if slot := findCDB(cdb, r.Qk); slot != nil {
			r.Qk = NoTag
			r.Vk = slot.Value
		}
	}
}

// allocRS claims a reservation station that is free in both buffers.
func (p *Pipeline) allocRS() *RSEntry {
	for i := range p.next.RS {
		if !p.curr.RS[i].Busy && !p.next.RS[i].Busy {
			return &p.next.RS[i]
		}
	}
	return nil
}

// rsFree reports whether allocRS would succeed.
func (p *Pipeline) rsFree() bool {
	for i := range p.next.RS {
		if !p.curr.RS[i].Busy && !p.next.RS[i].Busy {
			return true
		}
	}
	return false
}

// pickRS removes the oldest ready station of the given kind and returns its
// state as of the previous cycle.
func (p *Pipeline) pickRS(kind RSKind) (RSEntry, bool) {
	best := -1
	for i := range p.curr.RS {
		rs := &p.curr.RS[i]
		if !rs.Busy || rs.Kind != kind || !rs.Ready() || !p.next.RS[i].Busy {
			continue
		}
		if best < 0 || rs.Clock < p.curr.RS[best].Clock {
			best = i
		}
	}
	if best < 0 {
		return RSEntry{}, false
	}

	p.next.RS[best] = RSEntry{}
	return p.curr.RS[best], true
}

// allocLDB claims the load buffer slot at the head of next's ring.
func (p *Pipeline) allocLDB() *RSEntry {
	next := p.next
	mask := len(next.LDB) - 1
	if (next.LDBHead+1)&mask == p.curr.LDBTail || next.LDB[next.LDBHead].Busy {
		return nil
	}

	e := &next.LDB[next.LDBHead]
	next.LDBHead = (next.LDBHead + 1) & mask
	return e
}

// ldbFree reports whether allocLDB would succeed.
func (p *Pipeline) ldbFree() bool {
	next := p.next
	mask := len(next.LDB) - 1
	return (next.LDBHead+1)&mask != p.curr.LDBTail && !next.LDB[next.LDBHead].Busy
}

// pickLDB removes the oldest load if its base register is available.
func (p *Pipeline) pickLDB() (RSEntry, bool) {
	curr, next := p.curr, p.next
	tail := next.LDBTail
	if curr.LDBHead == tail {
		return RSEntry{}, false
	}

	e := curr.LDB[tail]
	if !e.Ready() || !next.LDB[tail].Busy {
		return RSEntry{}, false
	}
	if !e.Busy {
		panic(fmt.Sprintf("pipeline: load buffer slot %d is live but not busy", tail))
	}

	next.LDB[tail] = RSEntry{}
	next.LDBTail = (tail + 1) & (len(next.LDB) - 1)
	return e, true
}

// LDBOccupancy returns the number of loads waiting in the buffer.
func (s *State) LDBOccupancy() int {
	return (s.LDBHead - s.LDBTail) & (len(s.LDB) - 1)
}
