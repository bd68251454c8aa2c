package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/log"
)

// age carries the reservation stations and load buffer into next, filling
// operands broadcast on curr's bus, and counts why each entry is waiting.
func (p *Pipeline) age() {
	curr, next := p.curr, p.next
	stats := &next.Stats

	for i := range curr.RS {
		rs := curr.RS[i]
		if !rs.Busy {
			continue
		}

		pc := p.pcStats(rs.PC)
		if rs.Ready() {
			stats.WaitEx++
			pc.ExStall++
		} else {
			stats.WaitArgs++
			pc.ArgStall++
		}

		rs.resolve(curr.CDB)
		if rs.Kind == RSStore && rs.Addr != 0 {
			next.ROB[int(rs.ROBID)-1].Addr = rs.Addr
		}
		next.RS[i] = rs
	}

	copy(next.LDB, curr.LDB)
	curr.eachLoad(func(i int) {
		ld := &next.LDB[i]
		if !ld.Ready() {
			stats.WaitArgs++
			p.pcStats(ld.PC).ArgStall++
		}
		ld.resolve(curr.CDB)
	})
}

// eachLoad calls fn with the index of every live load buffer slot.
func (s *State) eachLoad(fn func(i int)) {
	mask := len(s.LDB) - 1
	for i := s.LDBTail; i != s.LDBHead; i = (i + 1) & mask {
		fn(i)
	}
}

// inROB reports whether the entry tagged t is live in s.
func (s *State) inROB(t Tag) bool {
	mask := len(s.ROB) - 1
	idx := int(t) - 1
	return (idx-s.ROBTail)&mask < (s.ROBHead-s.ROBTail)&mask
}

// propagate completes the ROB entries whose results are on curr's bus.
func (p *Pipeline) propagate() {
	curr, next := p.curr, p.next

	for _, slot := range curr.CDB {
		if slot.Tag == NoTag || !curr.inROB(slot.Tag) {
			continue
		}

		e := &next.ROB[int(slot.Tag)-1]
		if e.Type == ROBStore || e.Type == ROBDebug {
			panic(fmt.Sprintf("pipeline: broadcast for %s entry %d", e.Type, e.ID))
		}

		e.markReady(slot.Value)
		if slot.Exception {
			e.Exception = true
			e.Cause = CauseLoad
		}
	}
}

func (p *Pipeline) execute() {
	for i := range p.next.ALUs {
		p.stepALU(i)
	}
	for i := range p.next.LSUs {
		p.stepLSU(i)
	}
	for i := range p.next.BRUs {
		p.stepBRU(i)
	}
	p.completeStore()
	p.completeDebug()
}

func (p *Pipeline) stepALU(i int) {
	curr, next := p.curr, p.next

	if u := curr.ALUs[i]; u.ROBID != NoTag {
		slot := p.freeCDB()
		if slot == nil {
			next.Stats.WaitCDB++
			next.ALUs[i] = u
			return
		}
		*slot = CDBSlot{Tag: u.ROBID, Value: u.Result()}
		p.trace(log.ModALU, "broadcast", "unit", i, "rob", u.ROBID, "value", hex(slot.Value))
	}

	rs, ok := p.pickRS(RSALU)
	if !ok {
		return
	}
	next.ALUs[i] = ALUUnit{
		Op:    rs.Op,
		Op1:   rs.Vj,
		Op2:   rs.Vk,
		ROBID: rs.ROBID,
		Start: curr.Clock,
	}
}

func (p *Pipeline) stepLSU(i int) {
	curr, next := p.curr, p.next
	u := curr.LSUs[i]

	if u.ROBID == NoTag {
		ld, ok := p.pickLDB()
		if !ok {
			return
		}
		next.LSUs[i] = LSUUnit{
			Op:      ld.Op,
			Addr:    ld.Addr,
			ROBID:   ld.ROBID,
			Start:   curr.Clock,
			ReadyAt: curr.Clock + p.latency.LoadLatency(ld.Addr),
		}
		return
	}

	if u.HasResult {
		slot := p.freeCDB()
		if slot == nil {
			next.Stats.WaitCDB++
			next.LSUs[i] = u
			return
		}
		*slot = CDBSlot{Tag: u.ROBID, Value: u.Result, Exception: u.Exception}
		p.trace(log.ModLSU, "broadcast", "unit", i, "rob", u.ROBID, "value", hex(u.Result))
		return
	}

	hazard, v := p.hazard.Check(curr, u.ROBID, u.Op, u.Addr)
	switch hazard {
	case HazardForward:
		u.Result = v
		u.HasResult = true
		p.trace(log.ModLSU, "forward", "rob", u.ROBID, "addr", hex(u.Addr), "value", hex(v))
	case HazardStoreAddr:
		next.Stats.WaitStoreAddr++
	case HazardStoreData:
		next.Stats.WaitStoreData++
	default:
		if curr.Clock >= u.ReadyAt {
			v, err := emu.Load(p.memory, u.Op, u.Addr)
			u.Result = v
			u.HasResult = true
			if err != nil {
				u.Exception = true
				p.trace(log.ModLSU, "load fault", "rob", u.ROBID, "addr", hex(u.Addr))
			}
		}
	}
	next.LSUs[i] = u
}

func (p *Pipeline) stepBRU(i int) {
	curr, next := p.curr, p.next

	if u := curr.BRUs[i]; u.Busy {
		slot := p.freeCDB()
		if slot == nil {
			next.Stats.WaitCDB++
			next.BRUs[i] = u
			return
		}

		act := u.Target()
		*slot = CDBSlot{Tag: u.ROBID, Value: act}

		noSpec := p.cfg.Features.NoSpec
		switch {
		case u.ToFetch || noSpec:
			next.PCExecBRU = redirectTo(act)
		case act != u.PredTarget:
			next.FetchWaitROBMispredict = true
			next.DecodeDropNext = true
			p.trace(log.ModBRU, "mispredict", "rob", u.ROBID, "pred", hex(u.PredTarget), "act", hex(act))
		}
		p.trace(log.ModBRU, "resolve", "rob", u.ROBID, "pc", hex(u.PC), "target", hex(act))
	}

	rs, ok := p.pickRS(RSBranch)
	if !ok {
		return
	}
	next.BRUs[i] = BRUUnit{
		Busy:       true,
		Op:         rs.Op,
		ToFetch:    rs.ToFetch,
		Op1:        rs.Vj,
		Op2:        rs.Vk,
		ROBID:      rs.ROBID,
		PC:         rs.PC,
		Imm:        rs.Imm,
		PredTarget: rs.PredTarget,
	}
}

// completeStore moves the oldest ready store into its ROB entry. The write
// to memory happens at commit.
func (p *Pipeline) completeStore() {
	rs, ok := p.pickRS(RSStore)
	if !ok {
		return
	}

	e := &p.next.ROB[int(rs.ROBID)-1]
	e.Addr = rs.Addr
	e.Value = rs.Vk
	e.Ready = true
}

// completeDebug moves the oldest ready debug request into its ROB entry.
// The request is serviced at commit.
func (p *Pipeline) completeDebug() {
	rs, ok := p.pickRS(RSDebug)
	if !ok {
		return
	}

	e := &p.next.ROB[int(rs.ROBID)-1]
	e.DebugOp = rs.Vj
	e.DebugOperand = rs.Vk
	e.Ready = true
}
