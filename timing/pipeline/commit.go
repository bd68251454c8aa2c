package pipeline

import (
	"fmt"
	"io"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/log"
)

type commitAction uint8

const (
	// commitNext retires the entry and moves on to the next one.
	commitNext commitAction = iota
	// commitStop retires the entry and ends this cycle's commit.
	commitStop
	// commitHold keeps the entry at the tail.
	commitHold
	// commitFlush retires the entry; the speculative state is gone.
	commitFlush
)

// commit retires up to RetireWidth entries from the ROB tail, in order.
// Memory writes, register writes and debug requests take effect here.
func (p *Pipeline) commit() {
	curr, next := p.curr, p.next
	mask := len(next.ROB) - 1

	idx := curr.ROBTail
	for n := 0; n < p.cfg.RetireWidth && idx != curr.ROBHead; n++ {
		e := &next.ROB[idx]

		if !e.Ready {
			next.Stats.Stalled++
			p.pcStats(e.PC).RetireStall++
			break
		}
		if e.Exception {
			p.fault(e, fmt.Errorf("%w: pc 0x%08x: %s", ErrFault, e.PC, e.Cause))
			break
		}

		var act commitAction
		switch e.Type {
		case ROBBranch:
			act = p.retireBranch(idx)
		case ROBRegister:
			act = p.retireRegister(e)
		case ROBStore:
			act = p.retireStore(e)
		case ROBDebug:
			act = p.retireDebug(e)
		default:
			panic(fmt.Sprintf("pipeline: commit of %s entry at slot %d", e.Type, idx))
		}

		switch act {
		case commitHold:
			next.ROBTail = idx
			return
		case commitFlush:
			return
		}

		idx = (idx + 1) & mask
		if !e.Link && p.breakpoints[e.PC] {
			p.pause(StopBreakpoint, nil)
			break
		}
		if act == commitStop {
			break
		}
	}

	next.ROBTail = idx
}

// retired counts a committed instruction.
func (p *Pipeline) retired(e *ROBEntry) {
	p.next.Stats.Retired++
	p.pcStats(e.PC).Retired++

	if p.commitTrace != nil {
		fmt.Fprintf(p.commitTrace, "%x\n", e.PC)
	}
	p.trace(log.ModCommit, "retire", "rob", e.ID, "pc", hex(e.PC))
}

func (p *Pipeline) retireBranch(idx int) commitAction {
	curr, next := p.curr, p.next
	stats := &next.Stats
	e := next.ROB[idx]

	stats.Branches++
	p.countBranch(&e, stats)
	p.retired(&e)

	if e.Call {
		stats.CallDepth++
		stats.MaxCallDepth = max(stats.MaxCallDepth, stats.CallDepth)
	}
	if e.Return {
		stats.CallDepth--
	}

	taken := e.Branch.PredTaken
	mispredict := e.Branch.ConsiderPrediction.Bool() && e.PredTarget != e.ActTarget
	if mispredict {
		// Entries decoded this cycle are younger than curr's head and
		// were never visible, so they are not counted.
		mask := len(curr.ROB) - 1
		stats.Flushed += uint64((curr.ROBHead - idx - 1) & mask)

		next.flush()
		next.PCROBMispredict = redirectTo(e.ActTarget)
		next.GlobalHistory = e.Branch.History

		p.trace(log.ModFlush, "mispredict", "pc", hex(e.PC),
			"pred", hex(e.PredTarget), "act", hex(e.ActTarget))
		if e.Branch.ChangeBHT.Bool() {
			taken = taken.Not()
		}
	}

	if e.Branch.ChangeBHT.Bool() {
		p.bp.Train(curr, next, e.PC, e.Branch.History, taken.Bool(), e.ActTarget)
	} else {
		p.bp.UpdateBTAC(next.BTAC, e.PC, e.ActTarget)
	}

	if mispredict {
		return commitFlush
	}
	return commitNext
}

func (p *Pipeline) retireRegister(e *ROBEntry) commitAction {
	next := p.next

	switch {
	case e.WasLoad:
		next.Stats.Loads++
	case !e.Link:
		next.Stats.Arithmetic++
	}
	if !e.Link {
		p.retired(e)
	}

	if e.Dest != insts.RegZero {
		r := &next.ARF[e.Dest]
		r.Value = e.Value
		if r.Tag == e.ID {
			r.Tag = NoTag
		}
	}
	return commitNext
}

func (p *Pipeline) retireStore(e *ROBEntry) commitAction {
	if e.Addr == emu.NullAddress {
		p.fault(e, fmt.Errorf("%w: pc 0x%08x", ErrNullStore, e.PC))
		return commitHold
	}

	if e.Addr < p.imageEnd {
		p.logger.Warn("store into program image", log.ModKey, log.ModCommit,
			"pc", hex(e.PC), "addr", hex(e.Addr))
	}

	if err := p.memory.Write(e.Addr, e.StoreWidth, e.Value); err != nil {
		if !p.cfg.Features.Permissive {
			p.fault(e, fmt.Errorf("%w: pc 0x%08x: %w", ErrFault, e.PC, err))
			return commitHold
		}
		p.logger.Warn("store dropped", log.ModKey, log.ModCommit, "pc", hex(e.PC), "err", err)
	} else {
		p.latency.StoreCommitted(e.Addr)
	}

	p.next.Stats.Stores++
	p.retired(e)
	return commitNext
}

// retireDebug services a debug protocol request. The result is written to
// t3 and broadcast to the instructions waiting on it.
func (p *Pipeline) retireDebug(e *ROBEntry) commitAction {
	curr, next := p.curr, p.next

	slot := p.freeCDB()
	if slot == nil {
		return commitHold
	}

	op := insts.DebugOp(e.DebugOp)
	result := e.DebugOp
	act := commitNext
	p.trace(log.ModDebug, "request", "pc", hex(e.PC), "op", op, "arg", hex(e.DebugOperand))

	switch op {
	case insts.DebugBreak:
		p.pause(StopBreak, nil)
		act = commitStop
	case insts.DebugQuit:
		p.halted = true
		p.pause(StopQuit, nil)
		act = commitStop
	case insts.DebugAbort:
		p.pause(StopAbort, fmt.Errorf("%w: pc 0x%08x", emu.ErrAbort, e.PC))
		act = commitStop
	case insts.DebugPrint:
		s, err := p.memory.CString(e.DebugOperand)
		if err == nil {
			err = p.debug.Print(s)
		}
		if err != nil {
			p.fault(e, fmt.Errorf("%w: pc 0x%08x: print: %w", ErrFault, e.PC, err))
			return commitHold
		}
	case insts.DebugBenchBegin:
		p.beginBench()
	case insts.DebugBenchEnd:
		next.Stats.EndClock = curr.Clock
		if p.cfg.Features.BenchOnly {
			p.halted = true
		}
		p.pause(StopBenchEnd, nil)
		act = commitStop
	case insts.DebugInput:
		ch, err := p.debug.Input()
		if err != nil {
			p.fault(e, fmt.Errorf("%w: pc 0x%08x: input: %w", ErrFault, e.PC, err))
			return commitHold
		}
		result = ch
	default:
		p.pause(StopProtocol, fmt.Errorf("%w: op %d at pc 0x%08x", ErrProtocolViolation, e.DebugOp, e.PC))
		return commitHold
	}

	if op != insts.DebugBenchBegin {
		next.Stats.Env++
		p.retired(e)
	}

	*slot = CDBSlot{Tag: e.ID, Value: result}
	r := &next.ARF[insts.RegT3]
	r.Value = result
	if r.Tag == e.ID {
		r.Tag = NoTag
	}
	return act
}

// beginBench starts a measured region: statistics, predictor tables and the
// commit trace start over.
func (p *Pipeline) beginBench() {
	curr, next := p.curr, p.next

	next.Stats = Statistics{StartClock: curr.Clock}
	clear(next.BHT)
	clear(next.BTAC)
	clear(p.perPC)
	p.latency.Reset()

	switch w := p.commitTrace.(type) {
	case interface {
		Truncate(size int64) error
		io.Seeker
	}:
		if err := w.Truncate(0); err != nil {
			p.logger.Warn("commit trace not truncated", "err", err)
		}
		if _, err := w.Seek(0, io.SeekStart); err != nil {
			p.logger.Warn("commit trace not rewound", "err", err)
		}
	case interface{ Reset() }:
		w.Reset()
	}
}

// fault pauses the pipeline on an excepting entry, which stays at the tail.
func (p *Pipeline) fault(e *ROBEntry, err error) {
	p.logger.Error("fault", log.ModKey, log.ModCommit, "pc", hex(e.PC),
		"inst", insts.Disassemble(e.Word, e.PC), "err", err)
	p.pause(StopFault, err)
}
