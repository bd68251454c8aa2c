package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/log"
)

// fetchPC selects the address of this cycle's fetch window. The redirect
// is invalid when fetch has to wait.
func (p *Pipeline) fetchPC() Redirect {
	curr, next := p.curr, p.next

	switch {
	case curr.FetchWaitROBMispredict:
		if !curr.PCROBMispredict.Valid {
			next.FetchWaitROBMispredict = true
			next.Stats.StallMispredict++
		}
		return curr.PCROBMispredict
	case curr.FetchWaitJALRBRU:
		if !curr.PCExecBRU.Valid {
			next.FetchWaitJALRBRU = true
		}
		return curr.PCExecBRU
	case curr.PCDecodePredict.Valid:
		return curr.PCDecodePredict
	case curr.DecodeIsClear:
		return curr.PCFetch
	}
	return redirectTo(curr.PCLast)
}

// fetch reads up to IssueWidth instruction words into next's fetch window,
// tagging each with the predictor entries it will be decoded against.
func (p *Pipeline) fetch() {
	curr, next := p.curr, p.next

	r := p.fetchPC()
	if !r.Valid {
		return
	}
	pc := r.PC

	width := len(next.FetchWindow)
	next.PCLast = pc
	next.PCFetch = redirectTo(pc + uint32(width)*4)

	n := 0
	for i := 0; i < width; i++ {
		addr := pc + uint32(i)*4
		fi := &next.FetchWindow[i]
		*fi = FetchedInst{
			Valid: true,
			PC:    addr,
			BTAC:  curr.BTAC[p.bp.BTACIndex(addr)],
			BHT:   curr.BHT[p.bp.BHTIndex(addr, curr.GlobalHistory)],
		}
		n++

		word, err := p.memory.Read(addr, 4)
		if err == nil && addr%4 != 0 {
			err = emu.ErrOutOfBounds
		}
		if err != nil {
			fi.Exception = true
			next.PCFetch = Redirect{}
			p.logger.Debug("speculative fetch fault", log.ModKey, log.ModFetch,
				"pc", hex(addr), "err", err)
			break
		}
		fi.Word = word

		if fi.BTACHit() {
			next.PCFetch = redirectTo(fi.BTAC.Target)
			break
		}
	}

	next.Stats.FetchWindows++
	next.Stats.FetchWindowSum += uint64(n)
	p.trace(log.ModFetch, "fetch", "pc", hex(pc), "n", n, "next", hex(next.PCFetch.PC))
}

// decode issues the instructions of the current window in order until one
// cannot get its resources, or one redirects fetch.
func (p *Pipeline) decode() {
	curr, next := p.curr, p.next
	next.DecodeIsClear = true

	if curr.DecodeDropNext || curr.PCROBMispredict.Valid || curr.PCDecodePredict.Valid {
		return
	}

	window := curr.FetchWindow
	if !curr.DecodeIsClear {
		window = curr.HeldWindow
	}

	for i := range window {
		fi := &window[i]
		if !fi.Valid {
			return
		}

		if !p.issue(fi) {
			next.DecodeIsClear = false
			copy(next.HeldWindow, window[i:])
			p.trace(log.ModDecode, "hold", "pc", hex(fi.PC))
			return
		}

		if next.PCDecodePredict.Valid || next.FetchWaitJALRBRU || next.RAS.Cmd != RASNone {
			return
		}
	}
}

// operand reads a source register at decode time. The value comes from a
// ready REGISTER entry in the ROB when the register is renamed; otherwise
// the producer's tag is carried.
func (p *Pipeline) operand(reg uint8) (Tag, uint32) {
	if reg == insts.RegZero {
		return NoTag, 0
	}

	r := p.next.ARF[reg]
	if r.Tag == NoTag {
		return NoTag, r.Value
	}

	e := &p.next.ROB[int(r.Tag)-1]
	if e.Type == ROBRegister && e.Ready {
		return NoTag, e.Value
	}
	return r.Tag, 0
}

func (p *Pipeline) issued(e *ROBEntry) {
	p.next.Stats.Issued++
	s := p.pcStats(e.PC)
	s.Issued++
	s.Type = e.Type
	if p.traceOn {
		p.trace(log.ModDecode, "issue", "rob", e.ID, "pc", hex(e.PC),
			"inst", insts.Disassemble(e.Word, e.PC))
	}
}

func (p *Pipeline) newRS(kind RSKind, op insts.Op, e *ROBEntry) RSEntry {
	return RSEntry{
		Busy:  true,
		Kind:  kind,
		Op:    op,
		ROBID: e.ID,
		Clock: p.next.Clock,
		PC:    e.PC,
	}
}

// issue dispatches one instruction. It returns false, without touching any
// state, when the structures it needs are full.
func (p *Pipeline) issue(fi *FetchedInst) bool {
	if fi.Exception {
		return p.issueFault(fi, CauseFetch)
	}

	inst := fi.Decode(p.decoder)

	switch inst.Class {
	case insts.ClassLoad:
		return p.issueLoad(fi, inst)
	case insts.ClassStore:
		return p.issueStore(fi, inst)
	case insts.ClassALU, insts.ClassALUImm:
		return p.issueALU(fi, inst)
	case insts.ClassLUI, insts.ClassAUIPC:
		return p.issueUpper(fi, inst)
	case insts.ClassBranch:
		return p.issueBranch(fi, inst)
	case insts.ClassJAL:
		return p.issueJAL(fi, inst)
	case insts.ClassJALR:
		return p.issueJALR(fi, inst)
	case insts.ClassFence:
		return true
	case insts.ClassSystem:
		if inst.Op == insts.OpEBREAK {
			return p.issueDebug(fi)
		}
		return p.issueFault(fi, CauseEnvCall)
	}
	return p.issueFault(fi, CauseIllegal)
}

// issueFault allocates a completed, excepting entry. It faults if it
// reaches commit.
func (p *Pipeline) issueFault(fi *FetchedInst, cause Cause) bool {
	if !p.robFree(1) {
		return false
	}

	e := p.allocROB(ROBDebug, fi)
	e.Ready = true
	e.Exception = true
	e.Cause = cause
	p.issued(e)
	return true
}

func (p *Pipeline) issueLoad(fi *FetchedInst, inst *insts.Instruction) bool {
	if !p.ldbFree() || !p.robFree(1) {
		return false
	}

	qj, vj := p.operand(inst.Rs1)

	e := p.allocROB(ROBRegister, fi)
	e.WasLoad = true

	rs := p.newRS(RSLoad, inst.Op, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Imm = uint32(inst.Imm)
	if qj == NoTag {
		rs.Addr = emu.EffectiveAddress(vj, inst.Imm)
	}
	*p.allocLDB() = rs

	p.rename(e, inst.Rd)
	p.issued(e)
	return true
}

func (p *Pipeline) issueStore(fi *FetchedInst, inst *insts.Instruction) bool {
	if !p.rsFree() || !p.robFree(1) {
		return false
	}

	qj, vj := p.operand(inst.Rs1)
	qk, vk := p.operand(inst.Rs2)

	e := p.allocROB(ROBStore, fi)
	e.StoreWidth = inst.Op.MemWidth()

	rs := p.newRS(RSStore, inst.Op, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Qk, rs.Vk = qk, vk
	rs.Imm = uint32(inst.Imm)
	if qj == NoTag {
		rs.Addr = emu.EffectiveAddress(vj, inst.Imm)
		e.Addr = rs.Addr
	}
	*p.allocRS() = rs

	p.issued(e)
	return true
}

func (p *Pipeline) issueALU(fi *FetchedInst, inst *insts.Instruction) bool {
	if inst.Rd == insts.RegZero {
		return true
	}
	if !p.rsFree() || !p.robFree(1) {
		return false
	}

	qj, vj := p.operand(inst.Rs1)
	qk, vk := NoTag, uint32(inst.Imm)
	if inst.Class == insts.ClassALU {
		qk, vk = p.operand(inst.Rs2)
	}

	e := p.allocROB(ROBRegister, fi)

	rs := p.newRS(RSALU, inst.Op, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Qk, rs.Vk = qk, vk
	*p.allocRS() = rs

	p.rename(e, inst.Rd)
	p.issued(e)
	return true
}

func (p *Pipeline) issueUpper(fi *FetchedInst, inst *insts.Instruction) bool {
	if inst.Rd == insts.RegZero {
		return true
	}
	if !p.robFree(1) {
		return false
	}

	v := uint32(inst.Imm)
	if inst.Class == insts.ClassAUIPC {
		v += fi.PC
	}

	e := p.allocROB(ROBRegister, fi)
	e.markReady(v)
	p.rename(e, inst.Rd)
	p.issued(e)
	return true
}

// predictCond chooses the direction of a conditional branch: a BTAC hit is
// trusted unless a valid BHT counter says not taken, then the BHT, then
// backwards-taken.
func predictCond(fi *FetchedInst, inst *insts.Instruction) (bool, PredSource) {
	switch {
	case fi.BTACHit() && fi.BHT.Valid && !fi.BHT.PredictsTaken():
		return false, PredBHT
	case fi.BTACHit():
		return true, PredBTAC
	case fi.BHT.Valid:
		return fi.BHT.PredictsTaken(), PredBHT
	}
	return inst.Imm < 0, PredStatic
}

func (p *Pipeline) issueBranch(fi *FetchedInst, inst *insts.Instruction) bool {
	if !p.rsFree() || !p.robFree(1) {
		return false
	}
	next := p.next

	qj, vj := p.operand(inst.Rs1)
	qk, vk := p.operand(inst.Rs2)
	target := fi.PC + uint32(inst.Imm)

	e := p.allocROB(ROBBranch, fi)
	e.BranchKind = BranchCond

	rs := p.newRS(RSBranch, inst.Op, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Qk, rs.Vk = qk, vk
	rs.Imm = target

	if p.cfg.Features.NoSpec {
		e.Branch.ChangeBHT = False
		e.Branch.ConsiderPrediction = False
		e.PredSource = PredNone
		next.DecodeDropNext = true
		next.FetchWaitJALRBRU = true
		next.PCDecodePredict = Redirect{}
	} else {
		taken, src := predictCond(fi, inst)
		e.PredSource = src
		e.PredTarget = fi.PC + 4
		if taken {
			e.PredTarget = target
		}

		switch {
		case fi.BTACHit() && !taken:
			next.PCDecodePredict = redirectTo(fi.PC + 4)
		case !fi.BTACHit() && taken:
			next.PCDecodePredict = redirectTo(target)
		}

		e.Branch.ChangeBHT = True
		e.Branch.ConsiderPrediction = True
		e.Branch.PredTaken = TriOf(taken)
		next.GlobalHistory = p.shiftHistory(e.Branch.History, taken)
	}

	rs.PredTarget = e.PredTarget
	*p.allocRS() = rs
	p.issued(e)
	return true
}

func (p *Pipeline) shiftHistory(h uint32, taken bool) uint32 {
	h <<= 1
	if taken {
		h |= 1
	}
	return h & (uint32(1)<<p.cfg.GlobalHistoryBits - 1)
}

// allocLink allocates the completed return-address entry of a jump.
func (p *Pipeline) allocLink(fi *FetchedInst, rd uint8) {
	if rd == insts.RegZero {
		return
	}

	link := p.allocROB(ROBRegister, fi)
	link.Link = true
	link.markReady(fi.PC + 4)
	p.rename(link, rd)
}

func (p *Pipeline) pushReturn(e *ROBEntry, rd uint8) {
	if !insts.IsLinkReg(rd) || p.cfg.Features.NoSpec {
		return
	}

	next := p.next
	next.RAS.Cmd = RASPush
	next.RAS.Arg = e.PC + 4
	e.Call = true
	if p.cfg.Features.ClearHistoryOnCall {
		next.GlobalHistory = 0
	}
}

func robSlots(rd uint8) int {
	if rd == insts.RegZero {
		return 1
	}
	return 2
}

func (p *Pipeline) issueJAL(fi *FetchedInst, inst *insts.Instruction) bool {
	if !p.robFree(robSlots(inst.Rd)) {
		return false
	}
	target := fi.PC + uint32(inst.Imm)

	p.allocLink(fi, inst.Rd)

	e := p.allocROB(ROBBranch, fi)
	e.BranchKind = BranchJAL
	e.PredTarget = target
	e.markReady(target)
	e.Branch.ChangeBHT = False
	e.Branch.ConsiderPrediction = False

	if fi.BTACHit() && fi.BTAC.Target == target {
		e.PredSource = PredBTAC
	} else {
		e.PredSource = PredNone
		p.next.PCDecodePredict = redirectTo(target)
	}

	p.pushReturn(e, inst.Rd)
	p.issued(e)
	return true
}

func (p *Pipeline) issueJALR(fi *FetchedInst, inst *insts.Instruction) bool {
	if !p.rsFree() || !p.robFree(robSlots(inst.Rd)) {
		return false
	}
	curr, next := p.curr, p.next

	qj, vj := p.operand(inst.Rs1)

	p.allocLink(fi, inst.Rd)

	e := p.allocROB(ROBBranch, fi)
	e.BranchKind = BranchJALR
	e.Branch.ChangeBHT = False

	rs := p.newRS(RSBranch, inst.Op, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Imm = uint32(inst.Imm)

	spec := !p.cfg.Features.NoSpec
	isReturn := spec && !insts.IsLinkReg(inst.Rd) && insts.IsLinkReg(inst.Rs1) && curr.RAS.Head != 0

	switch {
	case isReturn:
		head := curr.RAS.Head
		next.RAS.Cmd = RASPop
		e.PredTarget = head
		e.PredSource = PredRAS
		e.Branch.ConsiderPrediction = True
		e.Return = true
		e.BTACAgreed = fi.BTACHit() && fi.BTAC.Target == head
		if !e.BTACAgreed {
			next.PCDecodePredict = redirectTo(head)
		}
	case spec && fi.BTACHit():
		e.PredTarget = fi.BTAC.Target
		e.PredSource = PredBTAC
		e.Branch.ConsiderPrediction = True
		p.pushReturn(e, inst.Rd)
	default:
		rs.ToFetch = true
		e.PredSource = PredNone
		e.Branch.ConsiderPrediction = False
		next.DecodeDropNext = true
		next.FetchWaitJALRBRU = true
		p.pushReturn(e, inst.Rd)
	}

	rs.PredTarget = e.PredTarget
	*p.allocRS() = rs
	p.issued(e)
	return true
}

// issueDebug dispatches an ebreak. The request reads its opcode from t3 and
// its operand from t4, and its result is written back to t3 at commit.
func (p *Pipeline) issueDebug(fi *FetchedInst) bool {
	if !p.rsFree() || !p.robFree(1) {
		return false
	}

	qj, vj := p.operand(insts.RegT3)
	qk, vk := p.operand(insts.RegT4)

	e := p.allocROB(ROBDebug, fi)

	rs := p.newRS(RSDebug, insts.OpEBREAK, e)
	rs.Qj, rs.Vj = qj, vj
	rs.Qk, rs.Vk = qk, vk
	*p.allocRS() = rs

	p.rename(e, insts.RegT3)
	p.issued(e)
	return true
}
