package pipeline

import (
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/config"
)

// Redirect is a fetch address published by one stage for the next cycle's
// fetch. Any PC, including 0, is a valid target.
type Redirect struct {
	PC    uint32
	Valid bool
}

// redirectTo returns a valid redirect to pc.
func redirectTo(pc uint32) Redirect {
	return Redirect{PC: pc, Valid: true}
}

// State is the complete machine state at the end of a cycle.
type State struct {
	ARF   [insts.NumRegs]Register
	Clock uint64

	// PCROBMispredict is the corrected PC published by a committing
	// mispredicted branch.
	PCROBMispredict Redirect
	// PCExecBRU is a JALR target published by the branch unit for a fetch
	// that missed every predictor.
	PCExecBRU Redirect
	// PCDecodePredict is a redirect computed by decode.
	PCDecodePredict Redirect
	// PCFetch is the next sequential or BTAC-predicted fetch PC. It is
	// invalid after a fetch fault.
	PCFetch Redirect
	// PCLast is the PC of the last fetch window, repeated under
	// back-pressure.
	PCLast uint32

	FetchWaitROBMispredict bool
	FetchWaitJALRBRU       bool

	DecodeIsClear  bool
	DecodeDropNext bool

	FetchWindow []FetchedInst
	HeldWindow  []FetchedInst

	RS   []RSEntry
	LDB  []RSEntry
	ALUs []ALUUnit
	LSUs []LSUUnit
	BRUs []BRUUnit

	BHT           []BHTEntry
	BTAC          []BTACEntry
	GlobalHistory uint32
	RAS           RAS

	ROB     []ROBEntry
	ROBHead int
	ROBTail int
	LDBHead int
	LDBTail int
	CDB     []CDBSlot
	Stats   Statistics
}

// NewState allocates a zeroed state sized for cfg.
func NewState(cfg *config.Config) *State {
	return &State{
		FetchWindow: make([]FetchedInst, cfg.IssueWidth),
		HeldWindow:  make([]FetchedInst, cfg.IssueWidth),
		RS:          make([]RSEntry, cfg.RSCount),
		LDB:         make([]RSEntry, cfg.LDBSize),
		ALUs:        make([]ALUUnit, cfg.ALUCount),
		LSUs:        make([]LSUUnit, cfg.LSUCount),
		BRUs:        make([]BRUUnit, cfg.BRUCount),
		BHT:         make([]BHTEntry, cfg.BHTSize),
		BTAC:        make([]BTACEntry, cfg.BTACSize),
		RAS:         RAS{Buffer: make([]uint32, cfg.RASSize)},
		ROB:         make([]ROBEntry, cfg.ROBSize),
		CDB:         make([]CDBSlot, cfg.IssueWidth),
	}
}

// reset zeroes the state, keeping its storage.
func (s *State) reset() {
	s.ARF = [insts.NumRegs]Register{}
	s.Clock = 0

	s.PCROBMispredict = Redirect{}
	s.PCExecBRU = Redirect{}
	s.PCDecodePredict = Redirect{}
	s.PCFetch = Redirect{}
	s.PCLast = 0
	s.FetchWaitROBMispredict = false
	s.FetchWaitJALRBRU = false
	s.DecodeIsClear = false
	s.DecodeDropNext = false

	clear(s.FetchWindow)
	clear(s.HeldWindow)
	clear(s.RS)
	clear(s.LDB)
	clear(s.ALUs)
	clear(s.LSUs)
	clear(s.BRUs)
	clear(s.BHT)
	clear(s.BTAC)
	s.GlobalHistory = 0
	s.RAS.reset()

	clear(s.ROB)
	s.ROBHead, s.ROBTail = 0, 0
	s.LDBHead, s.LDBTail = 0, 0
	clear(s.CDB)
	s.Stats = Statistics{}
}

// carry copies the state that persists from one cycle to the next.
// Reservation stations, the ROB contents and the RAS are carried by the
// stages that update them.
func (s *State) carry(curr *State) {
	s.Clock = curr.Clock + 1
	s.ARF = curr.ARF
	copy(s.ROB, curr.ROB)
	s.ROBHead, s.ROBTail = curr.ROBHead, curr.ROBTail
	s.LDBHead, s.LDBTail = curr.LDBHead, curr.LDBTail
	s.Stats = curr.Stats
	copy(s.BHT, curr.BHT)
	copy(s.BTAC, curr.BTAC)
	s.GlobalHistory = curr.GlobalHistory
}

// flush discards all speculative state. Fetch keeps waiting for the
// redirect that the caller publishes in PCROBMispredict.
func (s *State) flush() {
	for i := range s.ARF {
		s.ARF[i].Tag = NoTag
	}

	s.PCROBMispredict = Redirect{}
	s.PCExecBRU = Redirect{}
	s.PCDecodePredict = Redirect{}
	s.PCFetch = Redirect{}
	s.PCLast = 0
	s.FetchWaitROBMispredict = true
	s.FetchWaitJALRBRU = false
	s.DecodeIsClear = false
	s.DecodeDropNext = false

	clear(s.FetchWindow)
	clear(s.HeldWindow)
	s.RAS.reset()

	clear(s.RS)
	clear(s.LDB)
	clear(s.ALUs)
	clear(s.LSUs)
	clear(s.BRUs)

	clear(s.ROB)
	s.ROBHead, s.ROBTail = 0, 0
	s.LDBHead, s.LDBTail = 0, 0
	clear(s.CDB)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.FetchWindow = append([]FetchedInst(nil), s.FetchWindow...)
	c.HeldWindow = append([]FetchedInst(nil), s.HeldWindow...)
	c.RS = append([]RSEntry(nil), s.RS...)
	c.LDB = append([]RSEntry(nil), s.LDB...)
	c.ALUs = append([]ALUUnit(nil), s.ALUs...)
	c.LSUs = append([]LSUUnit(nil), s.LSUs...)
	c.BRUs = append([]BRUUnit(nil), s.BRUs...)
	c.BHT = append([]BHTEntry(nil), s.BHT...)
	c.BTAC = append([]BTACEntry(nil), s.BTAC...)
	c.RAS.Buffer = append([]uint32(nil), s.RAS.Buffer...)
	c.ROB = append([]ROBEntry(nil), s.ROB...)
	c.CDB = append([]CDBSlot(nil), s.CDB...)
	return &c
}

// LiveROB returns the live reorder buffer entries, oldest first.
func (s *State) LiveROB() []ROBEntry {
	entries := make([]ROBEntry, 0, s.ROBOccupancy())
	s.liveROB(func(_ int, e *ROBEntry) bool {
		entries = append(entries, *e)
		return true
	})
	return entries
}

// BusyRS returns the occupied reservation stations.
func (s *State) BusyRS() []RSEntry {
	var entries []RSEntry
	for _, rs := range s.RS {
		if rs.Busy {
			entries = append(entries, rs)
		}
	}
	return entries
}

// LiveLDB returns the waiting loads, oldest first.
func (s *State) LiveLDB() []RSEntry {
	mask := len(s.LDB) - 1
	var entries []RSEntry
	for i := s.LDBTail; i != s.LDBHead; i = (i + 1) & mask {
		entries = append(entries, s.LDB[i])
	}
	return entries
}
