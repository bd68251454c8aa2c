package pipeline

import "github.com/sarchlab/rvsim/timing/config"

// BHTEntry is a branch history table entry.
type BHTEntry struct {
	Valid bool

	// Counter is a 2-bit saturating counter; taken when > 1.
	Counter uint8

	// LastPC is the branch that last trained the entry, for conflict
	// detection.
	LastPC uint32
}

// PredictsTaken reports the direction predicted by a valid entry.
func (e BHTEntry) PredictsTaken() bool {
	return e.Counter > 1
}

// BTACEntry is a branch target address cache entry. BranchPC is 0 for an
// empty entry.
type BTACEntry struct {
	BranchPC uint32
	Target   uint32
}

// BranchPredictorConfig selects the indexing and training policy of the
// predictor tables.
type BranchPredictorConfig struct {
	BHTSize     int
	BTACSize    int
	HistoryBits int

	TwoLevel bool
	GShare   bool
	OneBit   bool

	// NoSpec turns BTAC training off.
	NoSpec bool

	// StaticOnly turns BHT training off.
	StaticOnly bool
}

// PredictorConfigFrom extracts the predictor settings of a core config.
func PredictorConfigFrom(c *config.Config) BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize:     c.BHTSize,
		BTACSize:    c.BTACSize,
		HistoryBits: c.GlobalHistoryBits,
		TwoLevel:    c.Features.TwoLevel,
		GShare:      c.Features.GShare,
		OneBit:      c.Features.OneBitBHT,
		NoSpec:      c.Features.NoSpec,
		StaticOnly:  c.Features.StaticPrediction,
	}
}

// BranchPredictor indexes and trains the BHT and BTAC held in the pipeline
// state. It keeps no tables itself so that the tables can be double
// buffered with the rest of the state.
type BranchPredictor struct {
	config BranchPredictorConfig
}

// NewBranchPredictor creates a predictor for the given configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	return &BranchPredictor{config: config}
}

// BHTIndex maps a branch PC and the global history to a BHT slot.
func (bp *BranchPredictor) BHTIndex(pc, history uint32) int {
	mask := uint32(bp.config.BHTSize - 1)
	word := pc / 4

	switch {
	case bp.config.GShare:
		return int((word ^ history) & mask)
	case bp.config.TwoLevel:
		hmask := uint32(1)<<bp.config.HistoryBits - 1
		return int(((word << bp.config.HistoryBits) | (history & hmask)) & mask)
	}
	return int(word & mask)
}

// BTACIndex maps a branch PC to its direct-mapped BTAC slot.
func (bp *BranchPredictor) BTACIndex(pc uint32) int {
	return int((pc / 4) & uint32(bp.config.BTACSize-1))
}

// UpdateBHT trains the entry for (pc, history) with the actual direction,
// reading from curr and writing to next. It returns the new counter and
// whether the entry was last trained by a different branch.
func (bp *BranchPredictor) UpdateBHT(curr, next []BHTEntry, pc, history uint32, taken bool) (uint8, bool) {
	idx := bp.BHTIndex(pc, history)
	old := curr[idx]
	e := &next[idx]

	conflict := false
	if old.Valid {
		conflict = old.LastPC != pc

		switch {
		case bp.config.OneBit && taken:
			e.Counter = 3
		case bp.config.OneBit:
			e.Counter = 0
		case taken && old.Counter < 3:
			e.Counter = old.Counter + 1
		case !taken && old.Counter > 0:
			e.Counter = old.Counter - 1
		default:
			e.Counter = old.Counter
		}
	} else {
		e.Valid = true
		e.Counter = 1
		if taken {
			e.Counter = 2
		}
	}
	e.LastPC = pc

	return e.Counter, conflict
}

// UpdateBTAC records target for pc. A zero target clears the entry.
func (bp *BranchPredictor) UpdateBTAC(next []BTACEntry, pc, target uint32) {
	if bp.config.NoSpec {
		return
	}

	e := &next[bp.BTACIndex(pc)]
	e.Target = target
	e.BranchPC = 0
	if target != 0 {
		e.BranchPC = pc
	}
}

// Train applies the commit-time update of a conditional branch: the BHT
// counter moves towards the outcome, and the BTAC keeps the target only
// while the branch is predicted taken.
func (bp *BranchPredictor) Train(curr, next *State, pc, history uint32, taken bool, target uint32) {
	if bp.config.StaticOnly || bp.config.NoSpec {
		return
	}

	ctr, conflict := bp.UpdateBHT(curr.BHT, next.BHT, pc, history, taken)
	if conflict {
		next.Stats.BHTConflicts++
	}

	switch {
	case taken && ctr > 1:
		bp.UpdateBTAC(next.BTAC, pc, target)
	case ctr < 2:
		bp.UpdateBTAC(next.BTAC, pc, 0)
	}
}

// BranchPredictorStats summarizes prediction outcomes.
type BranchPredictorStats struct {
	// Predictions is the number of committed branches that carried a
	// prediction.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// BTACHits is the number of branches predicted from the BTAC.
	BTACHits uint64
	// BTACMisses is the number of JAL and JALR that missed the BTAC.
	BTACMisses uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s BranchPredictorStats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// BTACHitRate returns the BTAC hit rate as a percentage.
func (s BranchPredictorStats) BTACHitRate() float64 {
	total := s.BTACHits + s.BTACMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTACHits) / float64(total) * 100
}
