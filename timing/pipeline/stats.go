package pipeline

// Statistics holds the pipeline performance counters. All counters are reset
// when the program begins a benchmark region.
type Statistics struct {
	// StartClock is the cycle at which the benchmark region began.
	StartClock uint64
	// EndClock is the cycle at which it ended, 0 while it is open.
	EndClock uint64

	Issued  uint64
	Retired uint64
	// Flushed counts entries discarded by misprediction flushes.
	Flushed uint64
	// Stalled counts commit cycles blocked on a not-ready ROB tail.
	Stalled uint64
	// StallMispredict counts fetch cycles spent waiting for a
	// misprediction redirect.
	StallMispredict uint64

	WaitArgs      uint64
	WaitEx        uint64
	WaitCDB       uint64
	WaitStoreAddr uint64
	WaitStoreData uint64

	CallDepth    int64
	MaxCallDepth int64

	FetchWindows   uint64
	FetchWindowSum uint64

	Branches   uint64
	Loads      uint64
	Stores     uint64
	Arithmetic uint64
	Env        uint64

	BHTConflicts uint64

	JALBTACHit  uint64
	JALBTACMiss uint64

	JALRRASCorrect    uint64
	JALRRASIncorrect  uint64
	JALRBTACCorrect   uint64
	JALRBTACIncorrect uint64
	JALRBTACMiss      uint64

	// JALRRASBTACHit counts correct returns whose BTAC entry predicted the
	// same target as the RAS, so fetch was never redirected.
	JALRRASBTACHit uint64

	CondBHTCorrect      uint64
	CondBHTIncorrect    uint64
	CondBTACCorrect     uint64
	CondBTACIncorrect   uint64
	CondStaticCorrect   uint64
	CondStaticIncorrect uint64
}

// Cycles returns the number of cycles in the measured region, given the
// current clock.
func (s Statistics) Cycles(clock uint64) uint64 {
	end := clock
	if s.EndClock != 0 {
		end = s.EndClock
	}
	if end < s.StartClock {
		return 0
	}
	return end - s.StartClock
}

// IPC returns retired instructions per cycle.
func (s Statistics) IPC(clock uint64) float64 {
	cycles := s.Cycles(clock)
	if cycles == 0 {
		return 0
	}
	return float64(s.Retired) / float64(cycles)
}

// CPI returns the cycles per retired instruction.
func (s Statistics) CPI(clock uint64) float64 {
	if s.Retired == 0 {
		return 0
	}
	return float64(s.Cycles(clock)) / float64(s.Retired)
}

// IPCExcludingMispredict returns IPC over the cycles in which fetch was not
// waiting for a misprediction redirect.
func (s Statistics) IPCExcludingMispredict(clock uint64) float64 {
	cycles := s.Cycles(clock)
	if cycles <= s.StallMispredict {
		return 0
	}
	return float64(s.Retired) / float64(cycles-s.StallMispredict)
}

// AvgFetchWindow returns the mean number of instructions per fetch.
func (s Statistics) AvgFetchWindow() float64 {
	if s.FetchWindows == 0 {
		return 0
	}
	return float64(s.FetchWindowSum) / float64(s.FetchWindows)
}

// CondCorrect returns the number of correctly predicted conditional
// branches.
func (s Statistics) CondCorrect() uint64 {
	return s.CondBHTCorrect + s.CondBTACCorrect + s.CondStaticCorrect
}

// CondIncorrect returns the number of mispredicted conditional branches.
func (s Statistics) CondIncorrect() uint64 {
	return s.CondBHTIncorrect + s.CondBTACIncorrect + s.CondStaticIncorrect
}

// Mispredictions returns the number of committed branches whose
// prediction was wrong.
func (s Statistics) Mispredictions() uint64 {
	return s.CondIncorrect() + s.JALRRASIncorrect + s.JALRBTACIncorrect
}

// BranchPredictorStats summarizes the statistics of the predictor.
func (s Statistics) BranchPredictorStats() BranchPredictorStats {
	correct := s.CondCorrect() + s.JALRRASCorrect + s.JALRBTACCorrect
	incorrect := s.Mispredictions()
	return BranchPredictorStats{
		Predictions:    correct + incorrect,
		Correct:        correct,
		Mispredictions: incorrect,
		BTACHits:       s.JALBTACHit + s.JALRBTACCorrect + s.JALRBTACIncorrect + s.CondBTACCorrect + s.CondBTACIncorrect,
		BTACMisses:     s.JALBTACMiss + s.JALRBTACMiss,
	}
}

// PerPCStats are the counters kept per instruction address when granular
// statistics are enabled.
type PerPCStats struct {
	Type   ROBType
	Branch BranchKind

	Issued      uint64
	Retired     uint64
	RetireStall uint64
	ArgStall    uint64
	ExStall     uint64

	BTACCorrect     uint64
	BTACIncorrect   uint64
	BHTCorrect      uint64
	BHTIncorrect    uint64
	StaticCorrect   uint64
	StaticIncorrect uint64
	Miss            uint64
}

// pcStats returns the counters for pc, or a scratch value when granular
// statistics are disabled.
func (p *Pipeline) pcStats(pc uint32) *PerPCStats {
	if p.perPC == nil {
		return &p.scratchPC
	}
	s, ok := p.perPC[pc]
	if !ok {
		s = &PerPCStats{}
		p.perPC[pc] = s
	}
	return s
}

// countBranch records the prediction outcome of a committing branch.
func (p *Pipeline) countBranch(e *ROBEntry, stats *Statistics) {
	pc := p.pcStats(e.PC)
	pc.Branch = e.BranchKind
	correct := e.PredTarget == e.ActTarget

	switch e.BranchKind {
	case BranchJAL:
		switch e.PredSource {
		case PredBTAC:
			stats.JALBTACHit++
			pc.BTACCorrect++
		case PredNone:
			stats.JALBTACMiss++
			pc.Miss++
		default:
			panic("pipeline: JAL with prediction source " + e.PredSource.String())
		}
	case BranchJALR:
		switch e.PredSource {
		case PredNone:
			stats.JALRBTACMiss++
			pc.Miss++
		case PredRAS:
			if correct {
				stats.JALRRASCorrect++
				if e.BTACAgreed {
					stats.JALRRASBTACHit++
				}
			} else {
				stats.JALRRASIncorrect++
			}
		case PredBTAC:
			if correct {
				stats.JALRBTACCorrect++
				pc.BTACCorrect++
			} else {
				stats.JALRBTACIncorrect++
				pc.BTACIncorrect++
			}
		default:
			panic("pipeline: JALR with prediction source " + e.PredSource.String())
		}
	case BranchCond:
		switch e.PredSource {
		case PredStatic, PredNone:
			if correct {
				stats.CondStaticCorrect++
				pc.StaticCorrect++
			} else {
				stats.CondStaticIncorrect++
				pc.StaticIncorrect++
			}
		case PredBHT:
			if correct {
				stats.CondBHTCorrect++
				pc.BHTCorrect++
			} else {
				stats.CondBHTIncorrect++
				pc.BHTIncorrect++
			}
		case PredBTAC:
			if correct {
				stats.CondBTACCorrect++
				pc.BTACCorrect++
			} else {
				stats.CondBTACIncorrect++
				pc.BTACIncorrect++
			}
		default:
			panic("pipeline: conditional branch with prediction source " + e.PredSource.String())
		}
	}
}
