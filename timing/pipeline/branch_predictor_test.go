package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var (
		cfg  *config.Config
		bp   *pipeline.BranchPredictor
		curr *pipeline.State
		next *pipeline.State
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.BHTSize = 16
		cfg.BTACSize = 8
		cfg.GlobalHistoryBits = 2
		cfg.Features.TwoLevel = false
		curr = pipeline.NewState(cfg)
		next = pipeline.NewState(cfg)
	})

	JustBeforeEach(func() {
		bp = pipeline.NewBranchPredictor(pipeline.PredictorConfigFrom(cfg))
	})

	Describe("BHT indexing", func() {
		It("should index by instruction address", func() {
			Expect(bp.BHTIndex(0x1000, 3)).To(Equal(0))
			Expect(bp.BHTIndex(0x1004, 3)).To(Equal(1))
			Expect(bp.BHTIndex(0x1040, 0)).To(Equal(0))
		})

		Context("with two-level indexing", func() {
			BeforeEach(func() {
				cfg.Features.TwoLevel = true
			})

			It("should concatenate the address with the history", func() {
				Expect(bp.BHTIndex(0x1004, 0)).To(Equal(4))
				Expect(bp.BHTIndex(0x1004, 3)).To(Equal(7))
				Expect(bp.BHTIndex(0x1004, 7)).To(Equal(7))
			})
		})

		Context("with gshare indexing", func() {
			BeforeEach(func() {
				cfg.Features.GShare = true
			})

			It("should combine the address and history with xor", func() {
				Expect(bp.BHTIndex(0x1004, 0)).To(Equal(1))
				Expect(bp.BHTIndex(0x1004, 1)).To(Equal(0))
				Expect(bp.BHTIndex(0x1004, 3)).To(Equal(2))
			})
		})
	})

	Describe("UpdateBHT", func() {
		train := func(pc uint32, taken bool) (uint8, bool) {
			ctr, conflict := bp.UpdateBHT(curr.BHT, next.BHT, pc, 0, taken)
			copy(curr.BHT, next.BHT)
			return ctr, conflict
		}

		It("should start weakly in the direction of the first outcome", func() {
			ctr, _ := train(0x1000, true)
			Expect(ctr).To(Equal(uint8(2)))

			ctr, _ = train(0x1004, false)
			Expect(ctr).To(Equal(uint8(1)))
		})

		It("should saturate in both directions", func() {
			for i := 0; i < 5; i++ {
				train(0x1000, true)
			}
			Expect(curr.BHT[0].Counter).To(Equal(uint8(3)))
			Expect(curr.BHT[0].PredictsTaken()).To(BeTrue())

			for i := 0; i < 5; i++ {
				train(0x1000, false)
			}
			Expect(curr.BHT[0].Counter).To(Equal(uint8(0)))
			Expect(curr.BHT[0].PredictsTaken()).To(BeFalse())
		})

		It("should need two outcomes to flip a strong counter", func() {
			train(0x1000, true)
			train(0x1000, true)
			train(0x1000, false)
			Expect(curr.BHT[0].PredictsTaken()).To(BeTrue())
			train(0x1000, false)
			Expect(curr.BHT[0].PredictsTaken()).To(BeFalse())
		})

		It("should report aliasing branches", func() {
			_, conflict := train(0x1000, true)
			Expect(conflict).To(BeFalse())
			_, conflict = train(0x1040, true)
			Expect(conflict).To(BeTrue())
			Expect(curr.BHT[0].LastPC).To(Equal(uint32(0x1040)))
		})

		Context("with one-bit counters", func() {
			BeforeEach(func() {
				cfg.Features.OneBitBHT = true
			})

			It("should follow the last outcome", func() {
				train(0x1000, true)
				train(0x1000, true)
				ctr, _ := train(0x1000, false)
				Expect(ctr).To(Equal(uint8(0)))
				ctr, _ = train(0x1000, true)
				Expect(ctr).To(Equal(uint8(3)))
			})
		})
	})

	Describe("UpdateBTAC", func() {
		It("should record and clear targets", func() {
			bp.UpdateBTAC(next.BTAC, 0x1008, 0x2000)
			e := next.BTAC[bp.BTACIndex(0x1008)]
			Expect(e.BranchPC).To(Equal(uint32(0x1008)))
			Expect(e.Target).To(Equal(uint32(0x2000)))

			bp.UpdateBTAC(next.BTAC, 0x1008, 0)
			Expect(next.BTAC[bp.BTACIndex(0x1008)].BranchPC).To(BeZero())
		})

		Context("without speculation", func() {
			BeforeEach(func() {
				cfg.Features.NoSpec = true
			})

			It("should leave the table alone", func() {
				bp.UpdateBTAC(next.BTAC, 0x1008, 0x2000)
				Expect(next.BTAC[bp.BTACIndex(0x1008)]).To(Equal(pipeline.BTACEntry{}))
			})
		})
	})

	Describe("Train", func() {
		It("should cache the target only while the branch predicts taken", func() {
			bp.Train(curr, next, 0x1010, 0, true, 0x1000)
			Expect(next.BTAC[bp.BTACIndex(0x1010)].BranchPC).To(Equal(uint32(0x1010)))

			curr.BHT, next.BHT = next.BHT, curr.BHT
			copy(next.BHT, curr.BHT)
			bp.Train(curr, next, 0x1010, 0, false, 0x1014)
			Expect(next.BTAC[bp.BTACIndex(0x1010)].BranchPC).To(BeZero())
		})

		It("should count conflicts", func() {
			bp.Train(curr, next, 0x1000, 0, true, 0x2000)
			copy(curr.BHT, next.BHT)
			bp.Train(curr, next, 0x1040, 0, true, 0x2000)
			Expect(next.Stats.BHTConflicts).To(Equal(uint64(1)))
		})

		Context("with static prediction", func() {
			BeforeEach(func() {
				cfg.Features.StaticPrediction = true
			})

			It("should not learn", func() {
				bp.Train(curr, next, 0x1010, 0, true, 0x1000)
				Expect(next.BHT[bp.BHTIndex(0x1010, 0)].Valid).To(BeFalse())
				Expect(next.BTAC[bp.BTACIndex(0x1010)].BranchPC).To(BeZero())
			})
		})
	})

	Describe("BranchPredictorStats", func() {
		It("should derive rates", func() {
			s := pipeline.BranchPredictorStats{
				Predictions:    10,
				Correct:        8,
				Mispredictions: 2,
				BTACHits:       3,
				BTACMisses:     1,
			}
			Expect(s.Accuracy()).To(BeNumerically("~", 80.0))
			Expect(s.MispredictionRate()).To(BeNumerically("~", 20.0))
			Expect(s.BTACHitRate()).To(BeNumerically("~", 75.0))
			Expect(pipeline.BranchPredictorStats{}.Accuracy()).To(BeZero())
		})
	})
})
