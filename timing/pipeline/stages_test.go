package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Fetch and decode", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = testConfig()
	})

	straightLine := func(a *insts.Assembler) {
		for i := int32(1); i <= 6; i++ {
			a.Emit(insts.ADDI(insts.RegA0+uint8(i%4), insts.RegZero, i))
		}
		a.Quit()
	}

	It("should fetch a full window at the start address", func() {
		a := insts.NewAssembler(base)
		straightLine(a)
		p, _ := newPipe(a, cfg)

		p.Tick()
		s := p.State()
		for i, fi := range s.FetchWindow {
			Expect(fi.Valid).To(BeTrue())
			Expect(fi.Exception).To(BeFalse())
			Expect(fi.PC).To(Equal(uint32(base + 4*i)))
		}
		Expect(s.PCFetch).To(Equal(pipeline.Redirect{PC: uint32(base + 4*cfg.IssueWidth), Valid: true}))
		Expect(s.ROBOccupancy()).To(BeZero())
	})

	It("should issue the window in the following cycle", func() {
		a := insts.NewAssembler(base)
		straightLine(a)
		p, _ := newPipe(a, cfg)

		p.Tick()
		p.Tick()
		s := p.State()
		Expect(s.ROBOccupancy()).To(Equal(cfg.IssueWidth))
		Expect(s.DecodeIsClear).To(BeTrue())
		Expect(s.FetchWindow[0].PC).To(Equal(uint32(base + 4*cfg.IssueWidth)))
	})

	Context("when the reorder buffer fills up", func() {
		BeforeEach(func() {
			cfg.ROBSize = 4
		})

		It("should hold the rest of the window and refetch it", func() {
			a := insts.NewAssembler(base)
			straightLine(a)
			p, _ := newPipe(a, cfg)

			p.Tick()
			p.Tick()
			s := p.State()
			Expect(s.ROBOccupancy()).To(Equal(3))
			Expect(s.DecodeIsClear).To(BeFalse())
			Expect(s.HeldWindow[0].PC).To(Equal(uint32(base + 12)))
			Expect(s.HeldWindow[1].Valid).To(BeFalse())

			held := s.FetchWindow[0].PC
			p.Tick()
			Expect(p.State().FetchWindow[0].PC).To(Equal(held))

			reason, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(reason).To(Equal(pipeline.StopQuit))
			Expect(p.Reg(insts.RegA0 + 2)).To(Equal(uint32(6)))
		})
	})

	It("should cut the window at the end of memory", func() {
		a := insts.NewAssembler(uint32(cfg.MemorySize - 8))
		a.Emit(insts.NOP(), insts.NOP())
		p, _ := newPipe(a, cfg)

		p.Tick()
		s := p.State()
		Expect(s.FetchWindow[0].Exception).To(BeFalse())
		Expect(s.FetchWindow[1].Exception).To(BeFalse())
		Expect(s.FetchWindow[2].Valid).To(BeTrue())
		Expect(s.FetchWindow[2].Exception).To(BeTrue())
		Expect(s.FetchWindow[3].Valid).To(BeFalse())
		Expect(s.PCFetch.Valid).To(BeFalse())
	})

	It("should treat a misaligned fetch as a fault", func() {
		a := insts.NewAssembler(base)
		straightLine(a)
		p, _ := newPipe(a, cfg)
		p.SetPC(base + 2)

		p.Tick()
		Expect(p.State().FetchWindow[0].Exception).To(BeTrue())

		_, err := p.Run()
		Expect(err).To(MatchError(pipeline.ErrFault))
	})

	It("should end a window at a branch that hits the BTAC", func() {
		a := insts.NewAssembler(base)
		sumLoop(40)(a)
		p, _ := newPipe(a, cfg)

		cut := 0
		for !p.Halted() {
			p.Tick()
			s := p.State()
			for i, fi := range s.FetchWindow {
				if !fi.Valid || fi.Exception || !fi.BTACHit() {
					continue
				}
				for _, rest := range s.FetchWindow[i+1:] {
					Expect(rest.Valid).To(BeFalse())
				}
				Expect(s.PCFetch.PC).To(Equal(fi.BTAC.Target))
				cut++
				break
			}
		}

		Expect(cut).To(BeNumerically(">", 5))
		Expect(p.Stats().BranchPredictorStats().BTACHits).To(BeNumerically(">", 5))
		Expect(p.Reg(insts.RegA0)).To(Equal(uint32(40 * 41 / 2)))
	})

	It("should wait for the mispredict redirect after a flush", func() {
		a := insts.NewAssembler(base)
		sumLoop(3)(a)
		p, _ := newPipe(a, cfg)

		stalled := false
		for !p.Halted() {
			p.Tick()
			if p.State().FetchWaitROBMispredict {
				stalled = true
			}
		}
		Expect(stalled).To(BeTrue())
		Expect(p.Stats().StallMispredict).To(BeNumerically(">", 0))
	})
})
