package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Core", func() {
	var (
		cfg  *config.Config
		prog *loader.Program
		c    *core.Core
	)

	build := func(body func(a *insts.Assembler)) *loader.Program {
		a := insts.NewAssembler(loader.BinOffset)
		body(a)
		return loader.FromImage(a.Base(), a.MustAssemble(), a.Base())
	}

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.MemorySize = 1 << 20
		prog = build(func(a *insts.Assembler) {
			a.Li(insts.RegA0, 10)
			a.Li(insts.RegA1, 0)
			a.Label("loop")
			a.Emit(insts.ADD(insts.RegA1, insts.RegA1, insts.RegA0))
			a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, -1))
			a.Bne(insts.RegA0, insts.RegZero, "loop")
			a.Emit(insts.SW(insts.RegA1, insts.RegSP, -4))
			a.Quit()
		})
	})

	JustBeforeEach(func() {
		var err error
		c, err = core.NewCore(cfg, prog)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create a core with pipeline", func() {
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Program()).To(BeIdenticalTo(prog))
	})

	It("should set up the stack and thread pointers", func() {
		Expect(c.Pipeline.Reg(insts.RegSP)).To(Equal(cfg.StackPointer()))
		Expect(c.Pipeline.Reg(insts.RegTP)).To(Equal(cfg.ThreadPointer()))
	})

	It("should count cycles as it ticks", func() {
		c.Tick()
		c.Tick()
		Expect(c.Pipeline.Clock()).To(Equal(uint64(2)))
	})

	It("should run until the program quits", func() {
		reason, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(reason).To(Equal(pipeline.StopQuit))
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Pipeline.Reg(insts.RegA1)).To(Equal(uint32(55)))
		Expect(c.Memory().Read32(cfg.StackPointer() - 4)).To(Equal(uint32(55)))

		stats := c.Stats()
		Expect(stats.Instructions).To(BeNumerically(">", 30))
		Expect(stats.Cycles).To(BeNumerically(">", 0))
		Expect(stats.IPC).To(BeNumerically(">", 0))
	})

	It("should report progress from RunCycles", func() {
		running, err := c.RunCycles(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeTrue())

		running, err = c.RunCycles(100000)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeFalse())
	})

	It("should agree with the functional emulator", func() {
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		golden, err := c.Golden()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Matches(golden)).To(Succeed())
	})

	It("should report a register difference", func() {
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		golden, err := c.Golden()
		Expect(err).NotTo(HaveOccurred())
		golden.RegFile().WriteReg(insts.RegA1, 1)
		Expect(c.Matches(golden)).To(MatchError(ContainSubstring("register a1")))
	})

	It("should start over after a reset", func() {
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Reset()).To(Succeed())
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Pipeline.Clock()).To(BeZero())
		Expect(c.Memory().Read32(cfg.StackPointer() - 4)).To(BeZero())
	})

	Context("with an invalid configuration", func() {
		It("should fail", func() {
			bad := config.DefaultConfig()
			bad.ROBSize = 6
			_, err := core.NewCore(bad, prog)
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})
	})

	Context("with a program larger than memory", func() {
		It("should fail", func() {
			big := loader.FromImage(0xFFFF0, make([]byte, 64), 0xFFFF0)
			_, err := core.NewCore(cfg, big)
			Expect(err).To(MatchError(loader.ErrImageTooLarge))
		})
	})
})
