package debugger_test

import (
	"bytes"
	"fmt"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/debugger"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/log"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Debugger", func() {
	var (
		out  *bytes.Buffer
		c    *core.Core
		d    *debugger.Debugger
		cfg  *config.Config
		prog *loader.Program
		loop uint32
		msg  uint32
	)

	BeforeEach(func() {
		a := insts.NewAssembler(loader.BinOffset)
		a.Li(insts.RegA0, 5)
		a.Label("loop")
		a.Emit(insts.ADD(insts.RegA1, insts.RegA1, insts.RegA0))
		a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, -1))
		a.Bne(insts.RegA0, insts.RegZero, "loop")
		a.Call("leaf")
		a.Debug(insts.DebugBreak)
		a.Quit()
		a.Label("leaf")
		a.Ret()
		a.Label("msg")
		a.String("hello")

		loop, _ = a.Symbol("loop")
		msg, _ = a.Symbol("msg")

		cfg = config.DefaultConfig()
		cfg.MemorySize = 1 << 20
		prog = loader.FromImage(a.Base(), a.MustAssemble(), a.Base())

		var err error
		c, err = core.NewCore(cfg, prog)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
		d = debugger.New(c, out)
	})

	run := func(line string) string {
		out.Reset()
		Expect(d.Execute(line)).To(Succeed())
		return out.String()
	}

	It("should step one cycle", func() {
		run("n")
		Expect(c.Pipeline.Clock()).To(Equal(uint64(1)))
		run("")
		Expect(c.Pipeline.Clock()).To(Equal(uint64(2)))
	})

	It("should continue to the program's break request", func() {
		text := run("c")
		Expect(text).To(ContainSubstring("Paused (break)"))
		Expect(text).To(ContainSubstring("PC:"))
		Expect(c.Pipeline.Reg(insts.RegA1)).To(Equal(uint32(15)))

		text = run("c")
		Expect(text).To(ContainSubstring("Stopped (quit)"))
		Expect(c.Halted()).To(BeTrue())
	})

	It("should toggle breakpoints", func() {
		Expect(run(fmt.Sprintf("b %x", loop))).To(ContainSubstring("Set breakpoint"))
		Expect(run("p bp")).To(ContainSubstring(fmt.Sprintf("%x", loop)))

		Expect(run("c")).To(ContainSubstring("Paused (breakpoint)"))

		Expect(run(fmt.Sprintf("b 0x%x", loop))).To(ContainSubstring("Unset breakpoint"))
		Expect(c.Pipeline.Breakpoints()).To(BeEmpty())
	})

	It("should print memory", func() {
		Expect(run(fmt.Sprintf("m %x", msg))).To(Equal("hello\n"))
		Expect(run(fmt.Sprintf("x %x", loader.BinOffset))).To(ContainSubstring("addi a0, zero, 5"))
	})

	It("should dump pipeline structures", func() {
		run("n")
		run("n")
		run("n")

		Expect(run("p rob")).To(ContainSubstring("rob tail:"))
		Expect(run("p reg")).To(ContainSubstring("sp"))
		Expect(run("p rs")).To(ContainSubstring("ldb tail:"))
		Expect(run("p cdb")).To(ContainSubstring("[0]"))

		run("c")
		Expect(run("p bht")).To(ContainSubstring(fmt.Sprintf("%x:", loop+8)))
		Expect(run("p btac")).To(ContainSubstring("->"))
		Expect(run("p ras")).To(ContainSubstring("ras head:"))
		Expect(run("p stats")).To(ContainSubstring("Retired"))
	})

	It("should toggle the trace", func() {
		Expect(run("s")).To(Equal("Debug spew on\n"))
		Expect(c.Pipeline.Tracing()).To(BeTrue())
		Expect(run("s")).To(Equal("Debug spew off\n"))
	})

	It("should print the trace of a quiet logger once toggled", func() {
		var spew bytes.Buffer
		lv := new(slog.LevelVar)
		lv.Set(log.LevelWarn)

		var err error
		c, err = core.NewCore(cfg, prog,
			pipeline.WithLogger(log.New(&spew, lv)),
			pipeline.WithLogLevel(lv))
		Expect(err).NotTo(HaveOccurred())
		d = debugger.New(c, out)
		step := func() {
			for i := 0; i < 5; i++ {
				run("n")
			}
		}

		step()
		Expect(spew.Len()).To(BeZero())

		run("s")
		step()
		Expect(spew.String()).To(ContainSubstring("level=TRACE"))

		run("s")
		Expect(lv.Level()).To(Equal(log.LevelWarn))
		spew.Reset()
		step()
		Expect(spew.Len()).To(BeZero())
	})

	It("should evaluate expressions", func() {
		run("c")
		Expect(run("e reg('a1')")).To(Equal("15 (0xf)\n"))
		Expect(run("e reg('x11') + 1")).To(Equal("16 (0x10)\n"))
		Expect(run(fmt.Sprintf("e mem(%d)", loader.BinOffset))).To(
			Equal(fmt.Sprintf("%d (0x%x)\n", insts.ADDI(insts.RegA0, insts.RegZero, 5),
				insts.ADDI(insts.RegA0, insts.RegZero, 5))))
		Expect(run("e stats().Retired > 0")).To(Equal("true\n"))
	})

	It("should report errors", func() {
		Expect(d.Execute("p nothing")).To(MatchError(ContainSubstring("unknown thing")))
		Expect(d.Execute("m zz")).To(MatchError(ContainSubstring("invalid address")))
		Expect(d.Execute("b")).To(MatchError(ContainSubstring("invalid breakpoint")))
		Expect(d.Execute("e reg('q9')")).To(MatchError(ContainSubstring("unknown register")))
		Expect(d.Execute("e mem(0x7fffffff)")).To(HaveOccurred())
		Expect(d.Execute("z")).To(MatchError(ContainSubstring("unknown command")))
	})

	It("should quit", func() {
		Expect(d.Execute("q")).To(MatchError(debugger.ErrQuit))
	})
})
