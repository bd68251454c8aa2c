package pipeline_test

import (
	"fmt"

	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

const base = 0x1000

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MemorySize = 1 << 16
	return cfg
}

func newPipe(a *insts.Assembler, cfg *config.Config, opts ...pipeline.PipelineOption) (*pipeline.Pipeline, *emu.Memory) {
	mem := emu.NewMemory(cfg.MemorySize)
	image := a.MustAssemble()
	Expect(mem.LoadImage(a.Base(), image)).To(Succeed())

	opts = append([]pipeline.PipelineOption{
		pipeline.WithConfig(cfg),
		pipeline.WithMaxCycles(500000),
		pipeline.WithImageEnd(a.Base() + uint32(len(image))),
	}, opts...)
	p, err := pipeline.NewPipeline(mem, opts...)
	Expect(err).NotTo(HaveOccurred())

	p.SetPC(a.Base())
	p.SetReg(insts.RegSP, cfg.StackPointer())
	return p, mem
}

func golden(a *insts.Assembler, cfg *config.Config, opts ...emu.EmulatorOption) *emu.Emulator {
	opts = append([]emu.EmulatorOption{
		emu.WithMemory(emu.NewMemory(cfg.MemorySize)),
		emu.WithBenchOnly(cfg.Features.BenchOnly),
	}, opts...)
	e := emu.NewEmulator(opts...)
	Expect(e.LoadProgram(a.Base(), a.MustAssemble(), a.Base())).To(Succeed())
	e.RegFile().WriteReg(insts.RegSP, cfg.StackPointer())
	Expect(e.Run()).To(Succeed())
	return e
}

func expectSameState(p *pipeline.Pipeline, mem *emu.Memory, e *emu.Emulator) {
	for r := uint8(0); r < insts.NumRegs; r++ {
		Expect(p.Reg(r)).To(Equal(e.RegFile().ReadReg(r)), "register %s", insts.RegName(r))
	}
	Expect(mem.Equal(e.Memory())).To(BeTrue(), "memory differs")
}

type program struct {
	name  string
	build func(a *insts.Assembler)
}

func sumLoop(n int32) func(a *insts.Assembler) {
	return func(a *insts.Assembler) {
		a.Li(insts.RegT1, n)
		a.Label("loop")
		a.Emit(insts.ADD(insts.RegA0, insts.RegA0, insts.RegT1))
		a.Emit(insts.ADDI(insts.RegT1, insts.RegT1, -1))
		a.Bne(insts.RegT1, insts.RegZero, "loop")
		a.Quit()
	}
}

func bubbleSort(a *insts.Assembler) {
	data := []int32{9, -3, 7, 1, 0, 12, -8, 5, 5, 2, 31, -1}

	a.La(insts.RegS0, "data")
	a.Li(insts.RegA1, int32(len(data)-1))
	a.Label("outer")
	a.Mv(insts.RegA2, insts.RegS0)
	a.Mv(insts.RegA3, insts.RegA1)
	a.Label("inner")
	a.Emit(insts.LW(insts.RegA4, insts.RegA2, 0))
	a.Emit(insts.LW(insts.RegA5, insts.RegA2, 4))
	a.Bge(insts.RegA5, insts.RegA4, "noswap")
	a.Emit(insts.SW(insts.RegA5, insts.RegA2, 0))
	a.Emit(insts.SW(insts.RegA4, insts.RegA2, 4))
	a.Label("noswap")
	a.Emit(insts.ADDI(insts.RegA2, insts.RegA2, 4))
	a.Emit(insts.ADDI(insts.RegA3, insts.RegA3, -1))
	a.Bne(insts.RegA3, insts.RegZero, "inner")
	a.Emit(insts.ADDI(insts.RegA1, insts.RegA1, -1))
	a.Bne(insts.RegA1, insts.RegZero, "outer")
	a.Quit()

	a.Align(4)
	a.Label("data")
	for _, v := range data {
		a.Word(uint32(v))
	}
}

func callLoop(a *insts.Assembler) {
	a.Li(insts.RegA0, 1)
	a.Li(insts.RegS1, 5)
	a.Label("loop")
	a.Call("double")
	a.Emit(insts.ADDI(insts.RegS1, insts.RegS1, -1))
	a.Bne(insts.RegS1, insts.RegZero, "loop")
	a.Quit()

	a.Label("double")
	a.Emit(insts.ADD(insts.RegA0, insts.RegA0, insts.RegA0))
	a.Ret()
}

func fib(n int32) func(a *insts.Assembler) {
	return func(a *insts.Assembler) {
		a.Li(insts.RegA0, n)
		a.Call("fib")
		a.Quit()

		a.Label("fib")
		a.Li(insts.RegT1, 2)
		a.Blt(insts.RegA0, insts.RegT1, "done")
		a.Emit(insts.ADDI(insts.RegSP, insts.RegSP, -12))
		a.Emit(insts.SW(insts.RegRA, insts.RegSP, 0))
		a.Emit(insts.SW(insts.RegA0, insts.RegSP, 4))
		a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, -1))
		a.Call("fib")
		a.Emit(insts.SW(insts.RegA0, insts.RegSP, 8))
		a.Emit(insts.LW(insts.RegA0, insts.RegSP, 4))
		a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, -2))
		a.Call("fib")
		a.Emit(insts.LW(insts.RegA1, insts.RegSP, 8))
		a.Emit(insts.ADD(insts.RegA0, insts.RegA0, insts.RegA1))
		a.Emit(insts.LW(insts.RegRA, insts.RegSP, 0))
		a.Emit(insts.ADDI(insts.RegSP, insts.RegSP, 12))
		a.Label("done")
		a.Ret()
	}
}

func byteOps(a *insts.Assembler) {
	a.La(insts.RegS0, "buf")
	a.Li(insts.RegA0, -2)
	a.Emit(
		insts.SB(insts.RegA0, insts.RegS0, 0),
		insts.SH(insts.RegA0, insts.RegS0, 2),
		insts.LB(insts.RegA1, insts.RegS0, 0),
		insts.LBU(insts.RegA2, insts.RegS0, 0),
		insts.LH(insts.RegA3, insts.RegS0, 2),
		insts.LHU(insts.RegA4, insts.RegS0, 2),
		insts.LW(insts.RegA5, insts.RegS0, 0),
		insts.SW(insts.RegA0, insts.RegS0, 8),
		insts.LB(insts.RegA6, insts.RegS0, 9),
		insts.LHU(insts.RegA7, insts.RegS0, 10),
	)
	a.Quit()

	a.Align(4)
	a.Label("buf")
	a.Space(16)
}

func arith(a *insts.Assembler) {
	a.Li(insts.RegA0, 0x12345678)
	a.Li(insts.RegT1, -7)
	a.Emit(
		insts.SRAI(insts.RegA1, insts.RegT1, 1),
		insts.SRLI(insts.RegA2, insts.RegT1, 28),
		insts.SLLI(insts.RegA3, insts.RegA0, 4),
		insts.SLT(insts.RegA4, insts.RegT1, insts.RegA0),
		insts.SLTU(insts.RegA5, insts.RegT1, insts.RegA0),
		insts.SLTI(insts.RegA6, insts.RegT1, -8),
		insts.SLTIU(insts.RegA7, insts.RegA0, -1),
		insts.XORI(insts.RegS2, insts.RegA0, 0x7FF),
		insts.ORI(insts.RegS1, insts.RegT1, 0x10),
		insts.ANDI(insts.RegT2, insts.RegA0, 0xF0),
		insts.AUIPC(insts.RegT5, 1),
		insts.SUB(insts.RegT6, insts.RegA0, insts.RegT1),
		insts.SRA(insts.RegT6, insts.RegT6, insts.RegA2),
		insts.FENCE(),
		insts.NOP(),
	)
	a.Quit()
}

// branchy mixes data-dependent branches that the predictors disagree on.
func branchy(a *insts.Assembler) {
	a.Li(insts.RegS1, 40)
	a.Label("loop")
	a.Emit(insts.ANDI(insts.RegT1, insts.RegS1, 3))
	a.Beq(insts.RegT1, insts.RegZero, "four")
	a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, 1))
	a.J("next")
	a.Label("four")
	a.Emit(insts.ADDI(insts.RegA1, insts.RegA1, 1))
	a.Label("next")
	a.Emit(insts.ANDI(insts.RegT2, insts.RegS1, 1))
	a.Bne(insts.RegT2, insts.RegZero, "odd")
	a.Emit(insts.ADDI(insts.RegA2, insts.RegA2, 2))
	a.Label("odd")
	a.Emit(insts.ADDI(insts.RegS1, insts.RegS1, -1))
	a.Bne(insts.RegS1, insts.RegZero, "loop")
	a.Quit()
}

var programs = []program{
	{"sum loop", sumLoop(20)},
	{"bubble sort", bubbleSort},
	{"call loop", callLoop},
	{"recursive fib", fib(10)},
	{"byte ops", byteOps},
	{"arithmetic", arith},
	{"branchy", branchy},
}

func assemble(build func(a *insts.Assembler)) *insts.Assembler {
	a := insts.NewAssembler(base)
	build(a)
	return a
}

func describe(p *pipeline.Pipeline) string {
	s := p.Stats()
	return fmt.Sprintf("clock=%d retired=%d flushed=%d", p.Clock(), s.Retired, s.Flushed)
}
