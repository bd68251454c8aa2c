package emu_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

const base = 0x1000

func runProgram(a *insts.Assembler, opts ...emu.EmulatorOption) (*emu.Emulator, error) {
	opts = append([]emu.EmulatorOption{emu.WithMemory(emu.NewMemory(1 << 16))}, opts...)
	e := emu.NewEmulator(opts...)
	Expect(e.LoadProgram(a.Base(), a.MustAssemble(), a.Base())).To(Succeed())
	e.RegFile().WriteReg(insts.RegSP, 1<<16-8)
	return e, e.Run()
}

var _ = Describe("Emulator", func() {
	var a *insts.Assembler

	BeforeEach(func() {
		a = insts.NewAssembler(base)
	})

	It("should execute arithmetic and quit", func() {
		a.Li(insts.RegA0, 40)
		a.Emit(insts.ADDI(insts.RegA1, insts.RegA0, 2))
		a.Emit(insts.SUB(insts.RegA2, insts.RegA1, insts.RegA0))
		a.Emit(insts.ADDI(insts.RegZero, insts.RegA0, 7))
		a.Quit()

		e, err := runProgram(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA1)).To(Equal(uint32(42)))
		Expect(e.RegFile().ReadReg(insts.RegA2)).To(Equal(uint32(2)))
		Expect(e.RegFile().ReadReg(insts.RegZero)).To(Equal(uint32(0)))
	})

	It("should run loops", func() {
		a.Li(insts.RegT1, 10)
		a.Label("loop")
		a.Emit(insts.ADD(insts.RegA0, insts.RegA0, insts.RegT1))
		a.Emit(insts.ADDI(insts.RegT1, insts.RegT1, -1))
		a.Bne(insts.RegT1, insts.RegZero, "loop")
		a.Quit()

		e, err := runProgram(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32(55)))
	})

	It("should call and return", func() {
		a.Li(insts.RegA0, 1)
		a.Call("double")
		a.Call("double")
		a.Quit()
		a.Label("double")
		a.Emit(insts.ADD(insts.RegA0, insts.RegA0, insts.RegA0))
		a.Ret()

		e, err := runProgram(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32(4)))
	})

	It("should load and store with sign extension", func() {
		a.Li(insts.RegT1, -2)
		a.Emit(insts.SH(insts.RegT1, insts.RegSP, -4))
		a.Emit(insts.LH(insts.RegA0, insts.RegSP, -4))
		a.Emit(insts.LHU(insts.RegA1, insts.RegSP, -4))
		a.Quit()

		e, err := runProgram(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32(0xFFFFFFFE)))
		Expect(e.RegFile().ReadReg(insts.RegA1)).To(Equal(uint32(0xFFFE)))
	})

	It("should print strings through the debug port", func() {
		var out bytes.Buffer
		a.Print("msg")
		a.Quit()
		a.Label("msg")
		a.String("hello")

		_, err := runProgram(a, emu.WithDebugPort(emu.NewStreamDebugPort(&out, nil)))
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("hello\n"))
	})

	It("should deliver input characters in t3", func() {
		a.Debug(insts.DebugInput)
		a.Mv(insts.RegA0, insts.RegT3)
		a.Quit()

		port := emu.NewStreamDebugPort(nil, strings.NewReader("k\n"))
		e, err := runProgram(a, emu.WithDebugPort(port))
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32('k')))
	})

	It("should stop at the end of a benchmark region in bench-only mode", func() {
		a.Debug(insts.DebugBenchBegin)
		a.Emit(insts.NOP(), insts.NOP())
		a.Debug(insts.DebugBenchEnd)
		a.Li(insts.RegA0, 1)
		a.Quit()

		e, err := runProgram(a, emu.WithBenchOnly(true))
		Expect(err).NotTo(HaveOccurred())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32(0)))
		Expect(e.BenchInstructions()).To(Equal(uint64(4)))
	})

	It("should report failed assertions", func() {
		a.Debug(insts.DebugAbort)

		_, err := runProgram(a)
		Expect(err).To(MatchError(emu.ErrAbort))
	})

	It("should reject unknown debug operations", func() {
		a.Debug(insts.DebugOp(99))

		_, err := runProgram(a)
		Expect(err).To(MatchError(emu.ErrProtocolViolation))
	})

	It("should fault on null stores", func() {
		a.Emit(insts.SW(insts.RegA0, insts.RegZero, 0))

		_, err := runProgram(a)
		Expect(err).To(MatchError(emu.ErrNullAccess))
	})

	It("should fault on unknown instructions", func() {
		a.Word(0)

		_, err := runProgram(a)
		Expect(err).To(MatchError(emu.ErrUnknownInstruction))
	})

	It("should stop at the instruction limit", func() {
		a.Label("spin")
		a.J("spin")

		_, err := runProgram(a, emu.WithMaxInstructions(100))
		Expect(err).To(MatchError(emu.ErrMaxInstructions))
	})
})
