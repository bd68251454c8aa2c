package benchmarks

import (
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
)

// GetMicrobenchmarks returns the built-in kernels. Each one stresses a
// different part of the core.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		loopSum(100),
		fibonacci(12),
		storeForwardChain(64),
		bubbleSort(),
		correlatedBranches(200),
		helloBench(),
	}
}

// GetCoreBenchmarks returns a quick subset: a loop, calls and memory.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSum(100),
		fibonacci(8),
		storeForwardChain(16),
	}
}

func program(a *insts.Assembler) *loader.Program {
	return loader.FromImage(a.Base(), a.MustAssemble(), a.Base())
}

// loopSum adds n..1 into a1 inside a benchmark region.
func loopSum(n int32) Benchmark {
	a := insts.NewAssembler(loader.BinOffset)
	a.Li(insts.RegA0, n)
	a.Li(insts.RegA1, 0)
	a.Debug(insts.DebugBenchBegin)
	a.Label("loop")
	a.Emit(insts.ADD(insts.RegA1, insts.RegA1, insts.RegA0))
	a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, -1))
	a.Bne(insts.RegA0, insts.RegZero, "loop")
	a.Debug(insts.DebugBenchEnd)
	a.Quit()

	return Benchmark{
		Name:        "loop_sum",
		Description: "tight counted loop, one taken backward branch per iteration",
		Program:     program(a),
		Check:       regEquals(insts.RegA1, uint32(n*(n+1)/2)),
	}
}

// fibonacci computes fib(n) recursively with a stack frame per call.
func fibonacci(n int32) Benchmark {
	a := insts.NewAssembler(loader.BinOffset)
	a.Li(insts.RegA0, n)
	a.Debug(insts.DebugBenchBegin)
	a.Call("fib")
	a.Debug(insts.DebugBenchEnd)
	a.Quit()

	// fib(a0): a0 < 2 ? a0 : fib(a0-1) + fib(a0-2)
	a.Label("fib")
	a.Li(insts.RegT0, 2)
	a.Blt(insts.RegA0, insts.RegT0, "fib_ret")
	a.Emit(
		insts.ADDI(insts.RegSP, insts.RegSP, -12),
		insts.SW(insts.RegRA, insts.RegSP, 8),
		insts.SW(insts.RegS0, insts.RegSP, 4),
		insts.SW(insts.RegS1, insts.RegSP, 0),
		insts.ADDI(insts.RegS0, insts.RegA0, 0),
		insts.ADDI(insts.RegA0, insts.RegS0, -1),
	)
	a.Call("fib")
	a.Emit(
		insts.ADDI(insts.RegS1, insts.RegA0, 0),
		insts.ADDI(insts.RegA0, insts.RegS0, -2),
	)
	a.Call("fib")
	a.Emit(
		insts.ADD(insts.RegA0, insts.RegA0, insts.RegS1),
		insts.LW(insts.RegS1, insts.RegSP, 0),
		insts.LW(insts.RegS0, insts.RegSP, 4),
		insts.LW(insts.RegRA, insts.RegSP, 8),
		insts.ADDI(insts.RegSP, insts.RegSP, 12),
	)
	a.Label("fib_ret")
	a.Ret()

	return Benchmark{
		Name:        "fibonacci",
		Description: "recursive calls and returns, exercises the return address stack",
		Program:     program(a),
		Check:       regEquals(insts.RegA0, fib(uint32(n))),
	}
}

func fib(n uint32) uint32 {
	x, y := uint32(0), uint32(1)
	for ; n > 0; n-- {
		x, y = y, x+y
	}
	return x
}

// storeForwardChain bounces a counter through memory, so every load
// depends on the store just before it. Byte and halfword accesses check
// narrow forwarding and sign extension.
func storeForwardChain(n int32) Benchmark {
	a := insts.NewAssembler(loader.BinOffset)
	a.La(insts.RegS0, "cell")
	a.Li(insts.RegA0, 0)
	a.Li(insts.RegT1, n)
	a.Debug(insts.DebugBenchBegin)
	a.Label("loop")
	a.Emit(
		insts.SW(insts.RegA0, insts.RegS0, 0),
		insts.LW(insts.RegA1, insts.RegS0, 0),
		insts.ADDI(insts.RegA0, insts.RegA1, 3),
		insts.SH(insts.RegA0, insts.RegS0, 4),
		insts.LH(insts.RegA2, insts.RegS0, 4),
		insts.SB(insts.RegA2, insts.RegS0, 8),
		insts.LBU(insts.RegA3, insts.RegS0, 8),
		insts.ADDI(insts.RegT1, insts.RegT1, -1),
	)
	a.Bne(insts.RegT1, insts.RegZero, "loop")
	a.Debug(insts.DebugBenchEnd)
	a.Quit()
	a.Align(4)
	a.Label("cell")
	a.Space(12)

	return Benchmark{
		Name:        "store_forward",
		Description: "load after store to the same address, store-to-load forwarding",
		Program:     program(a),
		Check:       regEquals(insts.RegA0, uint32(3*n)),
	}
}

var sortInput = []uint32{
	42, 7, 93, 15, 0xFFFFFFF0, 61, 28, 3, 77, 50, 0x80000000, 11, 36, 88, 19, 64,
}

// bubbleSort sorts a signed word array in place and leaves the smallest and
// largest elements in a0 and a1.
func bubbleSort() Benchmark {
	n := int32(len(sortInput))

	a := insts.NewAssembler(loader.BinOffset)
	a.La(insts.RegS0, "array")
	a.Li(insts.RegS1, n-1) // passes left
	a.Debug(insts.DebugBenchBegin)
	a.Label("outer")
	a.Mv(insts.RegT0, insts.RegS0)
	a.Mv(insts.RegT1, insts.RegS1)
	a.Label("inner")
	a.Emit(
		insts.LW(insts.RegA2, insts.RegT0, 0),
		insts.LW(insts.RegA3, insts.RegT0, 4),
	)
	a.Bge(insts.RegA3, insts.RegA2, "noswap")
	a.Emit(
		insts.SW(insts.RegA3, insts.RegT0, 0),
		insts.SW(insts.RegA2, insts.RegT0, 4),
	)
	a.Label("noswap")
	a.Emit(
		insts.ADDI(insts.RegT0, insts.RegT0, 4),
		insts.ADDI(insts.RegT1, insts.RegT1, -1),
	)
	a.Bne(insts.RegT1, insts.RegZero, "inner")
	a.Emit(insts.ADDI(insts.RegS1, insts.RegS1, -1))
	a.Bne(insts.RegS1, insts.RegZero, "outer")
	a.Emit(
		insts.LW(insts.RegA0, insts.RegS0, 0),
		insts.LW(insts.RegA1, insts.RegS0, (n-1)*4),
	)
	a.Debug(insts.DebugBenchEnd)
	a.Quit()
	a.Align(4)
	a.Label("array")
	for _, v := range sortInput {
		a.Word(v)
	}

	return Benchmark{
		Name:        "bubble_sort",
		Description: "data-dependent branches and overlapping loads and stores",
		Program:     program(a),
		Check: func(reg func(uint8) uint32) error {
			if err := regEquals(insts.RegA0, 0x80000000)(reg); err != nil {
				return err
			}
			return regEquals(insts.RegA1, 93)(reg)
		},
	}
}

// correlatedBranches has two branches on the same condition, so the
// second is predictable from global history.
func correlatedBranches(n int32) Benchmark {
	a := insts.NewAssembler(loader.BinOffset)
	a.Li(insts.RegT1, n)
	a.Li(insts.RegA0, 0)
	a.Li(insts.RegA1, 0)
	a.Debug(insts.DebugBenchBegin)
	a.Label("loop")
	a.Emit(
		insts.ANDI(insts.RegT0, insts.RegT1, 1),
		insts.SRLI(insts.RegT2, insts.RegT1, 1),
		insts.ANDI(insts.RegT2, insts.RegT2, 1),
		insts.XOR(insts.RegT0, insts.RegT0, insts.RegT2),
	)
	a.Beq(insts.RegT0, insts.RegZero, "skip_a")
	a.Emit(insts.ADDI(insts.RegA0, insts.RegA0, 1))
	a.Label("skip_a")
	a.Beq(insts.RegT0, insts.RegZero, "skip_b")
	a.Emit(insts.ADDI(insts.RegA1, insts.RegA1, 2))
	a.Label("skip_b")
	a.Emit(insts.ADDI(insts.RegT1, insts.RegT1, -1))
	a.Bne(insts.RegT1, insts.RegZero, "loop")
	a.Debug(insts.DebugBenchEnd)
	a.Quit()

	return Benchmark{
		Name:        "correlated_branches",
		Description: "pairs of branches on one condition, rewards global history",
		Program:     program(a),
		Check: func(reg func(uint8) uint32) error {
			half := uint32(n / 2)
			if err := regEquals(insts.RegA0, half)(reg); err != nil {
				return err
			}
			return regEquals(insts.RegA1, 2*half)(reg)
		},
	}
}

// helloBench prints inside a benchmark region; the print request travels
// through the debug protocol at commit.
func helloBench() Benchmark {
	a := insts.NewAssembler(loader.BinOffset)
	a.Debug(insts.DebugBenchBegin)
	a.Print("msg")
	a.Debug(insts.DebugBenchEnd)
	a.Quit()
	a.Label("msg")
	a.String("hello, world")

	return Benchmark{
		Name:        "hello",
		Description: "debug protocol print between benchmark markers",
		Program:     program(a),
	}
}
