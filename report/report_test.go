package report_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/report"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Report", func() {
	var r *report.Report

	BeforeEach(func() {
		r = &report.Report{
			Name:           "loop",
			Clock:          200,
			MinLoadLatency: 3,
			Stats: pipeline.Statistics{
				Issued:            120,
				Retired:           100,
				Flushed:           7,
				StallMispredict:   20,
				WaitArgs:          30,
				Loads:             10,
				Stores:            5,
				Branches:          20,
				Arithmetic:        65,
				JALBTACHit:        3,
				JALBTACMiss:       1,
				JALRRASCorrect:    2,
				JALRRASBTACHit:    1,
				CondBHTCorrect:    12,
				CondBHTIncorrect:  2,
				CondStaticCorrect: 1,
				BHTConflicts:      3,
				MaxCallDepth:      2,
				FetchWindows:      50,
				FetchWindowSum:    150,
			},
		}
	})

	It("should render the summary", func() {
		var buf bytes.Buffer
		Expect(r.WriteText(&buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("== loop =="))
		Expect(out).To(ContainSubstring("Retired 100 and flushed 7 in 200 cycles"))
		Expect(out).To(ContainSubstring("0.5000"))
		Expect(out).To(ContainSubstring("Avg fetch window"))
		Expect(out).To(ContainSubstring("1 / 2"))
		Expect(out).To(MatchRegexp(`Min load latency\s*\|\s*3\s*\|`))
		Expect(out).To(ContainSubstring("25.00%"))
		Expect(out).To(ContainSubstring("BHT conflicts: 3 / 15 (20.00%)"))
	})

	It("should label unpredicted branches", func() {
		var buf bytes.Buffer
		Expect(r.WriteText(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Static"))

		r.NoSpec = true
		buf.Reset()
		Expect(r.WriteText(&buf)).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("Static"))
	})

	It("should render an empty run without dividing by zero", func() {
		var buf bytes.Buffer
		empty := &report.Report{}
		Expect(empty.WriteText(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("0.00%"))
		Expect(buf.String()).NotTo(ContainSubstring("NaN"))
	})

	It("should take the minimum load latency from the pipeline", func() {
		cfg := config.DefaultConfig()
		cfg.MemorySize = 1 << 16
		cfg.DCache.Enabled = true
		p, err := pipeline.NewPipeline(emu.NewMemory(cfg.MemorySize), pipeline.WithConfig(cfg))
		Expect(err).NotTo(HaveOccurred())

		got := report.New("empty", p)
		Expect(got.MinLoadLatency).To(Equal(cfg.LoadLatency + cfg.DCache.HitLatency))
	})

	It("should render charts", func() {
		var buf bytes.Buffer
		Expect(r.WriteHTML(&buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("<html"))
		Expect(out).To(ContainSubstring("Instruction mix"))
		Expect(out).To(ContainSubstring("Branch prediction"))
		Expect(out).To(ContainSubstring("mispredict"))
	})

	It("should list per-address counters in order", func() {
		mem := emu.NewMemory(64 * 1024)
		mem.Write32(0x100, insts.ADDI(insts.RegA0, insts.RegA0, 1))

		stats := map[uint32]pipeline.PerPCStats{
			0x104: {Type: pipeline.ROBBranch, Branch: pipeline.BranchCond, Retired: 9, BHTCorrect: 8, BHTIncorrect: 1},
			0x100: {Type: pipeline.ROBRegister, Issued: 10, Retired: 10},
		}

		var buf bytes.Buffer
		report.WritePerPC(&buf, stats, mem)

		out := buf.String()
		Expect(out).To(ContainSubstring("addi a0, a0, 1"))
		Expect(out).To(ContainSubstring("8/1"))
		Expect(bytes.Index(buf.Bytes(), []byte("00000100"))).To(BeNumerically("<",
			bytes.Index(buf.Bytes(), []byte("00000104"))))
	})
})
