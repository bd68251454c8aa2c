// Package report renders pipeline statistics as text tables and HTML charts.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/slices"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// Report is the statistics of one run.
type Report struct {
	// Name labels the run in headings.
	Name string

	Stats pipeline.Statistics
	// Clock is the cycle count at the end of the run.
	Clock uint64

	// MinLoadLatency is the fastest a load could complete, in cycles.
	MinLoadLatency uint64

	// NoSpec labels unpredicted conditional branches as "None" rather than
	// "Static".
	NoSpec bool
}

// New builds a report from the current state of a pipeline.
func New(name string, p *pipeline.Pipeline) *Report {
	return &Report{
		Name:           name,
		Stats:          p.Stats(),
		Clock:          p.Clock(),
		MinLoadLatency: p.Latency().MinLoadLatency(),
		NoSpec:         p.Config().Features.NoSpec,
	}
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func count(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func pct(n, total uint64) string {
	return fmt.Sprintf("%.2f%%", percent(n, total))
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

// WriteText renders the summary, stall, instruction mix and branch
// prediction tables.
func (r *Report) WriteText(w io.Writer) error {
	s := r.Stats
	cycles := s.Cycles(r.Clock)

	if r.Name != "" {
		if _, err := fmt.Fprintf(w, "== %s ==\n", r.Name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Retired %d and flushed %d in %d cycles\n",
		s.Retired, s.Flushed, cycles); err != nil {
		return err
	}

	summary := newTable(w, "Metric", "Value")
	summary.AppendBulk([][]string{
		{"Issued", count(s.Issued)},
		{"IPC", fmt.Sprintf("%.4f", s.IPC(r.Clock))},
		{"IPC excluding mispredict", fmt.Sprintf("%.4f", s.IPCExcludingMispredict(r.Clock))},
		{"CPI", fmt.Sprintf("%.4f", s.CPI(r.Clock))},
		{"Avg fetch window", fmt.Sprintf("%.3f", s.AvgFetchWindow())},
		{"Min load latency", count(r.MinLoadLatency)},
		{"Commit stalls", count(s.Stalled)},
		{"Mispredict stall cycles", fmt.Sprintf("%d (%s)", s.StallMispredict, pct(s.StallMispredict, cycles))},
		{"Max call depth", strconv.FormatInt(s.MaxCallDepth, 10)},
		{"Returns hit in RAS and BTAC", fmt.Sprintf("%d / %d", s.JALRRASBTACHit, s.JALRRASCorrect)},
	})
	summary.Render()

	waits := newTable(w, "Waited on", "Count", "Per issued")
	for _, row := range []struct {
		name string
		n    uint64
	}{
		{"args", s.WaitArgs},
		{"exec unit", s.WaitEx},
		{"cdb", s.WaitCDB},
		{"store addr", s.WaitStoreAddr},
		{"store data", s.WaitStoreData},
	} {
		waits.Append([]string{row.name, count(row.n), pct(row.n, s.Issued)})
	}
	waits.Render()

	mix := newTable(w, "Class", "Retired", "Share")
	for _, row := range mixRows(s) {
		mix.Append([]string{row.name, count(row.n), pct(row.n, s.Retired)})
	}
	mix.Render()

	if _, err := fmt.Fprintln(w, "Branch prediction:"); err != nil {
		return err
	}
	branches := newTable(w, "Kind", "Source", "Num", "Share", "Correct", "Mispredict", "Correct rate")
	for _, row := range r.branchRows() {
		n := row.correct + row.incorrect
		branches.Append([]string{
			row.kind, row.source, count(n), pct(n, row.total),
			count(row.correct), count(row.incorrect), pct(row.correct, n),
		})
	}
	branches.Render()

	cond := condTotal(s)
	_, err := fmt.Fprintf(w, "BHT conflicts: %d / %d (%s)\n", s.BHTConflicts, cond, pct(s.BHTConflicts, cond))
	return err
}

type mixRow struct {
	name string
	n    uint64
}

func mixRows(s pipeline.Statistics) []mixRow {
	return []mixRow{
		{"Loads", s.Loads},
		{"Stores", s.Stores},
		{"Branches", s.Branches},
		{"Arithmetic", s.Arithmetic},
		{"Env", s.Env},
	}
}

type branchRow struct {
	kind, source       string
	correct, incorrect uint64
	total              uint64
}

func condTotal(s pipeline.Statistics) uint64 {
	return s.CondBHTCorrect + s.CondBHTIncorrect + s.CondBTACCorrect + s.CondBTACIncorrect +
		s.CondStaticCorrect + s.CondStaticIncorrect
}

// branchRows lists the prediction outcomes per branch kind and source. A
// JAL that hits the BTAC counts as correct; misses are listed with no
// correct predictions.
func (r *Report) branchRows() []branchRow {
	s := r.Stats

	jal := s.JALBTACHit + s.JALBTACMiss
	jalr := s.JALRBTACCorrect + s.JALRBTACIncorrect + s.JALRRASCorrect + s.JALRRASIncorrect + s.JALRBTACMiss
	cond := condTotal(s)

	static := "Static"
	if r.NoSpec {
		static = "None"
	}

	return []branchRow{
		{"JAL", "BTAC", s.JALBTACHit, 0, jal},
		{"JAL", "None", 0, s.JALBTACMiss, jal},
		{"JALR", "BTAC", s.JALRBTACCorrect, s.JALRBTACIncorrect, jalr},
		{"JALR", "RAS", s.JALRRASCorrect, s.JALRRASIncorrect, jalr},
		{"JALR", "None", 0, s.JALRBTACMiss, jalr},
		{"Cond", "All", s.CondCorrect(), s.CondIncorrect(), cond},
		{"Cond", static, s.CondStaticCorrect, s.CondStaticIncorrect, cond},
		{"Cond", "BHT", s.CondBHTCorrect, s.CondBHTIncorrect, cond},
		{"Cond", "BTAC", s.CondBTACCorrect, s.CondBTACIncorrect, cond},
	}
}

// WritePerPC renders the per-address counters in address order. When mem is
// not nil each row carries the disassembled instruction.
func WritePerPC(w io.Writer, stats map[uint32]pipeline.PerPCStats, mem *emu.Memory) {
	pcs := make([]uint32, 0, len(stats))
	for pc := range stats {
		pcs = append(pcs, pc)
	}
	slices.Sort(pcs)

	t := newTable(w, "PC", "Inst", "Type", "Branch", "Issued", "Retired",
		"Retire stall", "Arg stall", "Ex stall", "BTAC ok/bad", "BHT ok/bad", "Static ok/bad", "Miss")
	for _, pc := range pcs {
		s := stats[pc]
		inst := ""
		if mem != nil {
			if word, err := mem.Read(pc, 4); err == nil {
				inst = insts.Disassemble(word, pc)
			}
		}
		t.Append([]string{
			fmt.Sprintf("%08x", pc), inst, s.Type.String(), s.Branch.String(),
			count(s.Issued), count(s.Retired), count(s.RetireStall), count(s.ArgStall), count(s.ExStall),
			count(s.BTACCorrect) + "/" + count(s.BTACIncorrect),
			count(s.BHTCorrect) + "/" + count(s.BHTIncorrect),
			count(s.StaticCorrect) + "/" + count(s.StaticIncorrect),
			count(s.Miss),
		})
	}
	t.Render()
}
