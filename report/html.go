package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func barData(values ...uint64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	return data
}

func newBar(title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	return bar
}

func (r *Report) mixChart() *charts.Bar {
	rows := mixRows(r.Stats)
	names := make([]string, len(rows))
	values := make([]uint64, len(rows))
	for i, row := range rows {
		names[i], values[i] = row.name, row.n
	}

	bar := newBar("Instruction mix", r.Name)
	bar.SetXAxis(names).AddSeries("retired", barData(values...))
	return bar
}

func (r *Report) branchChart() *charts.Bar {
	rows := r.branchRows()
	names := make([]string, len(rows))
	correct := make([]uint64, len(rows))
	incorrect := make([]uint64, len(rows))
	for i, row := range rows {
		names[i] = row.kind + " " + row.source
		correct[i], incorrect[i] = row.correct, row.incorrect
	}

	bar := newBar("Branch prediction", r.Name)
	bar.SetXAxis(names).
		AddSeries("correct", barData(correct...)).
		AddSeries("mispredict", barData(incorrect...)).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	return bar
}

func (r *Report) stallChart() *charts.Bar {
	s := r.Stats

	bar := newBar("Stalls", r.Name)
	bar.SetXAxis([]string{"args", "exec unit", "cdb", "store addr", "store data", "commit", "mispredict"}).
		AddSeries("cycles", barData(s.WaitArgs, s.WaitEx, s.WaitCDB, s.WaitStoreAddr,
			s.WaitStoreData, s.Stalled, s.StallMispredict))
	return bar
}

// WriteHTML renders the instruction mix, branch prediction and stall
// counters as a page of bar charts.
func (r *Report) WriteHTML(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "rvsim report"
	if r.Name != "" {
		page.PageTitle += ": " + r.Name
	}
	page.AddCharts(r.mixChart(), r.branchChart(), r.stallChart())
	return page.Render(w)
}
