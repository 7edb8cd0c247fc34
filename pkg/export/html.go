package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	defaultChartTop = 20
	chartWidth      = "100%"
	chartHeight     = "500px"
	pageTitle       = "Hero picks"
)

// WriteHTML renders a page with daily pick volume and the most picked heroes.
func WriteHTML(w io.Writer, t *Table, o Options) error {
	page := components.NewPage()
	page.PageTitle = pageTitle

	page.AddCharts(dailyChart(t), topHeroesChart(t, o))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	return nil
}

func dailyChart(t *Table) *charts.Line {
	labels := make([]string, len(t.Days))
	for i, day := range t.Days {
		labels[i] = day.String()
	}

	totals := t.DayTotals()

	data := make([]opts.LineData, len(totals))
	for i, total := range totals {
		data[i] = opts.LineData{Value: total}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Picks per day"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Picks"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Picks", data)

	return line
}

func topHeroesChart(t *Table, o Options) *charts.Bar {
	n := o.Top
	if n <= 0 {
		n = defaultChartTop
	}

	totals := t.HeroTotals()
	top := t.Top(n)

	labels := make([]string, len(top))
	data := make([]opts.BarData, len(top))

	for k, j := range top {
		labels[k] = o.Names.Name(t.Heroes[j])
		data[k] = opts.BarData{Value: totals[j]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Top %d heroes", len(top))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hero"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Picks"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("Picks", data)

	return bar
}
