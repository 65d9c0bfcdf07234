package render

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

var riskColors = map[finding.RiskLevel]string{
	finding.RiskHigh:   "#dc2626",
	finding.RiskMedium: "#f59e0b",
	finding.RiskLow:    "#16a34a",
}

var severityColors = map[finding.Severity]string{
	finding.SeverityCritical: "#b91c1c",
	finding.SeverityWarning:  "#d97706",
	finding.SeverityInfo:     "#2563eb",
}

// HTMLReport writes a standalone page with risk charts for rec.
func HTMLReport(w io.Writer, rec *store.Record) error {
	page := components.NewPage()
	page.PageTitle = rec.Title
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(
		riskBar(rec),
		clauseTypeBar(rec.Findings),
		violationPie(rec.Findings),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return nil
}

func riskBar(rec *store.Record) *charts.Bar {
	counts := finding.CountByRisk(rec.Findings)

	subtitle := fmt.Sprintf("%d clauses reviewed", len(rec.Findings))
	if rec.Summary != nil {
		subtitle += ", overall risk " + string(rec.Summary.OverallRisk)
	}

	labels := make([]string, len(finding.RiskLevels))
	data := make([]opts.BarData, len(finding.RiskLevels))

	for idx, level := range finding.RiskLevels {
		labels[idx] = string(level)
		data[idx] = opts.BarData{
			Value:     counts[level],
			ItemStyle: &opts.ItemStyle{Color: riskColors[level]},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Findings by risk", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(labels).AddSeries("clauses", data)

	return bar
}

func clauseTypeBar(findings []finding.Finding) *charts.Bar {
	byType := map[string]map[finding.RiskLevel]int{}

	for _, f := range findings {
		if byType[f.Type] == nil {
			byType[f.Type] = map[finding.RiskLevel]int{}
		}

		byType[f.Type][f.Risk]++
	}

	types := make([]string, 0, len(byType))
	for clauseType := range byType {
		types = append(types, clauseType)
	}

	slices.Sort(types)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Clause types"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "0"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30, Interval: "0"}}),
	)
	bar.SetXAxis(types)

	for _, level := range finding.RiskLevels {
		data := make([]opts.BarData, len(types))
		for idx, clauseType := range types {
			data[idx] = opts.BarData{Value: byType[clauseType][level]}
		}

		bar.AddSeries(string(level), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "risk"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: riskColors[level]}),
		)
	}

	return bar
}

func violationPie(findings []finding.Finding) *charts.Pie {
	counts := map[finding.Severity]int{}

	for _, f := range findings {
		for _, v := range f.Violations {
			counts[v.Severity]++
		}
	}

	data := make([]opts.PieData, 0, len(counts))

	for _, sev := range []finding.Severity{finding.SeverityCritical, finding.SeverityWarning, finding.SeverityInfo} {
		if counts[sev] == 0 {
			continue
		}

		data = append(data, opts.PieData{
			Name:      string(sev),
			Value:     counts[sev],
			ItemStyle: &opts.ItemStyle{Color: severityColors[sev]},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Playbook violations", Subtitle: "by rule severity"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("violations", data, charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}))

	return pie
}
