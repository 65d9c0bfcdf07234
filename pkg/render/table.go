package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

const (
	excerptWidth     = 60
	explanationWidth = 50
)

// Table writes a header block, the findings table and the summary.
func Table(w io.Writer, rec *store.Record, opts Options) error {
	pal := newPalette(opts.Color)

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", rec.Title)
	fmt.Fprintf(&sb, "Status: %s (%s, %d%%)\n", rec.Status, rec.Stage, rec.Progress)

	if cls := rec.Classification; cls != nil {
		fmt.Fprintf(&sb, "Type: %s, %s paper\n", cls.ContractType, cls.PaperType)

		if len(cls.Parties) > 0 {
			fmt.Fprintf(&sb, "Parties: %s\n", strings.Join(cls.Parties, ", "))
		}
	}

	if rec.TotalSegments > 1 {
		fmt.Fprintf(&sb, "Segments: %d/%d\n", rec.CompletedSegments, rec.TotalSegments)
	}

	if rec.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", pal.critical.Sprint(rec.Error))
	}

	sb.WriteString("\n")
	sb.WriteString(findingsTable(rec.Findings, pal))
	sb.WriteString("\n")

	if opts.Redlines {
		writeRedlines(&sb, rec.Findings, opts.Color)
	}

	writeTriage(&sb, rec.Findings)

	if sum := rec.Summary; sum != nil {
		fmt.Fprintf(&sb, "\nOverall risk: %s\n%s\n", pal.risk(sum.OverallRisk), sum.ExecutiveSummary)
		writeList(&sb, "Key findings", sum.KeyFindings)
		writeList(&sb, "Missing clauses", sum.MissingClauses)
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func findingsTable(findings []finding.Finding, pal palette) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: excerptWidth},
		{Number: 5, WidthMax: explanationWidth},
	})

	tbl.AppendHeader(table.Row{"#", "Type", "Risk", "Excerpt", "Violations"})

	for _, f := range findings {
		tbl.AppendRow(table.Row{f.Number, f.Type, pal.risk(f.Risk), oneLine(f.Text, excerptWidth), violations(f.Violations, pal)})
	}

	counts := finding.CountByRisk(findings)
	tbl.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d clauses: %d high, %d medium, %d low",
		len(findings), counts[finding.RiskHigh], counts[finding.RiskMedium], counts[finding.RiskLow]), ""})

	return tbl.Render()
}

func violations(vs []finding.Violation, pal palette) string {
	if len(vs) == 0 {
		return pal.muted.Sprint("none")
	}

	lines := make([]string, len(vs))
	for idx, v := range vs {
		lines[idx] = fmt.Sprintf("%s [%s]", v.RuleName, pal.severity(v.Severity))
	}

	return strings.Join(lines, "\n")
}

func writeRedlines(sb *strings.Builder, findings []finding.Finding, colored bool) {
	for _, f := range findings {
		if !f.HasRedline() {
			continue
		}

		fmt.Fprintf(sb, "\nClause %d redline (%s):\n%s\n", f.Number, f.Type, Redline(f.Text, f.Redline, colored))

		if f.RedlineExplanation != "" {
			fmt.Fprintf(sb, "  %s\n", f.RedlineExplanation)
		}
	}
}

// writeTriage lists the reviewer's decisions on triaged findings.
func writeTriage(sb *strings.Builder, findings []finding.Finding) {
	header := false

	for _, f := range findings {
		if f.Status == "" {
			continue
		}

		if !header {
			sb.WriteString("\nReviewer decisions:\n")

			header = true
		}

		fmt.Fprintf(sb, "  %d. %s: %s\n", f.Number, f.Type, f.Status)

		if f.UserRedline != "" {
			fmt.Fprintf(sb, "     revision: %s\n", f.UserRedline)
		}

		if f.UserNote != "" {
			fmt.Fprintf(sb, "     note: %s\n", f.UserNote)
		}
	}
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n%s:\n", title)

	for _, item := range items {
		fmt.Fprintf(sb, "  - %s\n", item)
	}
}

// oneLine collapses whitespace and truncates s to width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}

	return string([]rune(s)[:width-1]) + "…"
}
