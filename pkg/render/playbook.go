package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/clausefang/pkg/playbook"
)

// Playbook writes one table per profile listing its rules.
func Playbook(w io.Writer, pb *playbook.Playbook, opts Options) error {
	pal := newPalette(opts.Color)

	for idx, profile := range pb.Profiles {
		if idx > 0 {
			fmt.Fprintln(w)
		}

		heading := profile.Name
		if profile.ContractType != "" {
			heading += " (" + profile.ContractType + ")"
		}

		if profile.Default {
			heading += " [default]"
		}

		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Format.Footer = text.FormatDefault
		tbl.SetTitle(heading)
		tbl.AppendHeader(table.Row{"Rule", "Category", "Severity", "Enabled", "Condition"})

		for _, rule := range profile.Rules {
			enabled := "yes"
			if !rule.Enabled {
				enabled = pal.muted.Sprint("no")
			}

			tbl.AppendRow(table.Row{
				rule.Name,
				rule.Category,
				pal.severity(rule.Severity),
				enabled,
				oneLine(rule.Condition, previewWidth),
			})
		}

		tbl.AppendFooter(table.Row{fmt.Sprintf("%d of %d rules enabled", len(profile.RuleSet()), len(profile.Rules))})

		_, err := fmt.Fprintln(w, tbl.Render())
		if err != nil {
			return fmt.Errorf("write playbook: %w", err)
		}
	}

	return nil
}
