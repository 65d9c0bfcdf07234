package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/clausefang/pkg/safeconv"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
	"github.com/Sumatoshi-tech/clausefang/pkg/textutil"
)

const previewWidth = 48

// Plan writes the segmentation plan as a table followed by its summary line.
func Plan(w io.Writer, plan segment.Plan) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Start", "End", "Size", "Lines", "Begins with"})

	for _, seg := range plan.Segments {
		tbl.AppendRow(table.Row{
			seg.Index,
			seg.Start,
			seg.End,
			humanize.Bytes(safeconv.MustIntToUint64(seg.Len())),
			textutil.CountLines(seg.Text),
			oneLine(seg.Text, previewWidth),
		})
	}

	_, err := fmt.Fprintf(w, "%s\n%s (document %s)\n", tbl.Render(), plan, humanize.Bytes(safeconv.MustIntToUint64(plan.Bytes)))

	return err
}
