package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/persist"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
)

// NewShowCommand creates the show command, which renders a saved snapshot.
func NewShowCommand() *cobra.Command {
	var (
		format   string
		noColor  bool
		redlines bool
	)

	cmd := &cobra.Command{
		Use:   "show <snapshot>",
		Short: "Render a review snapshot written by review --save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatErr := render.ValidateFormat(format)
			if formatErr != nil {
				return formatErr
			}

			var rec store.Record

			err := persist.LoadFile(args[0], persist.CodecFor(args[0]), &rec)
			if err != nil {
				return err
			}

			if rec.ID == "" {
				return fmt.Errorf("%w: %s has no review id", store.ErrInvalidRecord, args[0])
			}

			return render.Review(cmd.OutOrStdout(), format, &rec, render.Options{
				Color:    !noColor && !color.NoColor,
				Redlines: redlines,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", render.FormatTable, "Output format: table, json, html")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().BoolVar(&redlines, "redlines", false, "Show a diff for every suggested revision")

	return cmd
}
