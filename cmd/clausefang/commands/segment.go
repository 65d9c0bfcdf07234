package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// NewSegmentCommand creates the segment command.
func NewSegmentCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Show how a contract would be split into segments",
		Long: `Split a contract with the configured sizing and print the plan without
calling any model. Useful for tuning pipeline.* settings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != render.FormatTable && format != render.FormatJSON {
				return fmt.Errorf("%w: %q (want table or json)", render.ErrUnknownFormat, format)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			maxBytes, err := cfg.Server.MaxUploadBytes()
			if err != nil {
				return err
			}

			name := stdinName
			if len(args) == 1 {
				name = args[0]
			}

			text, err := readContract(name, cmd.InOrStdin(), maxBytes)
			if err != nil {
				return err
			}

			if text == "" {
				return fmt.Errorf("%s: %w", name, pipeline.ErrEmptyDocument)
			}

			seg, err := segment.New(cfg.PipelineConfig().Segment)
			if err != nil {
				return err
			}

			plan := seg.Plan(text)

			if format == render.FormatJSON {
				return render.JSON(cmd.OutOrStdout(), plan)
			}

			return render.Plan(cmd.OutOrStdout(), plan)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", render.FormatTable, "Output format: table, json")

	return cmd
}
