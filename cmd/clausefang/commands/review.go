package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/persist"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
	"github.com/Sumatoshi-tech/clausefang/pkg/textutil"
)

// stdinName is the argument that reads the contract from standard input.
const stdinName = "-"

// ReviewCommand holds flags of the review command.
type ReviewCommand struct {
	opts *rootOptions

	format       string
	output       string
	title        string
	contractType string
	noColor      bool
	redlines     bool
	persist      bool
	save         string
}

// NewReviewCommand creates the review command.
func NewReviewCommand(opts *rootOptions) *cobra.Command {
	rc := &ReviewCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Review a contract and print the findings",
		Long: `Review a plain-text contract against the playbook.

The contract is read from the file argument, or from standard input when the
argument is "-" or missing. Findings are printed as a table, JSON or a
standalone HTML risk report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.format, "format", "f", render.FormatTable, "Output format: table, json, html")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&rc.title, "title", "", "Review title (default: file name or first line)")
	cmd.Flags().StringVar(&rc.contractType, "contract-type", "", "Skip classification and review as this contract type")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().BoolVar(&rc.redlines, "redlines", false, "Show a diff for every suggested revision")
	cmd.Flags().BoolVar(&rc.persist, "persist", false, "Save the review in the configured store")
	cmd.Flags().StringVar(&rc.save, "save", "", "Write a snapshot of the review record (.json or .json.lz4)")

	return cmd
}

func (rc *ReviewCommand) run(cmd *cobra.Command, args []string) error {
	formatErr := render.ValidateFormat(rc.format)
	if formatErr != nil {
		return formatErr
	}

	cfg, err := rc.opts.loadConfig()
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

	app, err := buildApp(cfg, appOptions{mode: observability.ModeCLI, persist: rc.persist})
	if err != nil {
		return err
	}

	defer func() {
		closeErr := app.Close(context.WithoutCancel(cmd.Context()))
		if closeErr != nil {
			app.Providers.Logger.Warn("shutdown failed", "error", closeErr)
		}
	}()

	title := rc.title
	if title == "" && name != stdinName {
		title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	rec, reviewErr := app.Reviewer.Review(cmd.Context(), review.Document{
		Title:        title,
		Text:         text,
		ContractType: rc.contractType,
	})
	if rec == nil {
		return reviewErr
	}

	if rc.save != "" {
		saveErr := persist.SaveFile(rc.save, persist.CodecFor(rc.save), rec)
		if saveErr != nil {
			return errors.Join(reviewErr, saveErr)
		}
	}

	out, err := rc.openOutput(cmd.OutOrStdout())
	if err != nil {
		return errors.Join(reviewErr, err)
	}

	renderErr := render.Review(out, rc.format, rec, render.Options{
		Color:    !rc.noColor && rc.output == "" && !color.NoColor,
		Redlines: rc.redlines,
	})

	return errors.Join(reviewErr, renderErr, out.Close())
}

func (rc *ReviewCommand) openOutput(stdout io.Writer) (io.WriteCloser, error) {
	if rc.output == "" {
		return nopWriteCloser{stdout}, nil
	}

	file, err := os.Create(rc.output)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	return file, nil
}

// readContract loads a document from path, or from stdin for "-".
func readContract(name string, stdin io.Reader, maxBytes int64) (string, error) {
	if name == stdinName {
		return textutil.ReadDocument("stdin", stdin, maxBytes)
	}

	return textutil.ReadFile(name, maxBytes)
}
