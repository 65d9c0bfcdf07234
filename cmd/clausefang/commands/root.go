package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/config"
	"github.com/Sumatoshi-tech/clausefang/pkg/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	provider   string
}

// loadConfig reads the configuration and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.provider != "" {
		cfg.Inference.Provider = o.provider

		validateErr := cfg.Validate()
		if validateErr != nil {
			return nil, fmt.Errorf("invalid configuration: %w", validateErr)
		}
	}

	return cfg, nil
}

// NewRootCommand creates the clausefang command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "clausefang",
		Short: "Clausefang contract review - playbook-driven clause risk analysis",
		Long: `Clausefang reviews contracts clause by clause against a playbook.

Long contracts are split into overlapping segments that are analyzed
concurrently; the findings are merged, deduplicated and summarized.

Commands:
  review    Review a contract and print the findings
  segment   Show how a contract would be split into segments
  serve     Run the HTTP review API
  mcp       Run the MCP server on stdio
  playbook  Show, validate or extend playbooks
  show      Render a saved review snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Config file (default: .clausefang.yaml in the working or home directory)")
	rootCmd.PersistentFlags().StringVar(&opts.provider, "provider", "",
		"Inference provider override: anthropic, openai, mock")

	rootCmd.AddCommand(NewReviewCommand(opts))
	rootCmd.AddCommand(NewSegmentCommand(opts))
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewMCPCommand(opts))
	rootCmd.AddCommand(NewPlaybookCommand(opts))
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// nopWriteCloser adapts a writer the command does not own.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
