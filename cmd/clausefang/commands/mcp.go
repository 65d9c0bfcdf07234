package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/mcp"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/safeconv"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(opts *rootOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes contract review as tools that AI agents can discover
and invoke:
  - clausefang_review: Review contract text against the playbook
  - clausefang_segment: Show the segmentation plan of contract text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol; logs go to stderr as JSON.
			cfg.Observability.LogJSON = true

			maxInput, err := cfg.Server.MaxUploadBytes()
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, appOptions{mode: observability.ModeMCP, debug: debug})
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := app.Close(context.WithoutCancel(cmd.Context()))
				if shutdownErr != nil {
					app.Providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			srv := mcp.NewServer(app.Reviewer, mcp.ServerDeps{
				Logger:        app.Providers.Logger,
				Metrics:       app.RED,
				Tracer:        app.Providers.Tracer,
				MaxInputBytes: safeconv.ClampInt64ToInt(maxInput),
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
