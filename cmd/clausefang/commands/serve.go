package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP review API",
		Long: `Run the HTTP review API.

Routes:
  POST /v1/reviews                   submit a contract (JSON or multipart "file")
  GET  /v1/reviews                   list reviews, newest first
  GET  /v1/reviews/{id}              poll a review
  GET  /v1/reviews/{id}/report.html  risk report of a completed review
  PATCH /v1/reviews/{id}/findings/{number}
                                     triage a finding (status, userRedline, userNote)
  GET  /v1/playbook                  active playbook
  GET  /healthz, /readyz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.Server.Addr = addr
			}

			maxUpload, err := cfg.Server.MaxUploadBytes()
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, appOptions{mode: observability.ModeServe, persist: true, prometheus: true})
			if err != nil {
				return err
			}

			defer func() {
				closeErr := app.Close(context.WithoutCancel(cmd.Context()))
				if closeErr != nil {
					app.Providers.Logger.Warn("shutdown failed", "error", closeErr)
				}
			}()

			srv := server.New(app.Reviewer, server.Config{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				IdleTimeout:     cfg.Server.IdleTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				MaxUploadBytes:  maxUpload,
			}, server.Deps{
				Logger:         app.Providers.Logger,
				Tracer:         app.Providers.Tracer,
				Metrics:        app.RED,
				MetricsHandler: app.MetricsHandler,
			})

			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address override (default: server.addr)")

	return cmd
}
