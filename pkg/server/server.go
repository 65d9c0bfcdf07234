// Package server exposes the review service over HTTP. Reviews are
// submitted with POST /v1/reviews and polled with GET /v1/reviews/{id}.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
)

// Server timeout defaults, used for zero Config fields.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	readHeaderTimeout = 5 * time.Second
)

// DefaultMaxUploadBytes bounds request bodies when Config leaves it zero.
const DefaultMaxUploadBytes = 5 << 20

// Config holds listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// Deps holds injectable collaborators. Zero values disable the feature.
type Deps struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	// Metrics records RED metrics per route.
	Metrics *observability.REDMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// Server is the HTTP front end of a review.Service.
type Server struct {
	cfg      Config
	reviewer *review.Service
	logger   *slog.Logger
	handler  http.Handler
}

// New creates a Server with all routes registered.
func New(reviewer *review.Service, cfg Config, deps Deps) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	srv := &Server{
		cfg:      cfg,
		reviewer: reviewer,
		logger:   observability.LoggerOrDefault(deps.Logger),
	}

	mux := http.NewServeMux()
	srv.routes(mux, deps.MetricsHandler)

	srv.handler = observability.HTTPMiddleware(observability.TracerOrNoop(deps.Tracer), deps.Metrics, mux)

	return srv
}

// Handler returns the instrumented route handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("POST /v1/reviews", s.handleSubmit)
	mux.HandleFunc("GET /v1/reviews", s.handleList)
	mux.HandleFunc("GET /v1/reviews/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/reviews/{id}/report.html", s.handleReport)
	mux.HandleFunc("PATCH /v1/reviews/{id}/findings/{number}", s.handleTriage)
	mux.HandleFunc("GET /v1/playbook", s.handlePlaybook)

	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(observability.ReadyCheck{
		Name:  "store",
		Check: func(context.Context) error { return s.reviewer.Store().Ping() },
	}))

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

// ListenAndServe serves on cfg.Addr until ctx is done, then drains requests
// and background reviews within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()

	s.logger.InfoContext(ctx, "review server listening", "addr", ln.Addr().String())

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.InfoContext(ctx, "review server shutting down")

	err := httpSrv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	err = s.reviewer.Wait(shutdownCtx)
	if err != nil {
		return fmt.Errorf("drain reviews: %w", err)
	}

	return nil
}
