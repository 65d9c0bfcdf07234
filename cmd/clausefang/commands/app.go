// Package commands implements CLI command handlers for clausefang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/v3/option"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/clausefang/pkg/config"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/anthropic"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/mock"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/openai"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/playbook"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
	"github.com/Sumatoshi-tech/clausefang/pkg/version"
)

// appOptions controls how buildApp wires the services.
type appOptions struct {
	mode observability.AppMode
	// persist keeps the configured store backend; otherwise records stay in memory.
	persist bool
	// prometheus attaches a Prometheus reader and exposes its handler.
	prometheus bool
	// debug lowers the log level to debug regardless of mode.
	debug bool
}

// App bundles the services built from configuration for one command run.
type App struct {
	Config         *config.Config
	Providers      observability.Providers
	Reviewer       *review.Service
	Store          store.Store
	Cache          *inference.CachedAnalyzer
	RED            *observability.REDMetrics
	MetricsHandler http.Handler
}

// buildApp initializes observability, the inference engine, the pipeline and
// the review service from cfg.
func buildApp(cfg *config.Config, opts appOptions) (*App, error) {
	obsCfg := cfg.ObservabilityConfig(opts.mode, version.Version)
	if opts.debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	app := &App{Config: cfg}

	if opts.prometheus {
		reader, handler, err := observability.NewPrometheusExporter()
		if err != nil {
			return nil, err
		}

		obsCfg.MetricReaders = []sdkmetric.Reader{reader}
		app.MetricsHandler = handler
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	app.Providers = providers

	buildErr := app.build(opts)
	if buildErr != nil {
		return nil, errors.Join(buildErr, app.Close(context.Background()))
	}

	return app, nil
}

func (a *App) build(opts appOptions) error {
	cfg := a.Config
	logger := a.Providers.Logger

	red, err := observability.NewREDMetrics(a.Providers.Meter)
	if err != nil {
		return err
	}

	a.RED = red

	pipelineMetrics, err := observability.NewPipelineMetrics(a.Providers.Meter)
	if err != nil {
		return err
	}

	client, err := newClient(cfg.Inference)
	if err != nil {
		return err
	}

	engine := inference.NewEngine(client, cfg.EngineConfig(), inference.EngineDeps{
		Logger: logger,
		Tracer: a.Providers.Tracer,
	})

	var analyzer inference.Analyzer = engine

	if cfg.Cache.Enabled {
		maxSize, sizeErr := cfg.Cache.MaxSizeBytes()
		if sizeErr != nil {
			return sizeErr
		}

		a.Cache = inference.WithCache(engine, inference.NewFindingsLRU(maxSize), pipelineMetrics)
		analyzer = a.Cache
	}

	p, err := pipeline.New(analyzer, cfg.PipelineConfig(), pipeline.Deps{
		Logger:  logger,
		Tracer:  a.Providers.Tracer,
		Metrics: pipelineMetrics,
	})
	if err != nil {
		return err
	}

	pb, err := playbook.Load(cfg.Playbook.Path)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Store, opts.persist)
	if err != nil {
		return err
	}

	a.Store = st

	a.Reviewer = review.New(p, engine, engine, pb, review.Deps{
		Logger:        logger,
		Tracer:        a.Providers.Tracer,
		Store:         st,
		MaxBackground: cfg.Server.MaxBackground,
	})

	return nil
}

// Close releases the store and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Cache != nil {
		stats := a.Cache.Stats()
		a.Providers.Logger.Debug("findings cache",
			"entries", stats.Entries, "hits", stats.Hits, "misses", stats.Misses,
			"hit_rate", stats.HitRate())
	}

	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}

	if a.Providers.Shutdown != nil {
		errs = append(errs, a.Providers.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

// newClient builds the configured inference provider. API keys come from the
// environment variables named in cfg.
func newClient(cfg config.InferenceConfig) (inference.Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.New(os.Getenv(cfg.AnthropicKeyEnv), cfg.Model, anthropicopt.WithRequestTimeout(cfg.Timeout))
	case config.ProviderOpenAI:
		return openai.New(os.Getenv(cfg.OpenAIKeyEnv), cfg.Model, openaiopt.WithRequestTimeout(cfg.Timeout))
	case config.ProviderMock:
		return mock.New(cfg.MockLatency), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

func openStore(cfg config.StoreConfig, persist bool) (store.Store, error) {
	if !persist || cfg.Backend == config.BackendMemory {
		return store.NewMemoryStore(), nil
	}

	return store.OpenBolt(cfg.Path)
}
