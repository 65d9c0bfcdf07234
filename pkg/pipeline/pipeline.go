// Package pipeline reviews long contracts segment by segment: it splits the
// document, analyzes segments concurrently with retries, reports progress
// as each segment completes and merges the results into one numbered list.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// Run statuses recorded in metrics.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Deps holds optional collaborators. Sleep replaces the retry wait in tests.
type Deps struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.PipelineMetrics
	Sleep   SleepFunc
}

// Pipeline reviews documents with one Analyzer.
type Pipeline struct {
	segmenter *segment.Segmenter
	scheduler *Scheduler
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.PipelineMetrics
}

// New creates a Pipeline. It returns ErrInvalidConfig for bad tunables.
func New(analyzer inference.Analyzer, cfg Config, deps Deps) (*Pipeline, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	segmenter, err := segment.New(cfg.Segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	runner := NewTaskRunner(analyzer, cfg, deps)

	return &Pipeline{
		segmenter: segmenter,
		scheduler: NewScheduler(runner, cfg.Concurrency, deps),
		logger:    observability.LoggerOrDefault(deps.Logger),
		tracer:    observability.TracerOrNoop(deps.Tracer),
		metrics:   deps.Metrics,
	}, nil
}

// Segmenter returns the segmenter used by Run.
func (p *Pipeline) Segmenter() *segment.Segmenter {
	return p.segmenter
}

// RunOption customizes a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	job     Job
	planned func(ctx context.Context, plan segment.Plan) error
}

// WithContractType tells the model what kind of contract it is reading.
func WithContractType(contractType string) RunOption {
	return func(o *runOptions) {
		o.job.ContractType = contractType
	}
}

// OnPlan calls fn once the document is segmented, before any segment is
// analyzed. An error from fn aborts the run.
func OnPlan(fn func(ctx context.Context, plan segment.Plan) error) RunOption {
	return func(o *runOptions) {
		o.planned = fn
	}
}

// Run reviews text against rules and returns the reconciled findings. sink
// may be nil. On failure, progress already reported to sink is left as is.
func (p *Pipeline) Run(ctx context.Context, text string, rules finding.RuleSet, sink Reporter, opts ...RunOption) ([]finding.Finding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	ro := runOptions{job: Job{Rules: rules}}
	for _, opt := range opts {
		opt(&ro)
	}

	plan := p.segmenter.Plan(text)

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int("segment.count", len(plan.Segments)),
		attribute.String("segment.detector", string(plan.Detector)),
		attribute.Int("pipeline.document_bytes", len(text)),
	))
	defer span.End()

	started := time.Now()

	p.logger.InfoContext(ctx, "document segmented",
		"segments", len(plan.Segments), "detector", plan.Detector, "bytes", plan.Bytes, "mean_bytes", plan.MeanBytes)

	if ro.planned != nil {
		planErr := ro.planned(ctx, plan)
		if planErr != nil {
			span.RecordError(planErr)
			span.SetStatus(codes.Error, "plan rejected")
			p.metrics.RecordRun(ctx, statusError, 0, 0)

			return nil, fmt.Errorf("segment plan: %w", planErr)
		}
	}

	state, err := p.scheduler.Run(ctx, plan.Segments, ro.job, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		p.metrics.RecordRun(ctx, statusError, 0, 0)
		p.logger.ErrorContext(ctx, "review run failed",
			"completed", state.Completed(), "total", state.Total(), "error", err)

		return nil, err
	}

	findings, dropped := reconcile(state.Slots())

	p.metrics.RecordRun(ctx, statusOK, len(findings), dropped)
	span.SetAttributes(
		attribute.Int("pipeline.findings", len(findings)),
		attribute.Int("pipeline.duplicates", dropped),
	)
	p.logger.InfoContext(ctx, "review run complete",
		"segments", state.Total(), "findings", len(findings), "duplicates", dropped, "elapsed", time.Since(started))

	return findings, nil
}
