package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Job is the part of a segment request shared by every segment of a run.
type Job struct {
	ContractType string
	Rules        finding.RuleSet
	Total        int
}

// TaskRunner analyzes one segment with a fixed number of retries.
type TaskRunner struct {
	analyzer   inference.Analyzer
	maxRetries int
	retryDelay time.Duration
	sleep      SleepFunc
	logger     *slog.Logger
	metrics    *observability.PipelineMetrics
}

// NewTaskRunner creates a TaskRunner. Only MaxRetries and RetryDelay of cfg are used.
func NewTaskRunner(analyzer inference.Analyzer, cfg Config, deps Deps) *TaskRunner {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &TaskRunner{
		analyzer:   analyzer,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		sleep:      sleep,
		logger:     observability.LoggerOrDefault(deps.Logger),
		metrics:    deps.Metrics,
	}
}

// Run analyzes seg, retrying failed attempts after a fixed delay. When every
// attempt fails it returns a *SegmentError wrapping the last error.
// Cancellation of ctx stops retrying.
func (r *TaskRunner) Run(ctx context.Context, seg segment.Segment, job Job) ([]finding.Finding, error) {
	req := inference.SegmentRequest{
		Text:         seg.Text,
		Ordinal:      seg.Index,
		Total:        job.Total,
		ContractType: job.ContractType,
		Rules:        job.Rules,
	}

	attempts := r.maxRetries + 1

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		findings, err := r.analyzer.AnalyzeSegment(ctx, req)
		if err == nil {
			r.metrics.RecordAttempt(ctx, observability.AttemptSucceeded)

			return findings, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			r.metrics.RecordAttempt(ctx, observability.AttemptExhausted)

			return nil, &SegmentError{Index: seg.Index, Attempts: attempt, Err: err}
		}

		if attempt == attempts {
			break
		}

		r.metrics.RecordAttempt(ctx, observability.AttemptFailed)
		r.logger.WarnContext(ctx, "segment attempt failed",
			"segment", seg.Index, "attempt", attempt, "of", attempts, "retry_in", r.retryDelay, "error", err)

		sleepErr := r.sleep(ctx, r.retryDelay)
		if sleepErr != nil {
			return nil, &SegmentError{Index: seg.Index, Attempts: attempt, Err: fmt.Errorf("%w (retry wait: %w)", err, sleepErr)}
		}
	}

	r.metrics.RecordAttempt(ctx, observability.AttemptExhausted)
	r.logger.WarnContext(ctx, "segment failed", "segment", seg.Index, "attempts", attempts, "error", lastErr)

	return nil, &SegmentError{Index: seg.Index, Attempts: attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
