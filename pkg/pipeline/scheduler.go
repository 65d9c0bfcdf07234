package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// Scheduler runs segments through a TaskRunner with bounded concurrency.
type Scheduler struct {
	runner      *TaskRunner
	concurrency int
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.PipelineMetrics
}

// NewScheduler creates a Scheduler running at most concurrency segments at once.
func NewScheduler(runner *TaskRunner, concurrency int, deps Deps) *Scheduler {
	return &Scheduler{
		runner:      runner,
		concurrency: max(concurrency, 1),
		logger:      observability.LoggerOrDefault(deps.Logger),
		tracer:      observability.TracerOrNoop(deps.Tracer),
		metrics:     deps.Metrics,
	}
}

// Run analyzes segments with min(concurrency, len(segments)) workers. Workers
// claim ordinals from a shared cursor and report each completed segment to
// sink before claiming the next. The first segment failure stops further
// claims; in-flight segments finish and the failure is returned. Workers
// never cancel each other.
func (s *Scheduler) Run(ctx context.Context, segments []segment.Segment, job Job, sink Reporter) (*RunState, error) {
	state := NewRunState(len(segments))
	job.Total = len(segments)

	var (
		group    errgroup.Group
		reportMu sync.Mutex
	)

	workers := min(s.concurrency, len(segments))

	for range workers {
		group.Go(func() error {
			for {
				ordinal, ok := state.Claim()
				if !ok {
					return nil
				}

				seg := segments[ordinal]
				seg.Index = ordinal

				err := s.process(ctx, state, seg, job, sink, &reportMu)
				if err != nil {
					state.Fail(err)

					return err
				}
			}
		})
	}

	_ = group.Wait()

	if err := state.Err(); err != nil {
		return state, err
	}

	if state.Completed() != state.Total() {
		return state, fmt.Errorf("%w: %d of %d", ErrIncompleteRun, state.Completed(), state.Total())
	}

	return state, nil
}

func (s *Scheduler) process(
	ctx context.Context,
	state *RunState,
	seg segment.Segment,
	job Job,
	sink Reporter,
	reportMu *sync.Mutex,
) error {
	ctx, span := s.tracer.Start(ctx, "pipeline.segment", trace.WithAttributes(
		attribute.Int("segment.ordinal", seg.Index),
		attribute.Int("segment.bytes", seg.Len()),
	))
	defer span.End()

	started := time.Now()

	findings, err := s.runner.Run(ctx, seg, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "segment failed")

		return err
	}

	s.metrics.RecordSegment(ctx, time.Since(started))
	span.SetAttributes(attribute.Int("segment.findings", len(findings)))

	reportMu.Lock()
	defer reportMu.Unlock()

	completed, err := state.Fill(seg.Index, findings)
	if err != nil {
		return err
	}

	if sink == nil {
		return nil
	}

	reportErr := sink.Report(ctx, Update{
		Ordinal:   seg.Index,
		Findings:  findings,
		Completed: completed,
		Total:     state.Total(),
	})
	if reportErr != nil {
		s.logger.WarnContext(ctx, "progress report failed", "segment", seg.Index, "error", reportErr)
	}

	return nil
}
