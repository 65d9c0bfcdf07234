package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal        = "clausefang.pipeline.runs.total"
	metricSegmentsTotal    = "clausefang.pipeline.segments.total"
	metricAttemptsTotal    = "clausefang.pipeline.attempts.total"
	metricSegmentDuration  = "clausefang.pipeline.segment.duration.seconds"
	metricFindingsTotal    = "clausefang.pipeline.findings.total"
	metricDuplicatesTotal  = "clausefang.pipeline.duplicates.total"
	metricCacheHitsTotal   = "clausefang.cache.hits.total"
	metricCacheMissesTotal = "clausefang.cache.misses.total"

	attrOutcome = "outcome"
)

// Attempt outcomes recorded by PipelineMetrics.RecordAttempt.
const (
	AttemptSucceeded = "succeeded"
	AttemptFailed    = "failed"
	AttemptExhausted = "exhausted"
)

// PipelineMetrics holds the instruments of the segment analysis pipeline.
// All methods are safe on a nil receiver.
type PipelineMetrics struct {
	runsTotal       metric.Int64Counter
	segmentsTotal   metric.Int64Counter
	attemptsTotal   metric.Int64Counter
	segmentDuration metric.Float64Histogram
	findingsTotal   metric.Int64Counter
	duplicatesTotal metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	pm := &PipelineMetrics{}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&pm.runsTotal, metricRunsTotal, "Pipeline runs by final status", "{run}"},
		{&pm.segmentsTotal, metricSegmentsTotal, "Segments analyzed successfully", "{segment}"},
		{&pm.attemptsTotal, metricAttemptsTotal, "Inference attempts by outcome", "{attempt}"},
		{&pm.findingsTotal, metricFindingsTotal, "Findings kept after reconciliation", "{finding}"},
		{&pm.duplicatesTotal, metricDuplicatesTotal, "Findings dropped as overlap duplicates", "{finding}"},
		{&pm.cacheHits, metricCacheHitsTotal, "Segment result cache hits", "{hit}"},
		{&pm.cacheMisses, metricCacheMissesTotal, "Segment result cache misses", "{miss}"},
	}

	for _, c := range counters {
		counter, err := mt.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}

		*c.target = counter
	}

	duration, err := mt.Float64Histogram(metricSegmentDuration,
		metric.WithDescription("Per-segment analysis duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSegmentDuration, err)
	}

	pm.segmentDuration = duration

	return pm, nil
}

// RecordAttempt counts one inference attempt.
func (pm *PipelineMetrics) RecordAttempt(ctx context.Context, outcome string) {
	if pm == nil {
		return
	}

	pm.attemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordSegment records a successfully analyzed segment.
func (pm *PipelineMetrics) RecordSegment(ctx context.Context, duration time.Duration) {
	if pm == nil {
		return
	}

	pm.segmentsTotal.Add(ctx, 1)
	pm.segmentDuration.Record(ctx, duration.Seconds())
}

// RecordRun records the end of a pipeline run.
func (pm *PipelineMetrics) RecordRun(ctx context.Context, status string, findings, duplicates int) {
	if pm == nil {
		return
	}

	pm.runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	pm.findingsTotal.Add(ctx, int64(findings))
	pm.duplicatesTotal.Add(ctx, int64(duplicates))
}

// RecordCache records a segment result cache lookup.
func (pm *PipelineMetrics) RecordCache(ctx context.Context, hit bool) {
	if pm == nil {
		return
	}

	if hit {
		pm.cacheHits.Add(ctx, 1)

		return
	}

	pm.cacheMisses.Add(ctx, 1)
}
