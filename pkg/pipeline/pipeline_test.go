package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

func newPipeline(t *testing.T, analyzer inference.Analyzer, deps pipeline.Deps) *pipeline.Pipeline {
	t.Helper()

	cfg := pipeline.DefaultConfig()
	cfg.Segment = smallSegments()

	if deps.Sleep == nil {
		deps.Sleep = (&fakeSleep{}).sleep
	}

	p, err := pipeline.New(analyzer, cfg, deps)
	require.NoError(t, err)

	return p
}

func TestPipeline_RejectsEmptyDocument(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, analyzerFunc(oneFinding), pipeline.Deps{})

	for _, text := range []string{"", "  \n\t\n "} {
		_, err := p.Run(context.Background(), text, nil, nil)
		require.ErrorIs(t, err, pipeline.ErrEmptyDocument)
	}
}

func TestPipeline_SmallDocumentIsOneSegment(t *testing.T) {
	t.Parallel()

	log := &updateLog{}
	p := newPipeline(t, analyzerFunc(clauseFindings), pipeline.Deps{})

	findings, err := p.Run(context.Background(), "Clause 01 governs.\n\nClause 02 governs.", nil, log)
	require.NoError(t, err)

	assert.Equal(t, []string{"Clause 01 governs.", "Clause 02 governs."}, texts(findings))
	require.Len(t, log.all(), 1)
	assert.Equal(t, pipeline.Update{Ordinal: 0, Findings: findings, Completed: 1, Total: 1}, log.all()[0])
}

func TestPipeline_MergesOverlappingSegments(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := observability.NewPipelineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	log := &updateLog{}
	p := newPipeline(t, analyzerFunc(clauseFindings), pipeline.Deps{Metrics: metrics})

	text := clauses(30)

	findings, err := p.Run(context.Background(), text, nil, log)
	require.NoError(t, err)

	require.Len(t, findings, 30)

	for idx, f := range findings {
		assert.Equal(t, idx+1, f.Number)
		assert.True(t, strings.HasPrefix(f.Text, fmt.Sprintf("Clause %02d ", idx+1)), "finding %d is %q", idx, f.Text)
	}

	updates := log.all()
	require.Greater(t, len(updates), 1)
	assert.Equal(t, len(updates), updates[len(updates)-1].Completed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Positive(t, counterValue(rm, "clausefang.pipeline.duplicates.total"))
	assert.Equal(t, int64(30), counterValue(rm, "clausefang.pipeline.findings.total"))
	assert.Equal(t, int64(len(updates)), counterValue(rm, "clausefang.pipeline.segments.total"))
}

func TestPipeline_PassesContractTypeAndRules(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []inference.SegmentRequest
	)

	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		return oneFinding(ctx, req)
	})

	rules := finding.RuleSet{{Name: "Cap", Enabled: true}}
	p := newPipeline(t, analyzer, pipeline.Deps{})

	_, err := p.Run(context.Background(), clauses(20), rules, nil, pipeline.WithContractType("MSA"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, seen)

	for _, req := range seen {
		assert.Equal(t, "MSA", req.ContractType)
		assert.Equal(t, rules, req.Rules)
		assert.Equal(t, len(seen), req.Total)
	}
}

func TestPipeline_OnPlanRunsBeforeAnalysis(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		planned  []int
		analyzed int
	)

	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		mu.Lock()
		defer mu.Unlock()

		if len(planned) != 1 || planned[0] != req.Total {
			return nil, fmt.Errorf("segment %d analyzed before plan of %d", req.Ordinal, req.Total)
		}

		analyzed++

		return oneFinding(ctx, req)
	})

	p := newPipeline(t, analyzer, pipeline.Deps{})

	_, err := p.Run(context.Background(), clauses(20), nil, nil, pipeline.OnPlan(func(_ context.Context, plan segment.Plan) error {
		mu.Lock()
		defer mu.Unlock()

		planned = append(planned, len(plan.Segments))

		return nil
	}))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, planned, 1)
	assert.Greater(t, planned[0], 1)
	assert.Equal(t, planned[0], analyzed)
}

func TestPipeline_OnPlanErrorStopsRun(t *testing.T) {
	t.Parallel()

	errPlan := errors.New("plan rejected")

	var calls atomic.Int32

	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		calls.Add(1)

		return oneFinding(ctx, req)
	})

	p := newPipeline(t, analyzer, pipeline.Deps{})

	findings, err := p.Run(context.Background(), clauses(20), nil, nil, pipeline.OnPlan(func(context.Context, segment.Plan) error {
		return errPlan
	}))
	require.ErrorIs(t, err, errPlan)
	assert.Nil(t, findings)
	assert.Zero(t, calls.Load())
}

func TestPipeline_SegmentFailureFailsRun(t *testing.T) {
	t.Parallel()

	analyzer := analyzerFunc(func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
		if req.Ordinal == 1 {
			return nil, errUpstream
		}

		return oneFinding(ctx, req)
	})

	p := newPipeline(t, analyzer, pipeline.Deps{})

	findings, err := p.Run(context.Background(), clauses(20), nil, nil)
	require.ErrorIs(t, err, errUpstream)
	assert.Nil(t, findings)

	var segErr *pipeline.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 1, segErr.Index)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*pipeline.Config){
		"zero concurrency":   func(c *pipeline.Config) { c.Concurrency = 0 },
		"negative retries":   func(c *pipeline.Config) { c.MaxRetries = -1 },
		"negative delay":     func(c *pipeline.Config) { c.RetryDelay = -1 },
		"bad segment sizing": func(c *pipeline.Config) { c.Segment.Overlap = c.Segment.MinSize },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := pipeline.DefaultConfig()
			mutate(&cfg)

			_, err := pipeline.New(analyzerFunc(oneFinding), cfg, pipeline.Deps{})
			require.ErrorIs(t, err, pipeline.ErrInvalidConfig)
		})
	}
}

func counterValue(rm metricdata.ResourceMetrics, name string) int64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0
			}

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			return total
		}
	}

	return 0
}
