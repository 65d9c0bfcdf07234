package inference_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
)

type countingAnalyzer struct {
	calls atomic.Int64
	err   error
}

func (a *countingAnalyzer) AnalyzeSegment(_ context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
	a.calls.Add(1)

	if a.err != nil {
		return nil, a.err
	}

	return []finding.Finding{{
		Number:     1,
		Type:       "Termination",
		Text:       req.Text,
		Risk:       finding.RiskMedium,
		Violations: []finding.Violation{{RuleName: "Notice", Severity: finding.SeverityWarning}},
	}}, nil
}

func TestCachedAnalyzer_ReusesResults(t *testing.T) {
	t.Parallel()

	next := &countingAnalyzer{}
	analyzer := inference.WithCache(next, inference.NewFindingsLRU(0), nil)
	req := inference.SegmentRequest{Text: "Either party may terminate.", ContractType: "NDA", Rules: testRules()}

	first, err := analyzer.AnalyzeSegment(context.Background(), req)
	require.NoError(t, err)

	req.Ordinal = 5

	second, err := analyzer.AnalyzeSegment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), next.calls.Load())
	assert.Equal(t, first, second)

	stats := analyzer.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCachedAnalyzer_KeyCoversRulesAndType(t *testing.T) {
	t.Parallel()

	next := &countingAnalyzer{}
	analyzer := inference.WithCache(next, inference.NewFindingsLRU(0), nil)
	ctx := context.Background()

	base := inference.SegmentRequest{Text: "Either party may terminate.", ContractType: "NDA", Rules: testRules()}

	otherType := base
	otherType.ContractType = "MSA"

	otherRules := base
	otherRules.Rules = testRules()[:1]

	for _, req := range []inference.SegmentRequest{base, otherType, otherRules, base} {
		_, err := analyzer.AnalyzeSegment(ctx, req)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), next.calls.Load())
}

func TestCachedAnalyzer_ReturnsCopies(t *testing.T) {
	t.Parallel()

	analyzer := inference.WithCache(&countingAnalyzer{}, inference.NewFindingsLRU(0), nil)
	req := inference.SegmentRequest{Text: "Either party may terminate."}

	first, err := analyzer.AnalyzeSegment(context.Background(), req)
	require.NoError(t, err)

	first[0].Number = 99
	first[0].Violations[0].RuleName = "mutated"

	second, err := analyzer.AnalyzeSegment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, second[0].Number)
	assert.Equal(t, "Notice", second[0].Violations[0].RuleName)
}

func TestCachedAnalyzer_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	next := &countingAnalyzer{err: errBoom}
	analyzer := inference.WithCache(next, inference.NewFindingsLRU(0), nil)
	req := inference.SegmentRequest{Text: "x"}

	for range 2 {
		_, err := analyzer.AnalyzeSegment(context.Background(), req)
		require.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, int64(2), next.calls.Load())
}

func TestFindingsSize(t *testing.T) {
	t.Parallel()

	small := []finding.Finding{{Text: "a"}}
	large := []finding.Finding{{Text: string(make([]byte, 4096))}}

	assert.Positive(t, inference.FindingsSize(small))
	assert.Greater(t, inference.FindingsSize(large), inference.FindingsSize(small))
	assert.Zero(t, inference.FindingsSize(nil))
}
