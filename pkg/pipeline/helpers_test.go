package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

type analyzerFunc func(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error)

func (f analyzerFunc) AnalyzeSegment(ctx context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
	return f(ctx, req)
}

// oneFinding returns a single finding quoting the segment's ordinal.
func oneFinding(_ context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
	return []finding.Finding{{Number: 1, Type: "Other", Text: fmt.Sprintf("segment %d", req.Ordinal), Risk: finding.RiskLow}}, nil
}

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()

	return ctx.Err()
}

func (s *fakeSleep) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.delays...)
}

// updateLog collects reporter updates.
type updateLog struct {
	mu      sync.Mutex
	updates []pipeline.Update
}

func (l *updateLog) Report(_ context.Context, update pipeline.Update) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.updates = append(l.updates, update)

	return nil
}

func (l *updateLog) all() []pipeline.Update {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]pipeline.Update(nil), l.updates...)
}

func makeSegments(count int) []segment.Segment {
	segments := make([]segment.Segment, count)
	for idx := range segments {
		segments[idx] = segment.Segment{Index: idx, Text: fmt.Sprintf("segment text %d", idx), Start: idx * 10, End: idx*10 + 10}
	}

	return segments
}

// clauses builds count numbered clauses of exactly 48 bytes, each followed by a blank line.
func clauses(count int) string {
	var sb strings.Builder

	for idx := range count {
		fmt.Fprintf(&sb, "Clause %02d %s\n\n", idx+1, strings.Repeat("x", 38))
	}

	return sb.String()
}

// smallSegments keeps test documents short while exercising overlap.
func smallSegments() segment.Options {
	return segment.Options{
		SmallDocumentThreshold: 100,
		TargetSize:             300,
		MinSize:                150,
		MaxSize:                600,
		Overlap:                100,
	}
}

// clauseFindings reports one finding per non-empty block of the segment.
func clauseFindings(_ context.Context, req inference.SegmentRequest) ([]finding.Finding, error) {
	var out []finding.Finding

	for _, block := range strings.Split(req.Text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		out = append(out, finding.Finding{Number: len(out) + 1, Type: "Other", Text: block, Risk: finding.RiskLow})
	}

	return out, nil
}
