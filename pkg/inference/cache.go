package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Sumatoshi-tech/clausefang/pkg/cache"
	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
)

// findingOverhead approximates the fixed per-finding memory cost in bytes.
const findingOverhead = 160

// CachedAnalyzer serves repeated segments from an LRU of earlier results.
// The key covers segment text, contract type and rule set, so the same
// clause text reviewed against another playbook is analyzed again.
type CachedAnalyzer struct {
	next    Analyzer
	lru     *cache.LRU[[]finding.Finding]
	metrics *observability.PipelineMetrics
}

// WithCache wraps next with a result cache. metrics may be nil.
func WithCache(next Analyzer, lru *cache.LRU[[]finding.Finding], metrics *observability.PipelineMetrics) *CachedAnalyzer {
	return &CachedAnalyzer{next: next, lru: lru, metrics: metrics}
}

// NewFindingsLRU creates a findings cache bounded to maxSize bytes.
func NewFindingsLRU(maxSize int64) *cache.LRU[[]finding.Finding] {
	return cache.NewLRU[[]finding.Finding](maxSize, FindingsSize)
}

// AnalyzeSegment returns a cached copy of an earlier result or delegates.
// Failures are not cached.
func (c *CachedAnalyzer) AnalyzeSegment(ctx context.Context, req SegmentRequest) ([]finding.Finding, error) {
	key := cacheKey(req)

	if cached, ok := c.lru.Get(key); ok {
		c.metrics.RecordCache(ctx, true)

		return cloneFindings(cached), nil
	}

	c.metrics.RecordCache(ctx, false)

	findings, err := c.next.AnalyzeSegment(ctx, req)
	if err != nil {
		return nil, err
	}

	c.lru.Put(key, cloneFindings(findings))

	return findings, nil
}

// Stats returns the underlying cache statistics.
func (c *CachedAnalyzer) Stats() cache.Stats {
	return c.lru.Stats()
}

// FindingsSize estimates the memory held by findings.
func FindingsSize(findings []finding.Finding) int64 {
	var size int64

	for _, f := range findings {
		size += findingOverhead + int64(len(f.Type)+len(f.Text)+len(f.Explanation)+len(f.Redline)+len(f.RedlineExplanation))

		for _, v := range f.Violations {
			size += int64(len(v.RuleName) + len(v.Category) + len(v.Description) + len(v.Severity))
		}
	}

	return size
}

func cacheKey(req SegmentRequest) string {
	h := sha256.New()
	h.Write([]byte(req.ContractType))
	h.Write([]byte{0})
	h.Write([]byte(req.Rules.Fingerprint()))
	h.Write([]byte{0})
	h.Write([]byte(req.Text))

	return hex.EncodeToString(h.Sum(nil))
}

func cloneFindings(findings []finding.Finding) []finding.Finding {
	if findings == nil {
		return nil
	}

	out := make([]finding.Finding, len(findings))

	for idx, f := range findings {
		if f.Violations != nil {
			f.Violations = append(make([]finding.Violation, 0, len(f.Violations)), f.Violations...)
		}

		out[idx] = f
	}

	return out
}
