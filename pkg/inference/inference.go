// Package inference adapts large language model providers to the contract
// review pipeline. An Engine turns a provider-neutral Client into the
// Analyzer, Classifier and Summarizer the rest of the module depends on.
package inference

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// Sentinel errors returned by Engine.
var (
	// ErrTruncated indicates the model stopped at its output token limit.
	ErrTruncated = errors.New("model response truncated")
	// ErrMalformedResponse indicates the model output could not be decoded.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Analyzer extracts clause findings from one segment of a contract.
// Every returned error is treated as retryable by the pipeline.
type Analyzer interface {
	AnalyzeSegment(ctx context.Context, req SegmentRequest) ([]finding.Finding, error)
}

// Classifier identifies the contract type, paper and parties.
type Classifier interface {
	Classify(ctx context.Context, text string) (finding.Classification, error)
}

// Summarizer builds the document-level risk summary from reconciled findings.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (finding.Summary, error)
}

// SegmentRequest is the input of one segment analysis.
type SegmentRequest struct {
	Text         string
	Ordinal      int // 0-based position of the segment
	Total        int
	ContractType string
	Rules        finding.RuleSet
}

// SummaryRequest is the input of a summary.
type SummaryRequest struct {
	// Text is the document; only its beginning is sent as context.
	Text         string
	ContractType string
	Findings     []finding.Finding
}

// Kind names the purpose of a prompt.
type Kind string

// Prompt kinds.
const (
	KindClassify  Kind = "classify"
	KindAnalyze   Kind = "analyze"
	KindSummarize Kind = "summarize"
)

// Prompt is a single provider-neutral completion request.
type Prompt struct {
	Kind      Kind
	System    string
	User      string
	MaxTokens int64
}

// Completion is the text a provider returned for a Prompt.
type Completion struct {
	Text string
	// Truncated is set when generation stopped at MaxTokens.
	Truncated bool
	Model     string
}

// Client sends prompts to a model provider.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt Prompt) (Completion, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	return f(ctx, prompt)
}
