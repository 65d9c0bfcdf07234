package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
)

// Default engine budgets.
const (
	DefaultClassifyMaxTokens   = 1024
	DefaultAnalyzeMaxTokens    = 8192
	DefaultSummaryMaxTokens    = 2048
	DefaultClassifyChars       = 8000
	DefaultSummaryContextChars = 4000
)

// EngineConfig bounds the prompts an Engine sends.
type EngineConfig struct {
	ClassifyMaxTokens int64
	AnalyzeMaxTokens  int64
	SummaryMaxTokens  int64
	// ClassifyChars is the number of leading characters sent for classification.
	ClassifyChars int
	// SummaryContextChars is the number of leading characters sent with the summary.
	SummaryContextChars int
}

// DefaultEngineConfig returns the default budgets.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ClassifyMaxTokens:   DefaultClassifyMaxTokens,
		AnalyzeMaxTokens:    DefaultAnalyzeMaxTokens,
		SummaryMaxTokens:    DefaultSummaryMaxTokens,
		ClassifyChars:       DefaultClassifyChars,
		SummaryContextChars: DefaultSummaryContextChars,
	}
}

// EngineDeps holds optional collaborators of an Engine.
type EngineDeps struct {
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Engine implements Analyzer, Classifier and Summarizer on top of a Client.
type Engine struct {
	client Client
	cfg    EngineConfig
	system string
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEngine creates an Engine. Zero budgets in cfg fall back to the defaults.
func NewEngine(client Client, cfg EngineConfig, deps EngineDeps) *Engine {
	def := DefaultEngineConfig()

	if cfg.ClassifyMaxTokens <= 0 {
		cfg.ClassifyMaxTokens = def.ClassifyMaxTokens
	}

	if cfg.AnalyzeMaxTokens <= 0 {
		cfg.AnalyzeMaxTokens = def.AnalyzeMaxTokens
	}

	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = def.SummaryMaxTokens
	}

	if cfg.ClassifyChars <= 0 {
		cfg.ClassifyChars = def.ClassifyChars
	}

	if cfg.SummaryContextChars <= 0 {
		cfg.SummaryContextChars = def.SummaryContextChars
	}

	return &Engine{
		client: client,
		cfg:    cfg,
		system: SystemPrompt(),
		logger: observability.LoggerOrDefault(deps.Logger),
		tracer: observability.TracerOrNoop(deps.Tracer),
	}
}

// Classify identifies the contract from its leading characters.
func (e *Engine) Classify(ctx context.Context, text string) (finding.Classification, error) {
	raw, err := e.complete(ctx, Prompt{
		Kind:      KindClassify,
		System:    e.system,
		User:      ClassifyPrompt(headRunes(text, e.cfg.ClassifyChars)),
		MaxTokens: e.cfg.ClassifyMaxTokens,
	})
	if err != nil {
		return finding.Classification{}, err
	}

	cls, decodeErr := finding.DecodeClassification(raw)
	if decodeErr != nil {
		return finding.Classification{}, fmt.Errorf("%w: %w", ErrMalformedResponse, decodeErr)
	}

	return cls, nil
}

// AnalyzeSegment extracts the clause findings of one segment.
func (e *Engine) AnalyzeSegment(ctx context.Context, req SegmentRequest) ([]finding.Finding, error) {
	raw, err := e.complete(ctx, Prompt{
		Kind:      KindAnalyze,
		System:    e.system,
		User:      AnalyzePrompt(req),
		MaxTokens: e.cfg.AnalyzeMaxTokens,
	}, attribute.Int("segment.ordinal", req.Ordinal), attribute.Int("segment.total", req.Total))
	if err != nil {
		return nil, err
	}

	findings, decodeErr := finding.DecodeFindings(raw)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: segment %d: %w", ErrMalformedResponse, req.Ordinal, decodeErr)
	}

	return findings, nil
}

// Summarize builds the risk summary of a reviewed contract.
func (e *Engine) Summarize(ctx context.Context, req SummaryRequest) (finding.Summary, error) {
	raw, err := e.complete(ctx, Prompt{
		Kind:      KindSummarize,
		System:    e.system,
		User:      SummaryPrompt(req, headRunes(req.Text, e.cfg.SummaryContextChars)),
		MaxTokens: e.cfg.SummaryMaxTokens,
	})
	if err != nil {
		return finding.Summary{}, err
	}

	sum, decodeErr := finding.DecodeSummary(raw)
	if decodeErr != nil {
		return finding.Summary{}, fmt.Errorf("%w: %w", ErrMalformedResponse, decodeErr)
	}

	return sum, nil
}

func (e *Engine) complete(ctx context.Context, prompt Prompt, attrs ...attribute.KeyValue) (string, error) {
	ctx, span := e.tracer.Start(ctx, "inference."+string(prompt.Kind), trace.WithAttributes(
		append(attrs,
			attribute.String("inference.kind", string(prompt.Kind)),
			attribute.Int64("inference.max_tokens", prompt.MaxTokens),
			attribute.Int("inference.prompt_bytes", len(prompt.User)),
		)...,
	))
	defer span.End()

	comp, err := e.client.Complete(ctx, prompt)
	if err != nil {
		err = fmt.Errorf("%s completion: %w", prompt.Kind, err)
	} else {
		err = checkCompletion(prompt, comp)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.DebugContext(ctx, "completion failed", "kind", prompt.Kind, "error", err)

		return "", err
	}

	span.SetAttributes(
		attribute.String("inference.model", comp.Model),
		attribute.Int("inference.completion_bytes", len(comp.Text)),
	)

	return comp.Text, nil
}

func checkCompletion(prompt Prompt, comp Completion) error {
	if comp.Truncated {
		return fmt.Errorf("%w: %s stopped at %d tokens", ErrTruncated, prompt.Kind, prompt.MaxTokens)
	}

	if strings.TrimSpace(comp.Text) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyCompletion, prompt.Kind)
	}

	return nil
}
