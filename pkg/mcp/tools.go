package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
	"github.com/Sumatoshi-tech/clausefang/pkg/textutil"
)

// Tool name constants.
const (
	ToolNameReview  = "clausefang_review"
	ToolNameSegment = "clausefang_segment"
)

// Input size limits.
const (
	// MaxTextInputBytes is the default limit for inline contract text (5 MB).
	MaxTextInputBytes = 5 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyText indicates the text parameter is empty.
	ErrEmptyText = errors.New("text parameter is required and must not be empty")
	// ErrTextTooLarge indicates the text input exceeds the size limit.
	ErrTextTooLarge = errors.New("text input exceeds maximum size")
)

// ReviewInput is the input schema for the clausefang_review tool.
type ReviewInput struct {
	ContractType string `json:"contract_type,omitempty" jsonschema:"optional contract type overriding classification (e.g. NDA MSA)"`
	Text         string `json:"text"                    jsonschema:"plain contract text to review"`
	Title        string `json:"title,omitempty"         jsonschema:"optional title (default: first line of the text)"`
}

// SegmentInput is the input schema for the clausefang_segment tool.
type SegmentInput struct {
	Text string `json:"text" jsonschema:"plain contract text to segment"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ReviewResult is the clausefang_review payload.
type ReviewResult struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Classification *finding.Classification `json:"classification,omitempty"`
	Segments       int                     `json:"segments"`
	Findings       []finding.Finding       `json:"findings"`
	Summary        *finding.Summary        `json:"summary,omitempty"`
}

func (s *Server) handleReview(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ReviewInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	text, err := s.validateText(input.Text)
	if err != nil {
		return errorResult(err)
	}

	rec, err := s.reviewer.Review(ctx, review.Document{
		Title:        strings.TrimSpace(input.Title),
		Text:         text,
		ContractType: strings.TrimSpace(input.ContractType),
	})
	if err != nil {
		return errorResult(fmt.Errorf("review: %w", err))
	}

	return jsonResult(ReviewResult{
		ID:             rec.ID,
		Title:          rec.Title,
		Classification: rec.Classification,
		Segments:       rec.TotalSegments,
		Findings:       rec.Findings,
		Summary:        rec.Summary,
	})
}

func (s *Server) handleSegment(
	_ context.Context, _ *mcpsdk.CallToolRequest, input SegmentInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	text, err := s.validateText(input.Text)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(planView(s.reviewer.Segmenter().Plan(text)))
}

// segmentView drops segment bodies. Offsets refer to the normalized text.
type segmentView struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
	Bytes int `json:"bytes"`
}

type planResult struct {
	Detector  segment.Detector `json:"detector"`
	Bytes     int              `json:"bytes"`
	MinBytes  int              `json:"min_bytes"`
	MaxBytes  int              `json:"max_bytes"`
	MeanBytes int              `json:"mean_bytes"`
	Segments  []segmentView    `json:"segments"`
}

func planView(plan segment.Plan) planResult {
	out := planResult{
		Detector:  plan.Detector,
		Bytes:     plan.Bytes,
		MinBytes:  plan.MinBytes,
		MaxBytes:  plan.MaxBytes,
		MeanBytes: plan.MeanBytes,
		Segments:  make([]segmentView, len(plan.Segments)),
	}

	for idx, seg := range plan.Segments {
		out.Segments[idx] = segmentView{Index: seg.Index, Start: seg.Start, End: seg.End, Bytes: seg.Len()}
	}

	return out
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateText checks size and encoding and returns the normalized text.
func (s *Server) validateText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	if len(text) > s.maxInput {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTextTooLarge, len(text), s.maxInput)
	}

	decoded, err := textutil.Decode("", []byte(text))
	if err != nil {
		return "", err
	}

	return decoded, nil
}
