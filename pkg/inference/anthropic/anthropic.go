// Package anthropic implements inference.Client on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("anthropic: missing API key")

// Client sends prompts to Anthropic.
type Client struct {
	messages sdk.MessageService
	model    string
}

// New creates a Client. Extra request options (base URL, HTTP client,
// retries) are passed through to the SDK.
func New(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if model == "" {
		model = DefaultModel
	}

	client := sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Client{messages: client.Messages, model: model}, nil
}

// Complete sends prompt as a single user turn.
func (c *Client) Complete(ctx context.Context, prompt inference.Prompt) (inference.Completion, error) {
	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: prompt.MaxTokens,
		System:    []sdk.TextBlockParam{{Text: prompt.System}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		return inference.Completion{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return inference.Completion{
		Text:      sb.String(),
		Truncated: msg.StopReason == sdk.StopReasonMaxTokens,
		Model:     string(msg.Model),
	}, nil
}
