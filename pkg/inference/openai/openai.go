// Package openai implements inference.Client on the OpenAI Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(shared.ChatModelGPT5Mini)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("openai: missing API key")

// Client sends prompts to OpenAI.
type Client struct {
	responses responses.ResponseService
	model     string
}

// New creates a Client. Extra request options are passed through to the SDK.
func New(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if model == "" {
		model = DefaultModel
	}

	client := sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Client{responses: client.Responses, model: model}, nil
}

// Complete sends prompt with the system text as instructions.
func (c *Client) Complete(ctx context.Context, prompt inference.Prompt) (inference.Completion, error) {
	resp, err := c.responses.New(ctx, responses.ResponseNewParams{
		Model:           shared.ResponsesModel(c.model),
		Instructions:    sdk.String(prompt.System),
		MaxOutputTokens: sdk.Int(prompt.MaxTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentParamOfInputText(prompt.User),
					},
					"user",
				),
			},
		},
	})
	if err != nil {
		return inference.Completion{}, fmt.Errorf("openai responses: %w", err)
	}

	return inference.Completion{
		Text:      resp.OutputText(),
		Truncated: resp.Status == "incomplete" && resp.IncompleteDetails.Reason == "max_output_tokens",
		Model:     string(resp.Model),
	}, nil
}
