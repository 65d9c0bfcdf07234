package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/openai"
)

func newServer(t *testing.T, status, incomplete string, seen *map[string]any) *httptest.Server {
	t.Helper()

	details := "null"
	if incomplete != "" {
		details = `{"reason": "` + incomplete + `"}`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, "/responses") {
			http.NotFound(rw, req)

			return
		}

		_ = json.NewDecoder(req.Body).Decode(seen)

		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{
			"id": "resp_01",
			"object": "response",
			"created_at": 1700000000,
			"model": "gpt-test",
			"status": "` + status + `",
			"incomplete_details": ` + details + `,
			"error": null,
			"instructions": null,
			"metadata": {},
			"parallel_tool_calls": false,
			"temperature": 1,
			"top_p": 1,
			"tool_choice": "auto",
			"tools": [],
			"output": [{
				"type": "message",
				"id": "msg_01",
				"status": "completed",
				"role": "assistant",
				"content": [{"type": "output_text", "text": "[]", "annotations": []}]
			}]
		}`))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := openai.New("", "")
	require.ErrorIs(t, err, openai.ErrMissingAPIKey)
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()

	var body map[string]any

	srv := newServer(t, "completed", "", &body)

	client, err := openai.New("test-key", "gpt-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	comp, err := client.Complete(context.Background(), inference.Prompt{
		System:    "be precise",
		User:      "analyze this",
		MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "[]", comp.Text)
	assert.False(t, comp.Truncated)
	assert.Equal(t, "gpt-test", comp.Model)
	assert.Equal(t, "be precise", body["instructions"])
	assert.InDelta(t, 256, body["max_output_tokens"], 0)
}

func TestClient_CompleteTruncated(t *testing.T) {
	t.Parallel()

	var body map[string]any

	srv := newServer(t, "incomplete", "max_output_tokens", &body)

	client, err := openai.New("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	comp, err := client.Complete(context.Background(), inference.Prompt{User: "x", MaxTokens: 8})
	require.NoError(t, err)

	assert.True(t, comp.Truncated)
	assert.Equal(t, openai.DefaultModel, body["model"])
}
