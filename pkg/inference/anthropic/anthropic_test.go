package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/inference/anthropic"
)

func newServer(t *testing.T, stopReason string, seen *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, "/messages") {
			http.NotFound(rw, req)

			return
		}

		_ = json.NewDecoder(req.Body).Decode(seen)

		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "[]"}],
			"stop_reason": "` + stopReason + `",
			"stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := anthropic.New("", "")
	require.ErrorIs(t, err, anthropic.ErrMissingAPIKey)
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()

	var body map[string]any

	srv := newServer(t, "end_turn", &body)

	client, err := anthropic.New("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	comp, err := client.Complete(context.Background(), inference.Prompt{
		Kind:      inference.KindAnalyze,
		System:    "be precise",
		User:      "analyze this",
		MaxTokens: 128,
	})
	require.NoError(t, err)

	assert.Equal(t, "[]", comp.Text)
	assert.False(t, comp.Truncated)
	assert.Equal(t, "claude-test", comp.Model)
	assert.InDelta(t, 128, body["max_tokens"], 0)
	assert.Equal(t, "claude-test", body["model"])
}

func TestClient_CompleteTruncated(t *testing.T) {
	t.Parallel()

	var body map[string]any

	srv := newServer(t, "max_tokens", &body)

	client, err := anthropic.New("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	comp, err := client.Complete(context.Background(), inference.Prompt{User: "x", MaxTokens: 8})
	require.NoError(t, err)

	assert.True(t, comp.Truncated)
	assert.Equal(t, anthropic.DefaultModel, body["model"])
}
