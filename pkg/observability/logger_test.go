package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_InjectsTraceAndReview(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "clausefang", "test", observability.ModeServe))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = observability.WithReviewID(ctx, "rev-42")

	logger.InfoContext(ctx, "segment analyzed")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "rev-42", record["review_id"])
	assert.Equal(t, "clausefang", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "serve", record["mode"])
}

func TestTracingHandler_NoContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "clausefang", "", observability.ModeMCP))

	logger.InfoContext(context.Background(), "no span")

	record := decodeRecord(t, &buf)

	_, hasTrace := record["trace_id"]
	_, hasReview := record["review_id"]
	_, hasEnv := record["env"]

	assert.False(t, hasTrace)
	assert.False(t, hasReview)
	assert.False(t, hasEnv)
	assert.Equal(t, "mcp", record["mode"])
}

func TestTracingHandler_WithGroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "clausefang", "", observability.ModeCLI))

	logger.WithGroup("segment").Info("done", "index", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "clausefang", record["service"])

	group, ok := record["segment"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["index"], 0)
}

func TestNewLogger_RespectsLevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(&buf, cfg)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "cli", record["mode"])
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, observability.ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, observability.ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLogLevel("verbose"))
}

func TestReviewID(t *testing.T) {
	t.Parallel()

	_, ok := observability.ReviewID(context.Background())
	assert.False(t, ok)

	id, ok := observability.ReviewID(observability.WithReviewID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
