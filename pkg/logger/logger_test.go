package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AttachesKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { Init("info", "json") })

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, ClientIPKey, "10.0.0.1")
	Error(ctx, "groq_api_error", errors.New("status 503"), "attempt", "buffered")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "groq_api_error", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "10.0.0.1", line["client_ip"])
	assert.Equal(t, "status 503", line["error"])
	assert.NotContains(t, line, "trace_id")
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { Init("info", "json") })

	Info(context.Background(), "health_check")
	assert.Empty(t, buf.String())

	Warn(context.Background(), "json_parsing_failed")
	assert.Contains(t, buf.String(), "json_parsing_failed")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "héllo", Preview("héllo world", 5))
	assert.Equal(t, "short", Preview("short", 50))
	assert.Equal(t, "", Preview("anything", 0))
}
