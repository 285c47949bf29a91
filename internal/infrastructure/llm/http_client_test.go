package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
)

func testOptions(baseURL string) Options {
	return Options{
		Provider:      "groq",
		APIKey:        "gsk-test",
		BaseURL:       baseURL,
		Model:         "llama-3.1-8b-instant",
		MaxTokens:     8000,
		Temperature:   0.1,
		Timeout:       2 * time.Second,
		HealthTimeout: time.Second,
	}
}

func userMsgs(text string) []*schema.Message {
	return []*schema.Message{schema.UserMessage(text)}
}

func TestHTTPClient_CompleteSendsWireFormat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"repository_name\":\"x\"}"}}]}`)
	}))
	defer srv.Close()

	out, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Complete(context.Background(), userMsgs("build me a thing"))
	require.NoError(t, err)
	assert.Equal(t, `{"repository_name":"x"}`, out)

	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 8000, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, chatMessage{Role: "user", Content: "build me a thing"}, got.Messages[0])
}

func TestHTTPClient_CompleteNon2xxIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"overloaded"}`)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Complete(context.Background(), userMsgs("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAPIError, apperrors.CodeOf(err))
	status, ok := UpstreamStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestHTTPClient_CompleteMissingContent(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `not json`, `{"choices":[{"message":{"content":null}}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		_, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Complete(context.Background(), userMsgs("x"))
		srv.Close()

		require.Error(t, err, body)
		assert.Equal(t, apperrors.CodeAPIError, apperrors.CodeOf(err), body)
	}
}

func TestHTTPClient_CompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	opts := testOptions(srv.URL)
	opts.Timeout = 50 * time.Millisecond
	_, err := NewHTTPClient(opts, srv.Client()).Complete(context.Background(), userMsgs("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.CodeOf(err))
}

func TestHTTPClient_StreamConcatenatesDeltas(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
			`data: {"choices":[{"delta":{"content":"{\"a\":"}}]}`,
			`: keep-alive comment`,
			`data: {not valid json`,
			`data: {"choices":[{"delta":{"content":" 1}"}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
		}
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "%s\n\n", c)
		}
	}))
	defer srv.Close()

	out, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Stream(context.Background(), userMsgs("x"))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
	assert.True(t, got.Stream)
}

func TestHTTPClient_StreamClosedWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer srv.Close()

	out, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Stream(context.Background(), userMsgs("x"))
	require.NoError(t, err)
	assert.Equal(t, "partial", out)
}

func TestHTTPClient_StreamSkipsOversizedLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"AAA\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: "+strings.Repeat("x", maxStreamLine+10)+"\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"BBB\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.LLMStreamMalformedTotal.WithLabelValues(BackendHTTP))
	out, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Stream(context.Background(), userMsgs("x"))
	require.NoError(t, err)
	assert.Equal(t, "AAABBB", out)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LLMStreamMalformedTotal.WithLabelValues(BackendHTTP)))
}

func TestReadLine_LimitAndTrailingData(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("short\n"+strings.Repeat("y", 100)+"\ntail"), 16)

	line, tooLong, err := readLine(r, 32)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "short\n", string(line))

	line, tooLong, err = readLine(r, 32)
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Nil(t, line)

	line, tooLong, err = readLine(r, 32)
	assert.Equal(t, io.EOF, err)
	assert.False(t, tooLong)
	assert.Equal(t, "tail", string(line))
}

func TestHTTPClient_StreamRejectedUpfront(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testOptions(srv.URL), srv.Client()).Stream(context.Background(), userMsgs("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAPIError, apperrors.CodeOf(err))
}

func TestHTTPClient_ProbeUsesSmallRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hello"}}]}`)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPClient(testOptions(srv.URL), srv.Client()).Probe(context.Background()))
	assert.Equal(t, probeMaxTokens, got.MaxTokens)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestHTTPClient_ConnectionRefusedIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(testOptions(url), nil).Complete(context.Background(), userMsgs("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAPIError, apperrors.CodeOf(err))
}
