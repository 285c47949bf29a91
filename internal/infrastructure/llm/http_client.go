package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"

	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
)

const (
	BackendHTTP = "http"

	pathChatCompletions = "/chat/completions"
	pathMessageContent  = "choices.0.message.content"
	pathDeltaContent    = "choices.0.delta.content"

	maxStreamLine = 1 << 20
)

// HTTPClient 直接按 chat/completions 协议收发的补全客户端
type HTTPClient struct {
	opts     Options
	client   *http.Client
	endpoint string
}

// NewHTTPClient 创建 HTTP 补全客户端，hc 为空时使用无整体超时的默认客户端（超时由 context 控制）
func NewHTTPClient(opts Options, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{
		opts:     opts,
		client:   hc,
		endpoint: opts.BaseURL + pathChatCompletions,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

func (c *HTTPClient) Name() string { return BackendHTTP }

// Complete 整包模式，读取 choices[0].message.content
func (c *HTTPClient) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.complete(ctx, msgs, c.opts.MaxTokens)
}

// Probe 发送最小请求检查服务与密钥是否可用
func (c *HTTPClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()
	_, err := c.complete(ctx, []*schema.Message{schema.UserMessage(probePrompt)}, probeMaxTokens)
	return err
}

func (c *HTTPClient) complete(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	resp, err := c.post(ctx, msgs, maxTokens, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportErr(ctx, err)
	}
	if !gjson.ValidBytes(data) {
		return "", envelopeErr("response body is not JSON")
	}
	content := gjson.GetBytes(data, pathMessageContent)
	if content.Type != gjson.String {
		return "", envelopeErr("missing " + pathMessageContent)
	}
	return content.Str, nil
}

// Stream 增量模式：逐行读取 data: 片段并按顺序拼接 choices[0].delta.content。
// 无法解析的片段跳过；连接关闭时返回已累积的内容。
func (c *HTTPClient) Stream(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.post(ctx, msgs, c.opts.MaxTokens, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var (
		sb        strings.Builder
		malformed int
	)
	reader := bufio.NewReaderSize(resp.Body, 64*1024)
	for {
		line, tooLong, readErr := readLine(reader, maxStreamLine)
		if tooLong {
			// 超长行按无法解析的片段处理，继续读取后续内容
			malformed++
			metrics.LLMStreamMalformedTotal.WithLabelValues(BackendHTTP).Inc()
		} else if payload, ok := strings.CutPrefix(strings.TrimSpace(string(line)), "data:"); ok {
			payload = strings.TrimSpace(payload)
			if payload == "[DONE]" {
				return sb.String(), nil
			}
			if !gjson.Valid(payload) {
				malformed++
				metrics.LLMStreamMalformedTotal.WithLabelValues(BackendHTTP).Inc()
			} else if delta := gjson.Get(payload, pathDeltaContent); delta.Type == gjson.String {
				sb.WriteString(delta.Str)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			wrapped := transportErr(ctx, readErr)
			if ctx.Err() != nil || sb.Len() == 0 {
				return "", wrapped
			}
			logger.Warn(ctx, "stream read interrupted, using accumulated content",
				"error", readErr.Error(),
				"accumulated_length", sb.Len(),
			)
			break
		}
	}

	if malformed > 0 {
		logger.Debug(ctx, "skipped malformed stream fragments", "count", malformed)
	}
	return sb.String(), nil
}

// readLine 读取一行；超过 limit 字节的行被整行丢弃并返回 tooLong
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err != bufio.ErrBufferFull {
			return line, tooLong, err
		}
	}
}

func (c *HTTPClient) post(ctx context.Context, msgs []*schema.Message, maxTokens int, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    toChatMessages(msgs),
		Temperature: c.opts.Temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportErr(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusErr(resp.StatusCode, string(snippet))
	}
	return resp, nil
}

func toChatMessages(msgs []*schema.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
