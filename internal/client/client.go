// Package client 是 Idea2Repo API 的 Go 客户端，消费生成接口的事件流
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

const (
	apiKeyHeader = "X-API-Key"
	// 单帧上限，README 可能较长
	maxFrameBytes = 1 << 20
)

// Client Idea2Repo API 客户端
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New 创建客户端；hc 为 nil 时使用带超时的默认客户端
func New(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		// 服务端最多两次 30s 上游调用
		hc = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
	}
}

// Result 一次生成的终止结果，Fallback 非空表示模型输出无法解析
type Result struct {
	Artifact entity.RepositoryArtifact
	Fallback *entity.FallbackArtifact
}

// Generate 提交描述并消费事件流，每个 status 事件回调 onStatus
func (c *Client) Generate(ctx context.Context, prompt string, onStatus func(message string)) (*Result, error) {
	body, err := json.Marshal(dto.GenerateRepoRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/generate_repo/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}
	return readEvents(resp.Body, onStatus)
}

// Health 调用 /health/
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}
	var out dto.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

// decodeErrorResponse 同步拒绝转为 AppError，保留服务端错误码
func decodeErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var er dto.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Message != "" {
		code := apperrors.CodeInternal
		if er.Error != nil && er.Error.ErrorCode != "" {
			code = apperrors.ErrorCode(er.Error.ErrorCode)
		}
		appErr := apperrors.New(code, er.Message)
		appErr.HTTPStatus = resp.StatusCode
		return appErr
	}

	appErr := apperrors.New(apperrors.CodeAPIError, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	appErr.HTTPStatus = resp.StatusCode
	return appErr.WithDetail(strings.TrimSpace(string(raw)))
}

// readEvents 逐帧解析事件流直到终止事件
func readEvents(r io.Reader, onStatus func(string)) (*Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameBytes)

	var (
		event string
		data  []string
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) == 0 {
				event = ""
				continue
			}
			res, done, err := dispatch(event, strings.Join(data, "\n"), onStatus)
			if err != nil || done {
				return res, err
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, fmt.Errorf("event stream ended without a result")
}

func dispatch(event, data string, onStatus func(string)) (*Result, bool, error) {
	switch event {
	case "":
		var st entity.StatusPayload
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, false, fmt.Errorf("decode status event: %w", err)
		}
		if onStatus != nil {
			onStatus(st.Message)
		}
		return nil, false, nil
	case string(entity.EventKindDone):
		var fb entity.FallbackArtifact
		if err := json.Unmarshal([]byte(data), &fb); err != nil {
			return nil, true, fmt.Errorf("decode done event: %w", err)
		}
		res := &Result{Artifact: fb.RepositoryArtifact}
		if fb.RawResponse != "" || fb.Note != "" {
			res.Fallback = &fb
		}
		return res, true, nil
	case string(entity.EventKindError):
		var ep entity.ErrorPayload
		if err := json.Unmarshal([]byte(data), &ep); err != nil {
			return nil, true, fmt.Errorf("decode error event: %w", err)
		}
		return nil, true, apperrors.New(ep.Code, ep.Error)
	default:
		// 未知事件忽略
		return nil, false, nil
	}
}
