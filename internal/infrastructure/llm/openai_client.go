package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const BackendOpenAI = "openai"

// OpenAIClient 基于官方 openai-go SDK 的补全客户端
type OpenAIClient struct {
	opts   Options
	client openai.Client
}

// NewOpenAIClient 创建 openai-go 补全客户端，重试交给上层的整包/流式回退处理
func NewOpenAIClient(opts Options, extra ...option.RequestOption) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL + "/"),
		option.WithMaxRetries(0),
	}
	reqOpts = append(reqOpts, extra...)
	return &OpenAIClient{opts: opts, client: openai.NewClient(reqOpts...)}
}

func (c *OpenAIClient) Name() string { return BackendOpenAI }

func (c *OpenAIClient) params(msgs []*schema.Message, maxTokens int) openai.ChatCompletionNewParams {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(m.Content))
		case schema.Assistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    out,
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.complete(ctx, msgs, c.opts.MaxTokens)
}

func (c *OpenAIClient) complete(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(msgs, maxTokens))
	if err != nil {
		return "", c.wrapErr(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", envelopeErr("empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(msgs, c.opts.MaxTokens))
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() == nil && sb.Len() > 0 {
			return sb.String(), nil
		}
		return "", c.wrapErr(ctx, err)
	}
	return sb.String(), nil
}

func (c *OpenAIClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()
	_, err := c.complete(ctx, []*schema.Message{schema.UserMessage(probePrompt)}, probeMaxTokens)
	return err
}

// wrapErr SDK 的状态码错误转为 StatusError，其余按传输错误处理
func (c *OpenAIClient) wrapErr(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return statusErr(apiErr.StatusCode, apiErr.Message)
	}
	return transportErr(ctx, err)
}
