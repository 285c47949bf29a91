package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const BackendEino = "eino"

// EinoClient 基于 Eino OpenAI ChatModel 的补全客户端，调用会经过 Eino 全局回调
type EinoClient struct {
	opts  Options
	model model.BaseChatModel
}

// NewEinoClient 创建 Eino 补全客户端
func NewEinoClient(ctx context.Context, opts Options) (*EinoClient, error) {
	maxTokens := opts.MaxTokens
	temperature := float32(opts.Temperature)

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      opts.APIKey,
		BaseURL:     opts.BaseURL,
		Model:       opts.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model: %w", err)
	}
	return newEinoClientWithModel(opts, chatModel), nil
}

func newEinoClientWithModel(opts Options, m model.BaseChatModel) *EinoClient {
	return &EinoClient{opts: opts, model: m}
}

func (c *EinoClient) Name() string { return BackendEino }

func (c *EinoClient) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return "", transportErr(ctx, err)
	}
	if out == nil {
		return "", envelopeErr("empty message")
	}
	return out.Content, nil
}

func (c *EinoClient) Stream(ctx context.Context, msgs []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	sr, err := c.model.Stream(ctx, msgs)
	if err != nil {
		return "", transportErr(ctx, err)
	}
	defer sr.Close()

	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			if ctx.Err() == nil && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", transportErr(ctx, err)
		}
		if chunk != nil {
			sb.WriteString(chunk.Content)
		}
	}
}

func (c *EinoClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	_, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(probePrompt)}, model.WithMaxTokens(probeMaxTokens))
	return transportErr(ctx, err)
}
