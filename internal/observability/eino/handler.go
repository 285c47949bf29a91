package eino

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	llmctx "github.com/ScriptSorcerer23/Idea2Repo/internal/domain/service"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/tracer"
)

// startTimeKey 在 OnStart 写入调用开始时间
type startTimeKey struct{}

// newChatModelCallbackHandler 记录 Eino ChatModel 调用的 Token 用量与 Span
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", llmctx.WorkflowFromContext(ctx)),
				attribute.String("llm.provider", llmctx.ProviderFromContext(ctx)),
				attribute.String("llm.mode", llmctx.ModeFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.node_name", info.Name))
			}
			ctx, _ = tracer.Start(ctx, "eino.chat_model", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			modelName := ""
			if output != nil {
				usage = output.TokenUsage
				modelName = modelNameFromOutput(output)
			}
			finish(ctx, modelName, usage, nil)
			return ctx
		},

		// 流式输出需要读完自己的副本并关闭，Span 在读完后结束
		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()

				var (
					usage     *model.TokenUsage
					modelName string
					recvErr   error
				)
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						recvErr = err
						break
					}
					if chunk == nil {
						continue
					}
					if chunk.TokenUsage != nil {
						usage = chunk.TokenUsage
					}
					if name := modelNameFromOutput(chunk); name != "" {
						modelName = name
					}
				}
				finish(ctx, modelName, usage, recvErr)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			finish(ctx, "", nil, err)
			return ctx
		},
	}
}

func finish(ctx context.Context, modelName string, usage *model.TokenUsage, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if err != nil {
		tracer.RecordError(span, err)
	}
	if d := elapsedSeconds(ctx); d > 0 {
		span.SetAttributes(attribute.Float64("llm.elapsed_seconds", d))
	}
	if usage == nil {
		return
	}

	provider := llmctx.ProviderFromContext(ctx)
	metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(usage.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.completion_tokens", usage.CompletionTokens),
	)
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
