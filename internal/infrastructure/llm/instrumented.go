package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	llmctx "github.com/ScriptSorcerer23/Idea2Repo/internal/domain/service"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/node"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/port"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/tracer"
)

// instrumented 为任意补全客户端记录调用指标与 Span
type instrumented struct {
	next     port.Completer
	provider string
	model    string
}

// Instrument 包装补全客户端
func Instrument(next port.Completer, opts Options) port.Completer {
	return &instrumented{next: next, provider: opts.Provider, model: opts.Model}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Complete(ctx context.Context, msgs []*schema.Message) (string, error) {
	return i.observe(ctx, llmctx.ModeBuffered, func(ctx context.Context) (string, error) {
		return i.next.Complete(ctx, msgs)
	})
}

func (i *instrumented) Stream(ctx context.Context, msgs []*schema.Message) (string, error) {
	return i.observe(ctx, llmctx.ModeStream, func(ctx context.Context) (string, error) {
		return i.next.Stream(ctx, msgs)
	})
}

func (i *instrumented) Probe(ctx context.Context) error {
	_, err := i.observe(ctx, llmctx.ModeProbe, func(ctx context.Context) (string, error) {
		return "", i.next.Probe(ctx)
	})
	if err != nil {
		metrics.ProviderHealthy.Set(0)
	} else {
		metrics.ProviderHealthy.Set(1)
	}
	return err
}

func (i *instrumented) observe(ctx context.Context, mode string, fn func(context.Context) (string, error)) (string, error) {
	backend := i.next.Name()
	ctx = llmctx.WithMode(llmctx.WithProvider(ctx, i.provider), mode)

	ctx, span := tracer.Start(ctx, "llm."+mode)
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.backend", backend),
		attribute.String("llm.provider", i.provider),
		attribute.String("llm.model", i.model),
	)

	start := time.Now()
	out, err := fn(ctx)
	metrics.LLMCallDuration.WithLabelValues(backend, mode).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = string(node.ClassifyLLMError(err))
		tracer.RecordError(span, err)
	}
	metrics.LLMCallTotal.WithLabelValues(backend, mode, status).Inc()
	span.SetAttributes(attribute.Int("llm.response_length", len(out)))
	return out, err
}
