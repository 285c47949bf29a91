package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	llmctx "github.com/ScriptSorcerer23/Idea2Repo/internal/domain/service"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/tracer"
)

type nodeStartKey struct{}

// newNodeCallbackHandler 为 template、llm、finalize 等 Lambda 节点记录 Span 和耗时
func newNodeCallbackHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, nodeStartKey{}, time.Now())
			ctx, _ = tracer.Start(ctx, "eino.node",
				trace.WithAttributes(
					attribute.String("eino.workflow", llmctx.WorkflowFromContext(ctx)),
					attribute.String("eino.node_name", nodeName(info)),
				))
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			finishNode(ctx, info, nil)
			return ctx
		}).
		OnEndWithStreamOutputFn(func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[einocb.CallbackOutput]) context.Context {
			output.Close()
			finishNode(ctx, info, nil)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			finishNode(ctx, info, err)
			return ctx
		}).
		Build()
}

func finishNode(ctx context.Context, info *einocb.RunInfo, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	status := "ok"
	if err != nil {
		status = "error"
		tracer.RecordError(span, err)
	}
	start, ok := ctx.Value(nodeStartKey{}).(time.Time)
	if !ok {
		return
	}
	metrics.GenerationNodeDuration.WithLabelValues(nodeName(info), status).Observe(time.Since(start).Seconds())
}

func nodeName(info *einocb.RunInfo) string {
	if info == nil || info.Name == "" {
		return "unknown"
	}
	return info.Name
}
