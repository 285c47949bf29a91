package chain

import (
	"context"
	"fmt"
	"iter"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
	llmctx "github.com/ScriptSorcerer23/Idea2Repo/internal/domain/service"
	wfnode "github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/node"
	workflowport "github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/port"
	workflowprompt "github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/prompt"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/tracer"
)

const workflowRepoGeneration = "repo_generation"

// 结果类别，用于指标
const (
	outcomeArtifact = "artifact"
	outcomeFallback = "fallback"
	outcomeAborted  = "aborted"
)

// RepoGenerationChain 把一段项目描述变成进度事件序列
type RepoGenerationChain struct {
	completer workflowport.Completer
	prompts   *workflowprompt.Registry
	promptID  workflowprompt.PromptID

	chainOnce sync.Once
	chain     compose.Runnable[*repoGenerationInput, *repoGenerationState]
	chainErr  error
}

func NewRepoGenerationChain(completer workflowport.Completer, prompts *workflowprompt.Registry, promptID workflowprompt.PromptID) *RepoGenerationChain {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	if promptID == "" {
		promptID = workflowprompt.PromptRepoGenerationV1
	}
	return &RepoGenerationChain{completer: completer, prompts: prompts, promptID: promptID}
}

type repoGenerationInput struct {
	Description string
	// Notify 推送中间状态，返回 false 表示调用方已不再消费
	Notify func(entity.ProgressEvent) bool
}

type repoGenerationState struct {
	In          *repoGenerationInput
	Messages    []*schema.Message
	Raw         string
	BufferedErr error
	StreamErr   error
	Stopped     bool
	Terminal    entity.ProgressEvent
	Outcome     string
}

// Generate 返回惰性、只能消费一次的事件序列：
// 首个事件固定为 generating 状态，最后恰好一个 done 或 error 事件。
// 调用方提前停止迭代时后续步骤不再执行。
func (c *RepoGenerationChain) Generate(ctx context.Context, description string) iter.Seq[entity.ProgressEvent] {
	var used atomic.Bool
	return func(yield func(entity.ProgressEvent) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		c.run(ctx, strings.TrimSpace(description), yield)
	}
}

func (c *RepoGenerationChain) run(ctx context.Context, description string, yield func(entity.ProgressEvent) bool) {
	ctx = llmctx.WithWorkflow(ctx, workflowRepoGeneration)
	ctx, span := tracer.Start(ctx, "repo_generation.generate")
	start := time.Now()
	outcome := string(apperrors.CodeInternal)

	var stopped, inYield, terminated bool
	emit := func(e entity.ProgressEvent) bool {
		if stopped {
			return false
		}
		inYield = true
		ok := yield(e)
		inYield = false
		if !ok {
			stopped = true
		}
		if e.Terminal() {
			terminated = true
		}
		return ok
	}

	defer func() {
		r := recover()
		if r != nil {
			if inYield {
				span.End()
				panic(r)
			}
			err := fmt.Errorf("panic: %v", r)
			logger.Error(ctx, "unexpected_error", err, "stack", string(debug.Stack()))
			tracer.RecordError(span, err)
			outcome = string(apperrors.CodeInternal)
			if !terminated {
				emit(entity.NewErrorEvent(apperrors.ErrInternal))
			}
		}
		metrics.GenerationTotal.WithLabelValues(outcome).Inc()
		metrics.GenerationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("generation.outcome", outcome))
		span.End()
	}()

	if !emit(entity.NewStatusEvent(entity.MessageGenerating)) {
		outcome = outcomeAborted
		return
	}

	st, err := c.invoke(ctx, &repoGenerationInput{Description: description, Notify: emit})
	switch {
	case err != nil:
		if inYield {
			// 调用方在消费中间状态时 panic，被编排框架转成了错误
			panic(err)
		}
		logger.Error(ctx, "unexpected_error", err)
		tracer.RecordError(span, err)
		emit(entity.NewErrorEvent(apperrors.ErrInternal))
	case st.Stopped:
		outcome = outcomeAborted
	default:
		outcome = st.Outcome
		emit(st.Terminal)
	}
}

func (c *RepoGenerationChain) invoke(ctx context.Context, in *repoGenerationInput) (*repoGenerationState, error) {
	if c == nil || c.completer == nil {
		return nil, fmt.Errorf("completer not configured")
	}
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	if c.chainErr != nil {
		return nil, c.chainErr
	}
	return c.chain.Invoke(ctx, in)
}

func (c *RepoGenerationChain) buildChain(ctx context.Context) (compose.Runnable[*repoGenerationInput, *repoGenerationState], error) {
	chain := compose.NewChain[*repoGenerationInput, *repoGenerationState]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, in *repoGenerationInput) (*repoGenerationState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			msgs, err := c.prompts.RepoGenerationMessages(ctx, c.promptID, in.Description)
			if err != nil {
				return nil, err
			}
			return &repoGenerationState{In: in, Messages: msgs}, nil
		}),
		compose.WithNodeName("repo_generation.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(c.completeWithFallback),
		compose.WithNodeName("repo_generation.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(c.finalize),
		compose.WithNodeName("repo_generation.finalize"),
	)

	return chain.Compile(ctx)
}

// completeWithFallback 先走整包模式，任何失败都改用流式模式重试一次
func (c *RepoGenerationChain) completeWithFallback(ctx context.Context, st *repoGenerationState) (*repoGenerationState, error) {
	if st == nil || st.In == nil {
		return nil, fmt.Errorf("state is nil")
	}

	st.Raw, st.BufferedErr = c.completer.Complete(ctx, st.Messages)
	if st.BufferedErr == nil {
		return st, nil
	}

	logger.Warn(ctx, "buffered completion failed, falling back to streaming API",
		"backend", c.completer.Name(),
		"code", string(wfnode.ClassifyLLMError(st.BufferedErr)),
		"error", st.BufferedErr.Error(),
	)
	if !st.In.Notify(entity.NewStatusEvent(entity.MessageProcessing)) {
		st.Stopped = true
		return st, nil
	}

	st.Raw, st.StreamErr = c.completer.Stream(ctx, st.Messages)
	return st, nil
}

// finalize 把补全结果转成终止事件
func (c *RepoGenerationChain) finalize(ctx context.Context, st *repoGenerationState) (*repoGenerationState, error) {
	if st == nil || st.In == nil {
		return nil, fmt.Errorf("state is nil")
	}
	if st.Stopped {
		return st, nil
	}

	if st.BufferedErr != nil && st.StreamErr != nil {
		code := wfnode.CombineAttempts(st.BufferedErr, st.StreamErr)
		logTerminalFailure(ctx, code, st.BufferedErr, st.StreamErr)
		st.Outcome = string(code)
		st.Terminal = entity.NewErrorEvent(wfnode.TerminalError(code))
		return st, nil
	}

	logger.Info(ctx, "repo_generation_completed",
		"response_length", len(st.Raw),
		"prompt_preview", logger.Preview(st.In.Description, 50),
	)

	obj := wfnode.Extract(st.Raw)
	if wfnode.HasRequiredFields(obj) {
		artifact := wfnode.CleanArtifact(obj)
		logger.Info(ctx, "json_parsing_successful", "repo_name", artifact.RepositoryName)
		st.Outcome = outcomeArtifact
		st.Terminal = entity.NewDoneEvent(artifact)
		return st, nil
	}

	logger.Warn(ctx, "json_parsing_failed",
		"error", apperrors.ErrExtraction.Message,
		"response_preview", logger.Preview(st.Raw, entity.MaxRawResponseRunes),
	)
	st.Outcome = outcomeFallback
	st.Terminal = entity.NewFallbackEvent(wfnode.BuildFallback(st.In.Description, st.Raw))
	return st, nil
}

func logTerminalFailure(ctx context.Context, code apperrors.ErrorCode, buffered, stream error) {
	attrs := []any{"buffered_error", buffered.Error()}
	switch code {
	case apperrors.CodeTimeout:
		logger.Error(ctx, "groq_api_timeout", stream, attrs...)
	case apperrors.CodeAPIError:
		logger.Error(ctx, "groq_api_error", stream, attrs...)
	default:
		logger.Error(ctx, "unexpected_error", stream, attrs...)
	}
}
