package eino

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmctx "github.com/ScriptSorcerer23/Idea2Repo/internal/domain/service"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
)

func TestFinish_RecordsTokenUsage(t *testing.T) {
	ctx := llmctx.WithProvider(context.Background(), "obs-test")
	prompt := metrics.LLMTokensUsed.WithLabelValues("obs-test", "m1", "prompt")
	completion := metrics.LLMTokensUsed.WithLabelValues("obs-test", "m1", "completion")
	beforePrompt := testutil.ToFloat64(prompt)
	beforeCompletion := testutil.ToFloat64(completion)

	finish(ctx, "m1", &model.TokenUsage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 42}, nil)

	assert.InDelta(t, beforePrompt+12, testutil.ToFloat64(prompt), 1e-9)
	assert.InDelta(t, beforeCompletion+30, testutil.ToFloat64(completion), 1e-9)
}

func TestFinish_WithoutUsageOrSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		finish(context.Background(), "", nil, errors.New("boom"))
	})
}

func TestElapsedSeconds(t *testing.T) {
	assert.Zero(t, elapsedSeconds(context.Background()))

	ctx := context.WithValue(context.Background(), startTimeKey{}, time.Now().Add(-2*time.Second))
	assert.GreaterOrEqual(t, elapsedSeconds(ctx), 2.0)
}

func TestModelName(t *testing.T) {
	assert.Empty(t, modelNameFromInput(nil))
	assert.Equal(t, "m", modelNameFromInput(&model.CallbackInput{Config: &model.Config{Model: "m"}}))
	assert.Empty(t, modelNameFromOutput(&model.CallbackOutput{}))
}

func TestRegister_ReturnsSameHandler(t *testing.T) {
	first := Register()
	require.NotNil(t, first)
	assert.Same(t, first, Register())
}

func TestNodeCallback_RecordsDurationPerNode(t *testing.T) {
	h := newNodeCallbackHandler()
	before := testutil.CollectAndCount(metrics.GenerationNodeDuration)

	info := &einocb.RunInfo{Name: "node-test.ok"}
	ctx := h.OnStart(context.Background(), info, nil)
	h.OnEnd(ctx, info, nil)

	failed := &einocb.RunInfo{Name: "node-test.failed"}
	ctx = h.OnStart(context.Background(), failed, nil)
	h.OnError(ctx, failed, errors.New("boom"))

	assert.Equal(t, before+2, testutil.CollectAndCount(metrics.GenerationNodeDuration))
}

func TestNodeCallback_EndWithoutStart(t *testing.T) {
	h := newNodeCallbackHandler()
	before := testutil.CollectAndCount(metrics.GenerationNodeDuration)

	assert.NotPanics(t, func() {
		h.OnEnd(context.Background(), nil, nil)
	})
	assert.Equal(t, before, testutil.CollectAndCount(metrics.GenerationNodeDuration))
	assert.Equal(t, "unknown", nodeName(nil))
}

func TestNewHandler_ObservesChainNodes(t *testing.T) {
	chain := compose.NewChain[string, string]()
	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in string) (string, error) {
			return strings.ToUpper(in), nil
		}),
		compose.WithNodeName("node-test.upper"),
	)
	r, err := chain.Compile(context.Background())
	require.NoError(t, err)

	before := testutil.CollectAndCount(metrics.GenerationNodeDuration)
	out, err := r.Invoke(context.Background(), "repo", compose.WithCallbacks(NewHandler()))
	require.NoError(t, err)
	assert.Equal(t, "REPO", out)
	assert.Equal(t, before+1, testutil.CollectAndCount(metrics.GenerationNodeDuration))
}
