//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/handler"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/router"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/chain"
	workflowprompt "github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/prompt"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RedisSet,
		WorkflowSet,
		RouterSet,
	)
	return nil, nil, nil
}

// RedisSet Redis 与限流提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideRateLimiter,
)

// WorkflowSet 生成流程提供者集合
var WorkflowSet = wire.NewSet(
	ProvideCompleter,
	workflowprompt.NewRegistry,
	ProvideRepoGenerationChain,
	wire.Bind(new(handler.RepoGenerator), new(*chain.RepoGenerationChain)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewRootHandler,
	ProvideHealthHandler,
	handler.NewGenerateHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	ProvideRouter,
)
