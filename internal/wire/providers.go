package wire

import (
	"context"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/llm"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/persistence/redis"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/ratelimit"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/handler"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/router"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/chain"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/port"
	workflowprompt "github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/prompt"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
)

// ProvideRedisClient 只有限流后端为 redis 时才连接 Redis
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	rl := cfg.Security.RateLimit
	if !rl.Enabled || rl.Backend != ratelimit.BackendRedis {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "purpose", "rate_limit")
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter 提供限流器
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) (ratelimit.Limiter, error) {
	return ratelimit.New(&cfg.Security.RateLimit, client)
}

// ProvideCompleter 提供补全客户端
func ProvideCompleter(ctx context.Context, cfg *config.Config) (port.Completer, error) {
	return llm.NewCompleter(ctx, cfg)
}

// ProvideRepoGenerationChain 提供仓库生成编排
func ProvideRepoGenerationChain(cfg *config.Config, completer port.Completer, prompts *workflowprompt.Registry) *chain.RepoGenerationChain {
	return chain.NewRepoGenerationChain(completer, prompts, workflowprompt.IDForVersion(cfg.Generation.PromptVersion))
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, completer port.Completer, client *redis.Client) *handler.HealthHandler {
	// 避免把 nil 指针包进非 nil 接口
	var checker handler.HealthChecker
	if client != nil {
		checker = client
	}
	return handler.NewHealthHandler(cfg, completer, checker)
}

// ProvideRouter 提供路由器
func ProvideRouter(cfg *config.Config, h router.RouterHandlers, limiter ratelimit.Limiter) (*router.Router, error) {
	return router.NewWithDeps(cfg, h, limiter, ratelimit.BackendName(limiter))
}
