package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/persistence/redis"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Limiter 限流器
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// NoopLimiter 放行所有请求
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

// New 按配置选择限流后端；redis 后端需要已连接的客户端
func New(cfg *config.RateLimitConfig, rdb *redis.Client) (Limiter, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopLimiter{}, nil
	}
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryLimiter(), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("rate limit backend redis requires a redis client")
		}
		return redis.NewRateLimiter(rdb), nil
	case BackendNone:
		return NoopLimiter{}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

// BackendName 返回限流器对应的后端名，用于指标标签
func BackendName(l Limiter) string {
	switch l.(type) {
	case *MemoryLimiter:
		return BackendMemory
	case *redis.RateLimiter:
		return BackendRedis
	default:
		return BackendNone
	}
}
