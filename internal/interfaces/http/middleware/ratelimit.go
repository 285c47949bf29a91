package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Requests 窗口内允许的请求数
	Requests int
	// Window 滑动窗口长度
	Window time.Duration
	// KeyPrefix 限流键前缀
	KeyPrefix string
	// Backend 限流后端名称，用于指标
	Backend string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按客户端 IP 限流的中间件，限流器故障时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Requests <= 0 {
		cfg.Requests = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			metrics.RateLimitErrorsTotal.WithLabelValues(cfg.Backend).Inc()
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request",
				"backend", cfg.Backend,
				"error", err.Error(),
			)
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimitRejectedTotal.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", retryAfter)
			dto.AbortWithAppError(c, apperrors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
