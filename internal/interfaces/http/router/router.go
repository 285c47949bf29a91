// Package router 提供 HTTP 路由配置
package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/handler"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器
type RouterHandlers struct {
	Root     *handler.RootHandler
	Health   *handler.HealthHandler
	Generate *handler.GenerateHandler
}

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	cfg     *config.Config
	h       RouterHandlers
	limiter middleware.RateLimiter
	backend string
}

// NewWithDeps 创建路由器；limiter 为 nil 时不限流
func NewWithDeps(cfg *config.Config, h RouterHandlers, limiter middleware.RateLimiter, backend string) (*Router, error) {
	if err := dto.RegisterValidators(cfg.Generation.PromptMinRunes, cfg.Generation.PromptMaxRunes); err != nil {
		return nil, err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// 限流按客户端地址计数，只有受信代理的 X-Forwarded-For 才会被采信
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	r := &Router{
		engine:  engine,
		cfg:     cfg,
		h:       h,
		limiter: limiter,
		backend: backend,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r, nil
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件，CORS 先于密钥校验以便预检请求拿到跨域头
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	r.engine.Use(middleware.APIKey(middleware.APIKeyConfig{
		Key:       r.cfg.Security.APIKey,
		SkipPaths: r.cfg.Security.AuthSkipPaths,
		Disabled:  r.cfg.IsDevelopment(),
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/", r.h.Root.Root)
	r.engine.GET("/health/", r.h.Health.Health)
	r.engine.GET("/ready", r.h.Health.Ready)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	r.engine.POST("/generate_repo/",
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:   rl.Enabled,
			Requests:  rl.Requests,
			Window:    rl.Window,
			KeyPrefix: rl.KeyPrefix,
			Backend:   r.backend,
		}, r.limiter),
		r.h.Generate.GenerateRepo,
	)
}
