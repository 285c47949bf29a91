package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/infrastructure/llm"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/node"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
)

// Prober 发起最小补全请求检查上游可用性
type Prober interface {
	Probe(ctx context.Context) error
}

// HealthChecker 依赖的连通性检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	cfg    *config.Config
	prober Prober
	redis  HealthChecker

	probes singleflight.Group
}

// NewHealthHandler 创建健康检查处理器，redis 为 nil 表示未启用
func NewHealthHandler(cfg *config.Config, prober Prober, redis HealthChecker) *HealthHandler {
	return &HealthHandler{cfg: cfg, prober: prober, redis: redis}
}

// Health 健康检查接口，并发请求共享同一次上游探测
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health/ [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	v, _, _ := h.probes.Do("provider", func() (any, error) {
		return h.probeProvider(ctx), nil
	})

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:      "healthy",
		Environment: h.cfg.App.Env,
		GroqAPI:     v.(string),
		GroqKeySet:  h.cfg.LLM.APIKey != "",
	})
}

func (h *HealthHandler) probeProvider(ctx context.Context) string {
	err := h.prober.Probe(ctx)
	if err == nil {
		logger.Info(ctx, "health_check", "groq_status", "healthy")
		return "healthy"
	}

	if status, ok := llm.UpstreamStatus(err); ok {
		groqStatus := fmt.Sprintf("unhealthy (%d)", status)
		logger.Info(ctx, "health_check", "groq_status", groqStatus, "status_code", status)
		return groqStatus
	}

	logger.Error(ctx, "groq_health_check_failed", err)
	return fmt.Sprintf("unhealthy (%s)", node.TruncateByRunes(rootCause(err).Error(), 50))
}

// rootCause 取错误链最内层的错误
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.ReadinessResponse
// @Failure 503 {object} dto.ReadinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*dto.ReadinessCheck{
		"llm_api_key": {Status: "ok"},
		"redis":       {Status: "disabled"},
	}
	ready := true

	if h.cfg.LLM.APIKey == "" {
		checks["llm_api_key"] = &dto.ReadinessCheck{Status: "missing"}
		ready = false
	}

	if h.redis != nil {
		start := time.Now()
		err := h.redis.HealthCheck(ctx)
		check := &dto.ReadinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			ready = false
		}
		checks["redis"] = check
	}

	resp := dto.ReadinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
