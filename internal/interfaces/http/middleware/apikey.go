// Package middleware 提供 HTTP 中间件
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
)

// APIKeyHeader 调用方携带共享密钥的请求头
const APIKeyHeader = "X-API-Key"

// APIKeyConfig 共享密钥校验配置
type APIKeyConfig struct {
	// Key 期望的密钥
	Key string
	// SkipPaths 精确匹配、无需密钥的路径
	SkipPaths []string
	// Disabled 为 true 时全部放行（开发环境）
	Disabled bool
}

// APIKey 共享密钥校验中间件，预检请求与 SkipPaths 不校验
func APIKey(cfg APIKeyConfig) gin.HandlerFunc {
	skipMap := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}
	expected := []byte(cfg.Key)

	return func(c *gin.Context) {
		if cfg.Disabled || c.Request.Method == http.MethodOptions || skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		got := c.GetHeader(APIKeyHeader)
		if got == "" || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			logger.Warn(c.Request.Context(), "unauthorized_access_attempt",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			dto.AbortWithAppError(c, apperrors.ErrUnauthorized)
			return
		}

		c.Next()
	}
}
