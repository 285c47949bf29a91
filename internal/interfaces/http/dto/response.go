package dto

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

// ErrorDetail 错误详情
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// RootResponse GET / 响应
type RootResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// HealthResponse GET /health/ 响应
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	GroqAPI     string `json:"groq_api"`
	GroqKeySet  bool   `json:"groq_key_set"`
}

// ReadinessCheck 单个依赖的就绪状态
type ReadinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// ReadinessResponse GET /ready 响应
type ReadinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*ReadinessCheck `json:"checks,omitempty"`
}

// AbortWithAppError 以 AppError 的状态码与文案中止请求
func AbortWithAppError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, ErrorResponse{
		Code:    err.HTTPStatus,
		Message: err.Message,
		Error: &ErrorDetail{
			ErrorCode: string(err.Code),
			Details:   err.Detail,
		},
		TraceID: c.GetString("trace_id"),
	})
}
