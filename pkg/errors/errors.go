// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 请求错误
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
	CodeNotFound     ErrorCode = "NOT_FOUND"

	// 生成流程错误（出现在 error 事件中）
	CodeTimeout  ErrorCode = "TIMEOUT"
	CodeAPIError ErrorCode = "API_ERROR"
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// 内部使用，不会暴露给调用方
	CodeExtractionFailed   ErrorCode = "EXTRACTION_FAILED"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeConfig             ErrorCode = "CONFIG_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeAPIError:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误，消息即调用方可见文案
var (
	ErrUnauthorized = New(CodeUnauthorized, "Invalid or missing API key")
	ErrRateLimited  = New(CodeRateLimited, "Rate limit exceeded, please try again later")
	ErrTimeout      = New(CodeTimeout, "Request timeout - please try again")
	ErrAPI          = New(CodeAPIError, "AI service temporarily unavailable")
	ErrInternal     = New(CodeInternal, "Internal server error")
	ErrExtraction   = New(CodeExtractionFailed, "model output is not a usable repository object")
)

// IsAppError 检查错误链中是否存在 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, "Internal server error")
}

// CodeOf 返回错误链中的错误码，非 AppError 视为 INTERNAL_ERROR
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsAppError(err).Code
}
