package node

import (
	"context"
	"errors"
	"net"

	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

// ClassifyLLMError 把补全调用的错误归类为 TIMEOUT / API_ERROR / INTERNAL_ERROR
func ClassifyLLMError(err error) apperrors.ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeTimeout, apperrors.CodeAPIError:
			return appErr.Code
		}
	}
	if IsTimeout(err) {
		return apperrors.CodeTimeout
	}
	return apperrors.CodeInternal
}

// IsTimeout 截止时间到达或网络超时
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// CombineAttempts 两次尝试都失败时得出最终错误码：任一超时即 TIMEOUT，其次 API_ERROR，否则 INTERNAL_ERROR
func CombineAttempts(first, second error) apperrors.ErrorCode {
	a, b := ClassifyLLMError(first), ClassifyLLMError(second)
	switch {
	case a == apperrors.CodeTimeout || b == apperrors.CodeTimeout:
		return apperrors.CodeTimeout
	case a == apperrors.CodeAPIError || b == apperrors.CodeAPIError:
		return apperrors.CodeAPIError
	default:
		return apperrors.CodeInternal
	}
}

// TerminalError 错误码对应的调用方可见错误
func TerminalError(code apperrors.ErrorCode) *apperrors.AppError {
	switch code {
	case apperrors.CodeTimeout:
		return apperrors.ErrTimeout
	case apperrors.CodeAPIError:
		return apperrors.ErrAPI
	default:
		return apperrors.ErrInternal
	}
}
