package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/node"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

// StatusError 上游返回了非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// UpstreamStatus 取出错误链中的上游状态码
func UpstreamStatus(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

func statusErr(code int, body string) error {
	return apperrors.Wrap(&StatusError{StatusCode: code, Body: node.TruncateByRunes(body, 200)},
		apperrors.CodeAPIError, "completion request rejected")
}

func envelopeErr(reason string) error {
	return apperrors.Wrap(errors.New(reason), apperrors.CodeAPIError, "malformed completion response")
}

// transportErr 超时归为 TIMEOUT，调用方主动取消原样返回，其余网络错误归为 API_ERROR
func transportErr(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case node.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeTimeout, "completion request timed out")
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.Wrap(err, apperrors.CodeAPIError, "completion request failed")
	}
}
