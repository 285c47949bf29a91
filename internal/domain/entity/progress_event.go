package entity

import (
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

// EventKind 进度事件类型
type EventKind string

const (
	EventKindStatus EventKind = "status"
	EventKindDone   EventKind = "done"
	EventKindError  EventKind = "error"
)

// StatusGenerating 进度事件中的状态值
const StatusGenerating = "generating"

// 进度文案
const (
	MessageGenerating = "🤖 Generating repository..."
	MessageProcessing = "📝 Processing response..."
)

// ProgressEvent 生成过程中推送给调用方的事件
// 一次生成包含若干 status 事件，最后是唯一的 done 或 error 事件
type ProgressEvent struct {
	Kind EventKind

	// status
	Status  string
	Message string

	// done：二者恰有一个非空
	Artifact *RepositoryArtifact
	Fallback *FallbackArtifact

	// error
	Code  apperrors.ErrorCode
	Error string
}

// StatusPayload status 事件的数据
type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorPayload error 事件的数据
type ErrorPayload struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code"`
}

// NewStatusEvent 创建 status 事件
func NewStatusEvent(message string) ProgressEvent {
	return ProgressEvent{Kind: EventKindStatus, Status: StatusGenerating, Message: message}
}

// NewDoneEvent 创建携带正常骨架的 done 事件
func NewDoneEvent(a RepositoryArtifact) ProgressEvent {
	return ProgressEvent{Kind: EventKindDone, Artifact: &a}
}

// NewFallbackEvent 创建携带兜底骨架的 done 事件
func NewFallbackEvent(f FallbackArtifact) ProgressEvent {
	return ProgressEvent{Kind: EventKindDone, Fallback: &f}
}

// NewErrorEvent 根据 AppError 创建 error 事件
func NewErrorEvent(err *apperrors.AppError) ProgressEvent {
	return ProgressEvent{Kind: EventKindError, Code: err.Code, Error: err.Message}
}

// Terminal 是否为终止事件
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventKindDone || e.Kind == EventKindError
}

// IsFallback done 事件是否为兜底结果
func (e ProgressEvent) IsFallback() bool {
	return e.Kind == EventKindDone && e.Fallback != nil
}

// Name 事件流中的 event 名称，status 事件没有名称
func (e ProgressEvent) Name() string {
	if e.Kind == EventKindStatus {
		return ""
	}
	return string(e.Kind)
}

// Payload 事件流中 data 行的 JSON 对象
func (e ProgressEvent) Payload() any {
	switch e.Kind {
	case EventKindStatus:
		return StatusPayload{Status: e.Status, Message: e.Message}
	case EventKindError:
		return ErrorPayload{Error: e.Error, Code: e.Code}
	default:
		if e.Fallback != nil {
			return e.Fallback
		}
		return e.Artifact
	}
}

// Result 返回 done 事件中的仓库骨架（兜底结果同样返回其骨架部分）
func (e ProgressEvent) Result() (RepositoryArtifact, bool) {
	switch {
	case e.Kind != EventKindDone:
		return RepositoryArtifact{}, false
	case e.Fallback != nil:
		return e.Fallback.RepositoryArtifact, true
	case e.Artifact != nil:
		return *e.Artifact, true
	default:
		return RepositoryArtifact{}, false
	}
}
