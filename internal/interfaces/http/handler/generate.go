// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"iter"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
)

// RepoGenerator 把项目描述转成进度事件序列
type RepoGenerator interface {
	Generate(ctx context.Context, description string) iter.Seq[entity.ProgressEvent]
}

// GenerateHandler 仓库生成处理器
type GenerateHandler struct {
	generator RepoGenerator
}

// NewGenerateHandler 创建仓库生成处理器
func NewGenerateHandler(generator RepoGenerator) *GenerateHandler {
	return &GenerateHandler{generator: generator}
}

// GenerateRepo 根据描述生成仓库骨架，以事件流返回进度与结果
// @Summary 生成仓库骨架
// @Tags Generation
// @Accept json
// @Produce text/event-stream
// @Param body body dto.GenerateRepoRequest true "项目描述"
// @Success 200 "SSE stream"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /generate_repo/ [post]
func (h *GenerateHandler) GenerateRepo(c *gin.Context) {
	var req dto.GenerateRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AbortWithAppError(c, apperrors.New(apperrors.CodeValidation, dto.ValidationMessage(err)))
		return
	}

	ctx := c.Request.Context()
	description := req.ToEntity().Description()
	logger.Info(ctx, "repo_generation_started",
		"prompt_length", utf8.RuneCountInString(description),
	)

	setSSEHeaders(c)
	c.Status(200)

	w := c.Writer
	for event := range h.generator.Generate(ctx, description) {
		frame, err := encodeEvent(event)
		if err != nil {
			logger.Error(ctx, "unexpected_error", err, "event", event.Name())
			frame, _ = encodeEvent(entity.NewErrorEvent(apperrors.ErrInternal))
		}
		if _, err := w.Write(frame); err != nil {
			logger.Warn(ctx, "client disconnected during generation", "error", err.Error())
			return
		}
		w.Flush()
		if ctx.Err() != nil {
			logger.Warn(ctx, "client disconnected during generation", "error", ctx.Err().Error())
			return
		}
	}
}
