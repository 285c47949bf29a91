package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
)

// RootMessage GET / 返回的欢迎语
const RootMessage = "AI Repo Generator is live! 🚀"

// RootHandler 存活检查处理器
type RootHandler struct {
	cfg *config.Config
}

// NewRootHandler 创建存活检查处理器
func NewRootHandler(cfg *config.Config) *RootHandler {
	return &RootHandler{cfg: cfg}
}

// Root 存活检查接口，无需密钥
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.RootResponse
// @Router / [get]
func (h *RootHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.RootResponse{
		Status:      "ok",
		Message:     RootMessage,
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Env,
	})
}
