// Package eino 把仓库生成链路的 Eino 回调接入指标与追踪
package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var (
	registerOnce sync.Once
	registered   einocallbacks.Handler
)

// NewHandler 组装生成链路的回调：链路节点耗时与 ChatModel 用量
func NewHandler() einocallbacks.Handler {
	return cbtemplate.NewHandlerHelper().
		Lambda(newNodeCallbackHandler()).
		ChatModel(newChatModelCallbackHandler()).
		Handler()
}

// Register 把 NewHandler 注册为全局回调，多次调用返回同一个 handler
func Register() einocallbacks.Handler {
	registerOnce.Do(func() {
		registered = NewHandler()
		einocallbacks.AppendGlobalHandlers(registered)
	})
	return registered
}
