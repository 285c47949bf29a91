package port

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Completer 定义工作流层对补全服务的最小依赖（port）。
// Complete 一次性返回完整内容；Stream 以增量方式读取并按顺序拼接全部片段。
// 错误应归类为 pkg/errors 中的 TIMEOUT 或 API_ERROR。
type Completer interface {
	Name() string
	Complete(ctx context.Context, msgs []*schema.Message) (string, error)
	Stream(ctx context.Context, msgs []*schema.Message) (string, error)
	// Probe 发送最小请求检测服务可用性
	Probe(ctx context.Context) error
}
