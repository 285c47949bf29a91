package llm

import (
	"context"
	"fmt"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/workflow/port"
)

// NewCompleter 按 llm.backend 创建补全客户端，并统一加上指标与追踪
func NewCompleter(ctx context.Context, cfg *config.Config) (port.Completer, error) {
	opts := OptionsFromConfig(&cfg.LLM)

	var c port.Completer
	switch cfg.LLM.Backend {
	case "", BackendHTTP:
		c = NewHTTPClient(opts, nil)
	case BackendEino:
		ec, err := NewEinoClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		c = ec
	case BackendOpenAI:
		c = NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("unsupported llm backend: %s", cfg.LLM.Backend)
	}
	return Instrument(c, opts), nil
}
