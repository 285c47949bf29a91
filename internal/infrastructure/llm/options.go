// Package llm 提供对 OpenAI 兼容补全接口的多种客户端实现
package llm

import (
	"strings"
	"time"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/config"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.1-8b-instant"

	probePrompt    = "hi"
	probeMaxTokens = 10
)

// Options 补全客户端的公共参数
type Options struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	HealthTimeout time.Duration
}

// OptionsFromConfig 从配置生成客户端参数，并补齐缺省值
func OptionsFromConfig(cfg *config.LLMConfig) Options {
	opts := Options{
		Provider:      cfg.Provider,
		APIKey:        cfg.APIKey,
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		Timeout:       cfg.Timeout,
		HealthTimeout: cfg.HealthTimeout,
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 10 * time.Second
	}
	if opts.Provider == "" {
		opts.Provider = "groq"
	}
	return opts
}
