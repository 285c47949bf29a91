// Package config 提供配置加载和管理功能
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置，URL 非空时优先于 Host/Port
type RedisConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Backend 补全客户端实现：http / eino / openai
	Backend       string        `yaml:"backend" mapstructure:"backend"`
	Provider      string        `yaml:"provider" mapstructure:"provider"`
	APIKey        string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Model         string        `yaml:"model" mapstructure:"model"`
	MaxTokens     int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout" mapstructure:"health_timeout"`
}

// GenerationConfig 生成流程配置
type GenerationConfig struct {
	PromptMinRunes int `yaml:"prompt_min_runes" mapstructure:"prompt_min_runes"`
	PromptMaxRunes int `yaml:"prompt_max_runes" mapstructure:"prompt_max_runes"`
	// PromptVersion 选择内置的提示词模板
	PromptVersion string `yaml:"prompt_version" mapstructure:"prompt_version"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// APIKey 调用方需要在 X-API-Key 头中携带的共享密钥
	APIKey        string   `yaml:"api_key" mapstructure:"api_key"`
	AuthSkipPaths []string `yaml:"auth_skip_paths" mapstructure:"auth_skip_paths"`

	// TrustedProxies 允许通过 X-Forwarded-For 传递客户端地址的代理网段，为空时只认连接地址
	TrustedProxies []string        `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS           CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Backend 限流实现：redis / memory / none
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	Requests  int           `yaml:"requests" mapstructure:"requests"`
	Window    time.Duration `yaml:"window" mapstructure:"window"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// IsDevelopment 是否为开发环境
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, EnvDevelopment)
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// Addr 返回 HTTP 监听地址
func (c *HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate 校验启动所需的配置项
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, errors.New("GROQ_API_KEY environment variable is required"))
	}
	if c.IsProduction() && strings.TrimSpace(c.Security.APIKey) == "" {
		errs = append(errs, errors.New("API_KEY environment variable is required in production"))
	}

	switch c.LLM.Backend {
	case "http", "eino", "openai":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm.backend %q", c.LLM.Backend))
	}

	if c.Security.RateLimit.Enabled {
		switch c.Security.RateLimit.Backend {
		case "redis", "memory", "none":
		default:
			errs = append(errs, fmt.Errorf("unsupported security.rate_limit.backend %q", c.Security.RateLimit.Backend))
		}
		if c.Security.RateLimit.Requests <= 0 || c.Security.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("security.rate_limit requests and window must be positive"))
		}
	}

	if c.Generation.PromptMinRunes <= 0 || c.Generation.PromptMaxRunes < c.Generation.PromptMinRunes {
		errs = append(errs, errors.New("generation prompt length bounds are invalid"))
	}

	return errors.Join(errs...)
}
