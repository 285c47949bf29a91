// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDir 默认配置目录
const DefaultDir = "configs"

var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// envBindings 兼容部署时使用的扁平环境变量名
var envBindings = map[string][]string{
	"app.env":                        {"ENVIRONMENT", "APP_ENV"},
	"server.http.port":               {"PORT"},
	"llm.api_key":                    {"GROQ_API_KEY", "LLM_API_KEY"},
	"llm.backend":                    {"LLM_BACKEND"},
	"llm.base_url":                   {"LLM_BASE_URL"},
	"llm.model":                      {"LLM_MODEL"},
	"security.api_key":               {"API_KEY"},
	"security.cors.allowed_origins":  {"ALLOWED_ORIGINS"},
	"security.trusted_proxies":       {"TRUSTED_PROXIES"},
	"security.rate_limit.backend":    {"RATE_LIMIT_BACKEND"},
	"cache.redis.url":                {"REDIS_URL"},
	"observability.logging.level":    {"LOG_LEVEL"},
	"observability.tracing.enabled":  {"TRACING_ENABLED"},
	"observability.tracing.endpoint": {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"observability.metrics.enabled":  {"METRICS_ENABLED"},
	"generation.prompt_version":      {"PROMPT_VERSION"},
}

// Load 从默认目录加载配置
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = DefaultDir
	}
	return LoadFrom(dir)
}

// LoadFrom 加载配置
// 按优先级加载：默认值 -> config.yaml -> config.<env>.yaml -> 环境变量
// 配置文件都是可选的，仅靠环境变量即可启动
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml")); err != nil {
		return nil, err
	}

	env := firstEnv("ENVIRONMENT", "APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))); err != nil {
		return nil, err
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并合并到 viper
func loadConfigFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if err := v.MergeConfig(reader); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}
	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符，未定义且无默认值的保留原样
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPlaceholder.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return ""
}

// normalize 清理逗号分隔列表与大小写
func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.LLM.Backend = strings.ToLower(strings.TrimSpace(c.LLM.Backend))
	c.Security.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.Security.RateLimit.Backend))
	c.Security.CORS.AllowedOrigins = splitList(c.Security.CORS.AllowedOrigins)
	c.Security.CORS.AllowedMethods = splitList(c.Security.CORS.AllowedMethods)
	c.Security.CORS.AllowedHeaders = splitList(c.Security.CORS.AllowedHeaders)
	c.Security.AuthSkipPaths = splitList(c.Security.AuthSkipPaths)
	c.Security.TrustedProxies = splitList(c.Security.TrustedProxies)
}

// splitList 展开元素内部的逗号并去掉空白项
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "idea2repo-api")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", EnvDevelopment)

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "15s")
	// 两次补全各自 30s，写超时要覆盖整条事件流
	v.SetDefault("server.http.write_timeout", "90s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	v.SetDefault("llm.backend", "http")
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.max_tokens", 8000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.health_timeout", "10s")

	v.SetDefault("generation.prompt_min_runes", 5)
	v.SetDefault("generation.prompt_max_runes", 500)
	v.SetDefault("generation.prompt_version", "v1")

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.insecure", true)
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("security.api_key", "")
	v.SetDefault("security.auth_skip_paths", []string{"/"})
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.backend", "memory")
	v.SetDefault("security.rate_limit.requests", 5)
	v.SetDefault("security.rate_limit.window", "1m")
	v.SetDefault("security.rate_limit.key_prefix", "idea2repo:ratelimit:")
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-API-Key", "X-Request-ID"})
}
