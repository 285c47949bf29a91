package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_DefaultsWithoutFiles(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, 8000, cfg.Server.HTTP.Port)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 8000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10*time.Second, cfg.LLM.HealthTimeout)
	assert.Equal(t, 5, cfg.Security.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.Window)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Security.CORS.AllowedOrigins)
	assert.Equal(t, []string{"/"}, cfg.Security.AuthSkipPaths)
	assert.Empty(t, cfg.Security.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestLoadFrom_FlatEnvironmentVariables(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("API_KEY", "shared-secret")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PORT", "9001")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "shared-secret", cfg.Security.APIKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORS.AllowedOrigins)
	assert.Equal(t, 9001, cfg.Server.HTTP.Port)
	assert.Equal(t, "redis", cfg.Security.RateLimit.Backend)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Security.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestLoadFrom_FileWithPlaceholders(t *testing.T) {
	dir := t.TempDir()
	yaml := `
app:
  name: idea2repo-test
llm:
  api_key: ${TEST_PROVIDER_KEY:fallback-key}
  model: ${TEST_MODEL}
security:
  rate_limit:
    requests: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.development.yaml"), []byte("security:\n  rate_limit:\n    requests: 9\n"), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "idea2repo-test", cfg.App.Name)
	assert.Equal(t, "fallback-key", cfg.LLM.APIKey)
	assert.Equal(t, "${TEST_MODEL}", cfg.LLM.Model)
	assert.Equal(t, 9, cfg.Security.RateLimit.Requests)
}

func TestValidate_RequiredKeys(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.LLM.APIKey = ""

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
	assert.Contains(t, err.Error(), "API_KEY environment variable is required in production")
}

func TestValidate_DevelopmentDoesNotNeedSharedSecret(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.Security.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownBackends(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.LLM.Backend = "grpc"
	cfg.Security.RateLimit.Backend = "etcd"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm.backend "grpc"`)
	assert.Contains(t, err.Error(), `rate_limit.backend "etcd"`)
}
