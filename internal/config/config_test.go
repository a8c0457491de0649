package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 99, cfg.Engine.InvalidCode)
	assert.Equal(t, "Tidak Ada Jawaban", cfg.Engine.InvalidCategory)
	assert.Equal(t, 10, cfg.Engine.BatchSize)
	assert.Equal(t, 0.6, cfg.Engine.MinCategoryConfidence)
	assert.Equal(t, 0.85, cfg.Engine.SingleCategoryThreshold)
	assert.Equal(t, 0.50, cfg.Engine.OutlierConfidence)
	assert.Equal(t, 10, cfg.Engine.SemiOpenMaxCategories)
	assert.Equal(t, "incremental", cfg.Engine.Mode)
	assert.NotEmpty(t, cfg.Engine.InvalidPatterns)
	assert.Contains(t, cfg.Engine.FallbackCategories, "Other")
	assert.NotEmpty(t, cfg.Prompts.Categories)
	assert.NotEmpty(t, cfg.Prompts.MultiLabel)
}

func TestLoadPartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[llm]
provider = "claude"
model = "claude-sonnet-4-20250514"

[engine]
batch_size = 25
mode = "rerun"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, 25, cfg.Engine.BatchSize)
	assert.Equal(t, "rerun", cfg.Engine.Mode)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 99, cfg.Engine.InvalidCode)
	assert.Equal(t, 5, cfg.Engine.MaxWorkers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_MODEL", "gemini-2.0-flash")
	t.Setenv("LLM_API_KEY", "key-from-env")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PARALLEL_MAX_WORKERS", "8")
	t.Setenv("RATE_LIMIT_DELAY_MS", "250")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "key-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 8, cfg.Engine.MaxWorkers)
	assert.Equal(t, 250, cfg.Engine.RateLimitDelayMS)
}

func TestApplyEnvOpenAIKeyFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "sk-fallback", cfg.LLM.APIKey)
}

func TestApplyEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("PARALLEL_MAX_WORKERS", "zero")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, 5, cfg.Engine.MaxWorkers)
}

func TestRateLimitDelay(t *testing.T) {
	e := EngineConfig{RateLimitDelayMS: 100}
	assert.Equal(t, 100*time.Millisecond, e.RateLimitDelay())
}
