package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, dir string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, t.TempDir())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.ExperimentRateLimit)
	assert.Equal(t, "./data", cfg.Data.Dir)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/openai/", cfg.LLM.BaseURL)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.ThinkingBudget)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
data:
  dir: /srv/dataset
llm:
  model: gemini-2.5-pro
  thinkingBudget: 8192
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg := loadFrom(t, dir)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/dataset", cfg.Data.Dir)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 8192, cfg.LLM.ThinkingBudget)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("UNSTRUCTURED_SERVER_PORT", "7070")
	t.Setenv("UNSTRUCTURED_LLM_APIKEY", "test-key")

	cfg := loadFrom(t, t.TempDir())

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
}
