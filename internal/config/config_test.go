package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(DefaultConfigPath)
	require.NoError(t, err)

	assert.Equal(t, 8012, cfg.Port)
	assert.Equal(t, "https://export.arxiv.org/api/query", cfg.Arxiv.BaseURL)
	assert.Equal(t, 10, cfg.Arxiv.MaxResults)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 7, cfg.Schedule.Hour)
	assert.False(t, cfg.Schedule.NotifyOnEmpty)
	assert.Equal(t, 10, cfg.Verification.TTLMinutes)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
	assert.True(t, cfg.IsDev())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
env: production
llm:
  provider: openai
  model: gpt-4o-mini
schedule:
  hour: 8
  minute: 30
  notify_on_empty: true
mail:
  enable: true
  host: smtp.example.com
  user: cecilia@example.com
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 8, cfg.Schedule.Hour)
	assert.Equal(t, 30, cfg.Schedule.Minute)
	assert.True(t, cfg.Schedule.NotifyOnEmpty)
	// From falls back to the SMTP user.
	assert.Equal(t, "cecilia@example.com", cfg.Mail.From)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Arxiv.MaxResults)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CECILIA_PORT", "7777")
	t.Setenv("CECILIA_ENV", "production")
	t.Setenv("EMAIL_SMTP_HOST", "smtp.env.example.com")

	cfg, err := Load(DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "smtp.env.example.com", cfg.Mail.Host)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
