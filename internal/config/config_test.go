package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/standupbot/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_user_id: 42
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "standup.db", cfg.Database.Path)
	assert.Equal(t, config.ProviderRules, cfg.Extractor.Provider)
	assert.Equal(t, 9, cfg.Standup.Hour)
	assert.Equal(t, 0, cfg.Standup.Minute)
	assert.Equal(t, 3*time.Hour, cfg.Standup.ResponseWindow)
	assert.Equal(t, 30*time.Minute, cfg.Standup.FollowUpLead)
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.Equal(t, "🌅 Daily Standup Time!", cfg.Messages.PromptTitle)

	loc, err := cfg.Standup.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
telegram:
  token: "123:abc"
  admin_user_id: 42
standup:
  timezone: Europe/Berlin
  hour: 0
  minute: 10
  response_window: 90m
extractor:
  provider: openai
  timeout: 5s
  openai:
    api_key: sk-test
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "Europe/Berlin", cfg.Standup.Timezone)
	assert.Equal(t, 10, cfg.Standup.Minute)
	assert.Equal(t, 90*time.Minute, cfg.Standup.ResponseWindow)
	assert.Equal(t, config.ProviderOpenAI, cfg.Extractor.Provider)
	assert.Equal(t, "sk-test", cfg.Extractor.OpenAI.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Extractor.Timeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("STANDUP_TELEGRAM_TOKEN", "999:env")
	t.Setenv("STANDUP_TELEGRAM_ADMIN_USER_ID", "7")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.Equal(t, int64(7), cfg.Telegram.AdminUserID)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing token",
			body: "telegram:\n  admin_user_id: 42\n",
		},
		{
			name: "hour out of range",
			body: "telegram:\n  token: x\n  admin_user_id: 42\nstandup:\n  hour: 24\n",
		},
		{
			name: "unknown timezone",
			body: "telegram:\n  token: x\n  admin_user_id: 42\nstandup:\n  timezone: Mars/Olympus\n",
		},
		{
			name: "unknown provider",
			body: "telegram:\n  token: x\n  admin_user_id: 42\nextractor:\n  provider: regex\n",
		},
		{
			name: "gemini without key",
			body: "telegram:\n  token: x\n  admin_user_id: 42\nextractor:\n  provider: gemini\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
