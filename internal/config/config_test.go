package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("TELEGRAM_API_TOKEN", "")
	t.Setenv("TELEGRAM_API_KEY", "")

	cfg := Load()

	assert.Equal(t, TelegramModeWebhook, cfg.Telegram.Mode)
	assert.Equal(t, LockBackendPostgres, cfg.Worker.LockBackend)
	assert.Equal(t, 25*time.Second, cfg.Gemini.GenerationTimeout)
	assert.Equal(t, 20*time.Second, cfg.Telegram.SendTimeout)
	assert.Equal(t, "Mr Traqchecker", cfg.Assistant.Name)
	assert.False(t, cfg.GenerationEnabled())
	assert.False(t, cfg.ResumeIndexEnabled())
}

func TestLoadTelegramTokenAlias(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "")
	t.Setenv("TELEGRAM_API_KEY", "legacy-token")

	assert.Equal(t, "legacy-token", Load().Telegram.BotToken)

	t.Setenv("TELEGRAM_API_TOKEN", "primary-token")
	assert.Equal(t, "primary-token", Load().Telegram.BotToken)
}

func TestLoadTrimsPublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://example.test/")

	assert.Equal(t, "https://example.test", Load().Telegram.PublicBaseURL)
}

func TestGetEnvAsDurationFallsBack(t *testing.T) {
	t.Setenv("TELEGRAM_SEND_TIMEOUT", "not-a-duration")

	assert.Equal(t, 20*time.Second, getEnvAsDuration("TELEGRAM_SEND_TIMEOUT", "20s"))
}

func TestResumeIndexNeedsBothBackends(t *testing.T) {
	cfg := &Config{}
	cfg.Qdrant.URL = "http://localhost:6334"
	assert.False(t, cfg.ResumeIndexEnabled())

	cfg.Gemini.APIKey = "key"
	assert.True(t, cfg.ResumeIndexEnabled())
}
