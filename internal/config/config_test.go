package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, 4, cfg.Alerts.Workers)
	assert.Equal(t, "₹", cfg.Alerts.Currency)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, time.Hour, cfg.Schedule.SweepInterval)
	assert.Equal(t, "monday", cfg.Schedule.SummaryWeekday)
	assert.Equal(t, 9, cfg.Schedule.SummaryHour)
	assert.Empty(t, cfg.LLM.Provider)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Gemini.Model)
	assert.Equal(t, 2000, cfg.Receipt.MaxPromptTokens)
	assert.Equal(t, 587, cfg.Notify.Email.Port)
	assert.Equal(t, "#budget-alerts", cfg.Notify.Slack.Channel)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
server:
  listen: ":9090"
alerts:
  cooldown: 12h
  currency: "$"
schedule:
  summary_weekday: fri
  summary_hour: 18
llm:
  provider: gemini
  gemini:
    api_key: test-key
notify:
  webhook:
    enabled: true
    url: https://example.com/hook
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 12*time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, "$", cfg.Alerts.Currency)
	assert.Equal(t, "fri", cfg.Schedule.SummaryWeekday)
	assert.Equal(t, 18, cfg.Schedule.SummaryHour)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.Gemini.APIKey)
	assert.True(t, cfg.Notify.Webhook.Enabled)
	assert.Equal(t, "https://example.com/hook", cfg.Notify.Webhook.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BG_LOGGING_LEVEL", "error")
	t.Setenv("BG_SERVER_LISTEN", ":7070")
	t.Setenv("BG_LLM_OPENAI_API_KEY", "sk-test")
	t.Setenv("BG_NOTIFY_EMAIL_HOST", "smtp.example.com")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "smtp.example.com", cfg.Notify.Email.Host)
}

func TestLoad_InvalidFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644))

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"provider": "llm:\n  provider: claude\n",
		"weekday":  "schedule:\n  summary_weekday: someday\n",
		"hour":     "schedule:\n  summary_hour: 24\n",
	} {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
			_, err := config.Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"monday": time.Monday,
		"Mon":    time.Monday,
		"SUNDAY": time.Sunday,
		"thu":    time.Thursday,
		" sat ":  time.Saturday,
	} {
		got, err := config.ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := config.ParseWeekday("mo")
	assert.Error(t, err)
}
