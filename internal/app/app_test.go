package app_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/internal/app"
	"github.com/ogulcanaydogan/budget-guardian/internal/config"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("BG_STORAGE_PATH", filepath.Join(t.TempDir(), "app.db"))
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_WithoutLLM(t *testing.T) {
	cfg := testConfig(t)

	a, err := app.New(t.Context(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Nil(t, a.Backend)
	assert.Empty(t, a.Backends.List())
	assert.Equal(t, []string{"log"}, a.Notifier.Names())

	require.NoError(t, a.Store.SetBudget(t.Context(), &model.Budget{
		UserID: "u1", Category: "Food", Total: decimal.NewFromInt(100), Spent: decimal.NewFromInt(85),
	}))
	outcomes, err := a.Dispatcher.Sweep(t.Context())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.StatusSent, outcomes[0].Status)
	assert.NotNil(t, a.Server().Handler())
}

func TestNew_RegistersOpenAI(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAI.APIKey = "sk-test"

	a, err := app.New(t.Context(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, []string{"openai"}, a.Backends.List())
	require.NotNil(t, a.Backend)
	assert.Equal(t, "openai", a.Backend.Name())
}

func TestTextModel(t *testing.T) {
	cfg := testConfig(t)

	cfg.LLM.Provider = "openai"
	assert.Equal(t, "gpt-4o-mini", app.TextModel(cfg.LLM))

	cfg.LLM.Provider = "gemini"
	assert.Equal(t, "gemini-1.5-pro", app.TextModel(cfg.LLM))

	cfg.LLM.Provider = ""
	assert.Empty(t, app.TextModel(cfg.LLM))
}

func TestNew_ProviderWithoutKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "gemini"

	_, err := app.New(t.Context(), cfg, quietLogger())
	assert.ErrorContains(t, err, "no api key")
}

func TestNew_MissingPricingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAI.APIKey = "sk-test"
	cfg.LLM.PricingFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := app.New(t.Context(), cfg, quietLogger())
	assert.ErrorContains(t, err, "load pricing")
}

func TestNotifiers(t *testing.T) {
	cfg := config.NotifyConfig{
		Email:   config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587},
		Webhook: config.WebhookConfig{Enabled: true, URL: "https://example.com/hook"},
		Slack:   config.SlackConfig{Enabled: true},
	}

	names := make([]string, 0)
	for _, n := range app.Notifiers(cfg) {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"email", "webhook"}, names, "slack without a webhook url is skipped")
}

func TestScheduler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.SweepInterval = time.Minute

	a, err := app.New(t.Context(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	s, err := a.Scheduler()
	require.NoError(t, err)
	monday := time.Date(2024, 5, 13, 9, 30, 0, 0, time.UTC)
	assert.True(t, s.SummaryDue(monday))
}
