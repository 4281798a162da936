// Package app wires configuration into the storage, LLM, content,
// notification and dispatch components shared by the service and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/budget-guardian/internal/config"
	"github.com/ogulcanaydogan/budget-guardian/internal/scheduler"
	"github.com/ogulcanaydogan/budget-guardian/internal/server"
	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/notify"
	"github.com/ogulcanaydogan/budget-guardian/pkg/receipt"
	"github.com/ogulcanaydogan/budget-guardian/pkg/storage"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *storage.SQLite
	Backends   *llm.Registry
	Backend    llm.TextGenerator // nil when no provider is selected
	Generator  *content.Generator
	Advisor    *content.Advisor
	Scanner    *receipt.Scanner
	Notifier   *notify.Multi
	Dispatcher *dispatch.Dispatcher

	closers []func() error
}

// New builds every component from cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Store: store}
	a.closers = append(a.closers, store.Close)

	if err := a.initLLM(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Generator = content.NewGenerator(a.Backend, cfg.LLM.Timeout, logger)
	a.Advisor = content.NewAdvisor(a.Backend, cfg.LLM.Timeout, logger)
	a.Scanner = receipt.NewScanner(a.Backend, nil, receipt.ScannerConfig{
		AIText:          cfg.Receipt.AIText,
		MaxPromptTokens: cfg.Receipt.MaxPromptTokens,
		Model:           TextModel(cfg.LLM),
	}, logger)
	a.Notifier = notify.NewMulti(logger, Notifiers(cfg.Notify)...)
	a.Dispatcher = dispatch.New(store, a.Generator, a.Notifier, dispatch.Config{
		Cooldown: cfg.Alerts.Cooldown,
		Workers:  cfg.Alerts.Workers,
		Currency: cfg.Alerts.Currency,
	}, logger)

	logger.Debug("components ready",
		"llm_backends", a.Backends.List(),
		"llm_provider", cfg.LLM.Provider,
		"notifiers", a.Notifier.Names(),
	)
	return a, nil
}

// TextModel is the configured model of the selected provider.
func TextModel(cfg config.LLMConfig) string {
	switch cfg.Provider {
	case "openai":
		return cfg.OpenAI.Model
	case "gemini":
		return cfg.Gemini.Model
	}
	return ""
}

// initLLM registers every backend that has credentials and selects the
// configured provider, metered against the usage table.
func (a *App) initLLM(ctx context.Context) error {
	cfg := a.Config.LLM
	a.Backends = llm.NewRegistry()

	if cfg.OpenAI.APIKey != "" {
		if err := a.Backends.Register(llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			VisionModel: cfg.OpenAI.VisionModel,
			Timeout:     cfg.Timeout,
		})); err != nil {
			return err
		}
	}
	if cfg.Gemini.APIKey != "" {
		g, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, g.Close)
		if err := a.Backends.Register(g); err != nil {
			return err
		}
	}

	if cfg.Provider == "" {
		return nil
	}
	backend, err := a.Backends.Get(cfg.Provider)
	if err != nil {
		return fmt.Errorf("llm provider %q has no api key configured: %w", cfg.Provider, err)
	}

	pricing := llm.DefaultPricing()
	if cfg.PricingFile != "" {
		if pricing, err = llm.LoadPricing(cfg.PricingFile); err != nil {
			return fmt.Errorf("load pricing: %w", err)
		}
	}
	a.Backend = llm.NewMetered(backend, pricing, a.Store, a.Logger)
	return nil
}

// Notifiers builds the enabled delivery channels. Channels that are enabled
// but missing their endpoint are skipped.
func Notifiers(cfg config.NotifyConfig) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Email.Enabled && cfg.Email.Host != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}))
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Secret))
	}
	if cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel))
	}

	return notifiers
}

// Server returns the HTTP API over the wired components.
func (a *App) Server() *server.Server {
	return server.NewServer(a.Dispatcher, a.Store, a.Scanner, a.Advisor, a.Logger)
}

// Scheduler returns the sweep and weekly summary scheduler.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	weekday, err := config.ParseWeekday(a.Config.Schedule.SummaryWeekday)
	if err != nil {
		return nil, err
	}
	return scheduler.New(a.Dispatcher, scheduler.Config{
		SweepInterval:  a.Config.Schedule.SweepInterval,
		SummaryWeekday: weekday,
		SummaryHour:    a.Config.Schedule.SummaryHour,
	}, a.Logger), nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
