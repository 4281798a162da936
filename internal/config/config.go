package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all Budget Guardian configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Receipt  ReceiptConfig  `mapstructure:"receipt"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AlertsConfig tunes dispatching.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Workers  int           `mapstructure:"workers"`
	Currency string        `mapstructure:"currency"`
}

// ScheduleConfig defines the periodic sweep and the weekly summary slot.
type ScheduleConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	SummaryWeekday string        `mapstructure:"summary_weekday"`
	SummaryHour    int           `mapstructure:"summary_hour"`
}

// LLMConfig selects and configures the text-generation backend.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PricingFile string        `mapstructure:"pricing_file"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
}

// OpenAIConfig defines the OpenAI chat completions backend.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
}

// GeminiConfig defines the Gemini backend.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ReceiptConfig tunes receipt scanning.
type ReceiptConfig struct {
	AIText          bool `mapstructure:"ai_text"`
	MaxPromptTokens int  `mapstructure:"max_prompt_tokens"`
}

// NotifyConfig defines delivery channels.
type NotifyConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Slack   SlackConfig   `mapstructure:"slack"`
}

// EmailConfig defines SMTP delivery.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a .env file, the config file and BG_*
// environment variables, in increasing precedence.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("find home directory: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(home, ".budget-guardian"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v, home)

	v.SetEnvPrefix("BG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("storage.path", filepath.Join(home, ".budget-guardian", "guardian.db"))

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("alerts.cooldown", "24h")
	v.SetDefault("alerts.workers", 4)
	v.SetDefault("alerts.currency", "₹")

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.sweep_interval", "1h")
	v.SetDefault("schedule.summary_weekday", "monday")
	v.SetDefault("schedule.summary_hour", 9)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.timeout", "10s")
	v.SetDefault("llm.pricing_file", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.vision_model", "gpt-4o")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", "gemini-1.5-pro")

	v.SetDefault("receipt.ai_text", false)
	v.SetDefault("receipt.max_prompt_tokens", 2000)

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.host", "")
	v.SetDefault("notify.email.port", 587)
	v.SetDefault("notify.email.username", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.secret", "")
	v.SetDefault("notify.slack.enabled", false)
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.slack.channel", "#budget-alerts")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai, gemini or empty, got %q", c.LLM.Provider)
	}
	if _, err := ParseWeekday(c.Schedule.SummaryWeekday); err != nil {
		return err
	}
	if c.Schedule.SummaryHour < 0 || c.Schedule.SummaryHour > 23 {
		return fmt.Errorf("schedule.summary_hour must be 0-23, got %d", c.Schedule.SummaryHour)
	}
	if c.Schedule.Enabled && c.Schedule.SweepInterval <= 0 {
		return fmt.Errorf("schedule.sweep_interval must be positive")
	}
	return nil
}

// ParseWeekday parses an English weekday name such as "monday" or "Mon".
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// NewLogger builds the structured logger described by the logging section.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
