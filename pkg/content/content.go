// Package content renders alert and summary messages, using a text-generation
// backend when one is configured and an offline template otherwise.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// Kind selects which message is generated.
type Kind string

const (
	KindSingleAlert   Kind = "single_alert"
	KindWeeklySummary Kind = "weekly_summary"
)

// Content sources.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// DefaultCurrency is the symbol used when a payload does not name one.
const DefaultCurrency = "₹"

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 10 * time.Second

// Content is a rendered subject and HTML body.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Source  string `json:"source"`
}

// AlertPayload describes one budget crossing a threshold.
type AlertPayload struct {
	Category   string
	Spent      decimal.Decimal
	Total      decimal.Decimal
	Percentage float64
	Bucket     model.Bucket
	Currency   string
}

// SummaryPayload holds all of a user's budgets for the weekly summary.
type SummaryPayload struct {
	UserID   string
	Budgets  []model.Budget
	Currency string
}

// Generator produces alert and summary content. A nil backend always uses
// the offline templates.
type Generator struct {
	backend llm.TextGenerator
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenerator creates a generator. A non-positive timeout uses DefaultTimeout.
func NewGenerator(backend llm.TextGenerator, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{backend: backend, timeout: timeout, logger: logger}
}

// Generate dispatches on kind. It fails only when payload does not match kind;
// backend failures are absorbed by the fallback templates.
func (g *Generator) Generate(ctx context.Context, kind Kind, payload any) (Content, error) {
	switch kind {
	case KindSingleAlert:
		p, ok := payload.(AlertPayload)
		if !ok {
			return Content{}, fmt.Errorf("%w: %s expects AlertPayload, got %T", model.ErrInvalidInput, kind, payload)
		}
		return g.GenerateAlert(ctx, p), nil
	case KindWeeklySummary:
		p, ok := payload.(SummaryPayload)
		if !ok {
			return Content{}, fmt.Errorf("%w: %s expects SummaryPayload, got %T", model.ErrInvalidInput, kind, payload)
		}
		return g.GenerateSummary(ctx, p), nil
	default:
		return Content{}, fmt.Errorf("%w: unknown content kind %q", model.ErrInvalidInput, kind)
	}
}

// GenerateAlert renders a single-budget alert.
func (g *Generator) GenerateAlert(ctx context.Context, p AlertPayload) Content {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	req := llm.Request{
		Purpose:     "alert",
		System:      alertSystemPrompt,
		Prompt:      alertPrompt(p),
		JSON:        true,
		MaxTokens:   600,
		Temperature: llm.Temperature(0.7),
	}
	if c, ok := g.tryBackend(ctx, req, "category", p.Category); ok {
		return c
	}
	return FallbackAlert(p)
}

// GenerateSummary renders the weekly summary for one user.
func (g *Generator) GenerateSummary(ctx context.Context, p SummaryPayload) Content {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	stats := ComputeSummaryStats(p.Budgets)
	req := llm.Request{
		Purpose:     "summary",
		System:      summarySystemPrompt,
		Prompt:      summaryPrompt(p, stats),
		JSON:        true,
		MaxTokens:   900,
		Temperature: llm.Temperature(0.7),
	}
	if c, ok := g.tryBackend(ctx, req, "user", p.UserID); ok {
		return c
	}
	return FallbackSummary(p.Currency, stats)
}

type aiContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// tryBackend makes a single bounded attempt and reports whether the answer
// was usable.
func (g *Generator) tryBackend(ctx context.Context, req llm.Request, logKey, logVal string) (c Content, ok bool) {
	if g.backend == nil {
		return Content{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("content backend panicked", logKey, logVal, "panic", r)
			c, ok = Content{}, false
		}
	}()

	resp, err := g.backend.Generate(ctx, req)
	if err != nil {
		g.logger.Warn("content generation failed, using fallback", logKey, logVal, "purpose", req.Purpose, "error", err)
		return Content{}, false
	}

	var out aiContent
	if err := llm.DecodeJSON(resp.Text, &out); err != nil {
		g.logger.Warn("unparseable content, using fallback", logKey, logVal, "purpose", req.Purpose, "error", err)
		return Content{}, false
	}
	out.Subject = strings.TrimSpace(out.Subject)
	out.Body = strings.TrimSpace(out.Body)
	if out.Subject == "" || out.Body == "" {
		g.logger.Warn("incomplete content, using fallback", logKey, logVal, "purpose", req.Purpose)
		return Content{}, false
	}
	return Content{Subject: out.Subject, Body: out.Body, Source: SourceAI}, true
}

// FormatMoney renders an amount with a currency symbol and thousands separators.
func FormatMoney(currency string, amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return currency + humanize.FormatFloat("#,###.##", f)
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
