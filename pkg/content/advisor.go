package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// ApologyMessage is returned when no advice could be generated.
const ApologyMessage = "I apologize, but I'm unable to provide financial advice at the moment. Please try again later."

const advisorSystemPrompt = `You are a professional financial advisor.
Your goal is to provide accurate, personalized financial advice based on the user's query.
Focus on actionable insights and practical recommendations related to:
- Budgeting strategies
- Investment planning
- Debt management
- Saving techniques
- Retirement planning
- Tax optimization
- Financial goal setting
Keep your responses informative, concise, and tailored to the specific financial topic.`

// Advice is the advisor's answer to one query.
type Advice struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

// Advisor answers free-form personal finance questions.
type Advisor struct {
	backend llm.TextGenerator
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdvisor creates an advisor. Without a backend every answer is the apology.
func NewAdvisor(backend llm.TextGenerator, timeout time.Duration, logger *slog.Logger) *Advisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Advisor{backend: backend, timeout: timeout, logger: logger}
}

// Advise answers query. Only an empty query is an error.
func (a *Advisor) Advise(ctx context.Context, query string) (Advice, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Advice{}, fmt.Errorf("%w: query is required", model.ErrInvalidInput)
	}
	if a.backend == nil {
		return Advice{Response: ApologyMessage, Source: SourceFallback}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.backend.Generate(ctx, llm.Request{
		Purpose:     "advice",
		System:      advisorSystemPrompt,
		Prompt:      query,
		MaxTokens:   1024,
		Temperature: llm.Temperature(0.4),
	})
	if err != nil {
		a.logger.Warn("advice generation failed", "error", err)
		return Advice{Response: ApologyMessage, Source: SourceFallback}, nil
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Advice{Response: ApologyMessage, Source: SourceFallback}, nil
	}
	return Advice{Response: text, Source: SourceAI}, nil
}
