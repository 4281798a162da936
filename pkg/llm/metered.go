package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/tokenizer"
)

// UsageRecorder persists metered calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, record *model.UsageRecord) error
}

// Metered wraps a backend and records tokens and cost for every call.
type Metered struct {
	next     TextGenerator
	pricing  *PricingTable
	recorder UsageRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewMetered wraps next. A nil recorder only logs.
func NewMetered(next TextGenerator, pricing *PricingTable, recorder UsageRecorder, logger *slog.Logger) *Metered {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Metered{
		next:     next,
		pricing:  pricing,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Metered) Name() string { return m.next.Name() }

func (m *Metered) Generate(ctx context.Context, req Request) (*Response, error) {
	start := m.now()
	resp, err := m.next.Generate(ctx, req)

	record := &model.UsageRecord{
		Provider:  m.next.Name(),
		Purpose:   req.Purpose,
		Failed:    err != nil,
		Timestamp: start,
	}
	if err == nil {
		record.Model = resp.Model
		usage := resp.Usage
		if usage.InputTokens == 0 && usage.OutputTokens == 0 {
			usage = m.estimate(req, resp)
			record.Estimated = true
		}
		record.InputTokens = usage.InputTokens
		record.OutputTokens = usage.OutputTokens
		record.CostUSD, _ = m.pricing.Cost(record.Provider, record.Model, usage)
	}

	m.logger.Info("llm call",
		"provider", record.Provider,
		"model", record.Model,
		"purpose", record.Purpose,
		"input_tokens", record.InputTokens,
		"output_tokens", record.OutputTokens,
		"cost_usd", record.CostUSD,
		"estimated", record.Estimated,
		"duration", m.now().Sub(start),
		"error", err,
	)

	if m.recorder != nil {
		// Recorded with a fresh context so a timed-out call still shows up.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if rerr := m.recorder.RecordUsage(recCtx, record); rerr != nil {
			m.logger.Warn("record llm usage", "error", rerr)
		}
		cancel()
	}

	return resp, err
}

func (m *Metered) estimate(req Request, resp *Response) Usage {
	provider := m.next.Name()
	in, err := tokenizer.CountPromptTokens(req.System, req.Prompt, provider, resp.Model)
	if err != nil {
		m.logger.Debug("estimate input tokens", "error", err)
	}
	out, err := tokenizer.CountTokens(resp.Text, provider, resp.Model)
	if err != nil {
		m.logger.Debug("estimate output tokens", "error", err)
	}
	return Usage{InputTokens: in, OutputTokens: out}
}
