package model

import "time"

// UsageRecord is one metered call to a text-generation backend.
type UsageRecord struct {
	ID           string    `json:"id" db:"id"`
	Provider     string    `json:"provider" db:"provider"`
	Model        string    `json:"model" db:"model"`
	Purpose      string    `json:"purpose" db:"purpose"`
	InputTokens  int64     `json:"input_tokens" db:"input_tokens"`
	OutputTokens int64     `json:"output_tokens" db:"output_tokens"`
	CostUSD      float64   `json:"cost_usd" db:"cost_usd"`
	Estimated    bool      `json:"estimated" db:"estimated"`
	Failed       bool      `json:"failed" db:"failed"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// UsageFilter narrows usage reports.
type UsageFilter struct {
	Provider  string
	Purpose   string
	StartTime time.Time
	EndTime   time.Time
}

// UsageSummary aggregates metered calls.
type UsageSummary struct {
	TotalCostUSD      float64            `json:"total_cost_usd"`
	TotalInputTokens  int64              `json:"total_input_tokens"`
	TotalOutputTokens int64              `json:"total_output_tokens"`
	CallCount         int64              `json:"call_count"`
	FailedCount       int64              `json:"failed_count"`
	ByPurpose         map[string]float64 `json:"by_purpose"`
}
