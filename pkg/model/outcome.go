package model

// DispatchStatus is the result of processing one budget or one user summary.
type DispatchStatus string

const (
	StatusSent            DispatchStatus = "sent"
	StatusSkipped         DispatchStatus = "skipped"
	StatusSkippedCooldown DispatchStatus = "skipped_cooldown"
	StatusError           DispatchStatus = "error"
)

// AlertOutcome reports what happened to a single budget during dispatch.
type AlertOutcome struct {
	BudgetID      string         `json:"budget_id"`
	UserID        string         `json:"user_id"`
	Category      string         `json:"category"`
	Status        DispatchStatus `json:"status"`
	Bucket        Bucket         `json:"bucket"`
	Percentage    float64        `json:"percentage"`
	ContentSource string         `json:"content_source,omitempty"`
	EmailSentTo   string         `json:"email_sent_to,omitempty"`
	Err           error          `json:"-"`
	Error         string         `json:"error,omitempty"`
}

// SummaryOutcome reports the weekly summary result for one user.
type SummaryOutcome struct {
	UserID        string         `json:"user_id"`
	Email         string         `json:"email,omitempty"`
	BudgetCount   int            `json:"budget_count"`
	Status        DispatchStatus `json:"status"`
	ContentSource string         `json:"content_source,omitempty"`
	Err           error          `json:"-"`
	Error         string         `json:"error,omitempty"`
}
