package model

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput marks a request rejected before any processing.
var ErrInvalidInput = errors.New("invalid input")

// BudgetPeriod defines the time window a budget covers.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
)

// Budget is a spending ceiling for one category of one user.
type Budget struct {
	ID        string          `json:"id" yaml:"id" db:"id"`
	UserID    string          `json:"user_id" yaml:"user_id" db:"user_id" validate:"required"`
	Category  string          `json:"category" yaml:"category" db:"category" validate:"required"`
	Total     decimal.Decimal `json:"total" yaml:"total" db:"total" validate:"gt=0"`
	Spent     decimal.Decimal `json:"spent" yaml:"spent" db:"spent" validate:"gte=0"`
	Period    BudgetPeriod    `json:"period" yaml:"period" db:"period" validate:"omitempty,budget_period"`
	CreatedAt time.Time       `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"-" db:"updated_at"`
}

// Bucket is the discretized alert tier derived from a utilization percentage.
type Bucket int

const (
	BucketNotApplicable Bucket = -1
	BucketNone          Bucket = 0
	BucketWarning       Bucket = 75
	BucketCritical      Bucket = 90
	BucketExceeded      Bucket = 100
)

func (b Bucket) String() string {
	switch b {
	case BucketNotApplicable:
		return "not_applicable"
	case BucketNone:
		return "none"
	default:
		return strconv.Itoa(int(b))
	}
}

// Alertable reports whether the bucket warrants an alert.
func (b Bucket) Alertable() bool {
	return b == BucketWarning || b == BucketCritical || b == BucketExceeded
}

// Level returns the severity name for an alertable bucket.
func (b Bucket) Level() AlertLevel {
	switch b {
	case BucketExceeded:
		return AlertExceeded
	case BucketCritical:
		return AlertCritical
	case BucketWarning:
		return AlertWarning
	default:
		return AlertHealthy
	}
}

// AlertLevel indicates the severity of a budget alert.
type AlertLevel string

const (
	AlertHealthy  AlertLevel = "healthy"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
	AlertExceeded AlertLevel = "exceeded"
)

// AlertEvent is one outbound alert. Events are append-only.
type AlertEvent struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	BudgetID       string    `json:"budget_id" db:"budget_id"`
	Category       string    `json:"category" db:"category"`
	Bucket         Bucket    `json:"percentage_used_bucket" db:"bucket"`
	PercentageUsed float64   `json:"percentage_used" db:"percentage_used"`
	EmailSentTo    string    `json:"email_sent_to" db:"email_sent_to"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Notification is an in-app record shown to the user.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Transaction is a posted expense that counts against matching budgets.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
}

// ReceiptItem is a single purchased line on a receipt.
type ReceiptItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ReceiptExtraction holds the fields parsed from a scanned receipt.
type ReceiptExtraction struct {
	StoreName   string          `json:"storeName"`
	Date        string          `json:"date"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []ReceiptItem   `json:"items"`
	Source      string          `json:"source,omitempty"`
}

// BudgetFilter narrows budget listings.
type BudgetFilter struct {
	UserID   string
	Category string
}

// AlertFilter narrows alert history queries.
type AlertFilter struct {
	UserID   string
	BudgetID string
	Since    time.Time
}

// PeriodBounds returns the start and end of the period containing now.
func PeriodBounds(period BudgetPeriod, now time.Time) (start, end time.Time) {
	now = now.UTC()
	switch period {
	case PeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 7)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	return start, end
}
