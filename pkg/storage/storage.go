package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAlert is returned when an alert for the same budget and
	// bucket was already recorded inside the cooldown window.
	ErrDuplicateAlert = errors.New("alert already recorded within cooldown window")
)

// Storage defines the persistence layer for budgets, alerts and notifications.
type Storage interface {
	// SetBudget creates or updates a budget. A budget without an ID replaces
	// the existing budget with the same user and category.
	SetBudget(ctx context.Context, budget *model.Budget) error

	// GetBudget retrieves a budget by ID.
	GetBudget(ctx context.Context, id string) (*model.Budget, error)

	// ListBudgets returns budgets matching the filter ordered by user and category.
	ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error)

	// DeleteBudget removes a budget.
	DeleteBudget(ctx context.Context, id string) error

	// AddSpend adds amount to every budget of the user whose category matches
	// case-insensitively and returns the updated budgets.
	AddSpend(ctx context.Context, userID, category string, amount decimal.Decimal) ([]model.Budget, error)

	// SetContact stores the email address alerts for a user are sent to.
	SetContact(ctx context.Context, userID, email string) error

	// ContactEmail returns the user's address, or ErrNotFound.
	ContactEmail(ctx context.Context, userID string) (string, error)

	// AlertHistory returns the alert events of a budget, newest first.
	AlertHistory(ctx context.Context, budgetID string) ([]model.AlertEvent, error)

	// InsertAlertEvent appends an alert event unless one with the same budget
	// and bucket exists within cooldown of event.CreatedAt, in which case it
	// returns ErrDuplicateAlert. The check and insert are one statement.
	InsertAlertEvent(ctx context.Context, event *model.AlertEvent, cooldown time.Duration) error

	// ListAlertEvents returns alert events matching the filter, newest first.
	ListAlertEvents(ctx context.Context, filter model.AlertFilter) ([]model.AlertEvent, error)

	// InsertNotification persists an in-app notification.
	InsertNotification(ctx context.Context, n *model.Notification) error

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)

	// MarkNotificationRead flags a notification as read.
	MarkNotificationRead(ctx context.Context, id string) error

	// RecordUsage persists a metered text-generation call.
	RecordUsage(ctx context.Context, record *model.UsageRecord) error

	// AggregateUsage totals metered calls for a filter.
	AggregateUsage(ctx context.Context, filter model.UsageFilter) (*model.UsageSummary, error)

	// Close releases resources.
	Close() error
}
