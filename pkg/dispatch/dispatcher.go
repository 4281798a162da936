// Package dispatch turns budget snapshots into delivered and recorded alerts.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/budget-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/notify"
	"github.com/ogulcanaydogan/budget-guardian/pkg/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent budget processing in a batch.
const DefaultWorkers = 4

// Store and delivery steps run on their own deadlines, detached from the
// caller's context. Only content generation is bound by the caller.
const (
	StoreTimeout    = 5 * time.Second
	DeliveryTimeout = 30 * time.Second
)

// Store is the persistence the dispatcher needs.
type Store interface {
	GetBudget(ctx context.Context, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error)
	AddSpend(ctx context.Context, userID, category string, amount decimal.Decimal) ([]model.Budget, error)
	ContactEmail(ctx context.Context, userID string) (string, error)
	AlertHistory(ctx context.Context, budgetID string) ([]model.AlertEvent, error)
	InsertAlertEvent(ctx context.Context, event *model.AlertEvent, cooldown time.Duration) error
	InsertNotification(ctx context.Context, n *model.Notification) error
}

// ContentGenerator renders alert and summary messages.
type ContentGenerator interface {
	GenerateAlert(ctx context.Context, p content.AlertPayload) content.Content
	GenerateSummary(ctx context.Context, p content.SummaryPayload) content.Content
}

// Config tunes the dispatcher.
type Config struct {
	Cooldown time.Duration
	Workers  int
	Currency string
}

// Dispatcher runs evaluate, dedupe, generate, record and deliver for budgets.
type Dispatcher struct {
	store    Store
	content  ContentGenerator
	notifier notify.Notifier
	dedup    *alerting.Deduplicator
	workers  int
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a dispatcher.
func New(store Store, gen ContentGenerator, notifier notify.Notifier, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Currency == "" {
		cfg.Currency = content.DefaultCurrency
	}
	return &Dispatcher{
		store:    store,
		content:  gen,
		notifier: notifier,
		dedup:    alerting.NewDeduplicator(cfg.Cooldown),
		workers:  cfg.Workers,
		currency: cfg.Currency,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Request asks for a single-budget alert. With only BudgetID set the budget
// is loaded from the store; with UserID and Category set the request itself
// is the snapshot.
type Request struct {
	BudgetID string           `json:"budget_id" validate:"required"`
	UserID   string           `json:"user_id" validate:"required_with=Category"`
	Category string           `json:"category" validate:"required_with=UserID"`
	Spent    *decimal.Decimal `json:"spent,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
	Email    string           `json:"email,omitempty" validate:"omitempty,email"`
}

// Dispatch validates a request and processes its budget. Invalid requests
// fail before any processing; everything after that is reported in the
// outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (model.AlertOutcome, error) {
	if err := Validate(req); err != nil {
		return model.AlertOutcome{}, err
	}

	var b model.Budget
	if req.UserID == "" {
		stored, err := d.store.GetBudget(ctx, req.BudgetID)
		if err != nil {
			return model.AlertOutcome{}, fmt.Errorf("load budget %s: %w", req.BudgetID, err)
		}
		b = *stored
	} else {
		if req.Total == nil {
			return model.AlertOutcome{}, fmt.Errorf("%w: total is required for a budget snapshot", model.ErrInvalidInput)
		}
		b = model.Budget{ID: req.BudgetID, UserID: req.UserID, Category: req.Category, Total: *req.Total}
		if req.Spent != nil {
			b.Spent = *req.Spent
		}
	}
	return d.process(ctx, b, req.Email), nil
}

// ProcessBudget alerts on one budget, resolving the address from the
// contact directory.
func (d *Dispatcher) ProcessBudget(ctx context.Context, b model.Budget) model.AlertOutcome {
	return d.process(ctx, b, "")
}

// ProcessAllBudgets processes budgets independently with bounded
// concurrency. Results are in input order, one per budget.
func (d *Dispatcher) ProcessAllBudgets(ctx context.Context, budgets []model.Budget) []model.AlertOutcome {
	outcomes := make([]model.AlertOutcome, len(budgets))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, b := range budgets {
		g.Go(func() error {
			outcomes[i] = d.ProcessBudget(ctx, b)
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[model.DispatchStatus]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	d.logger.Info("budget sweep finished",
		"budgets", len(budgets),
		"sent", counts[model.StatusSent],
		"skipped", counts[model.StatusSkipped],
		"cooldown", counts[model.StatusSkippedCooldown],
		"errors", counts[model.StatusError],
	)
	return outcomes
}

// Sweep loads every budget and processes them.
func (d *Dispatcher) Sweep(ctx context.Context) ([]model.AlertOutcome, error) {
	budgets, err := d.store.ListBudgets(ctx, model.BudgetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return d.ProcessAllBudgets(ctx, budgets), nil
}

// RecordTransaction adds a transaction's amount to the matching budgets and
// alerts on each of them.
func (d *Dispatcher) RecordTransaction(ctx context.Context, tx model.Transaction) ([]model.AlertOutcome, error) {
	if err := Validate(tx); err != nil {
		return nil, err
	}
	budgets, err := d.store.AddSpend(ctx, tx.UserID, tx.Category, tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("add spend: %w", err)
	}
	d.logger.Info("transaction recorded",
		"user", tx.UserID, "category", tx.Category, "amount", tx.Amount.String(), "budgets", len(budgets))
	if len(budgets) == 0 {
		return []model.AlertOutcome{}, nil
	}
	return d.ProcessAllBudgets(ctx, budgets), nil
}

func (d *Dispatcher) process(ctx context.Context, b model.Budget, email string) (out model.AlertOutcome) {
	out = model.AlertOutcome{BudgetID: b.ID, UserID: b.UserID, Category: b.Category}
	defer func() {
		if r := recover(); r != nil {
			out = d.fail(out, fmt.Errorf("panic while processing budget: %v", r))
		}
	}()

	eval := alerting.EvaluateBudget(b)
	out.Bucket, out.Percentage = eval.Bucket, eval.Percentage
	if !eval.Bucket.Alertable() {
		out.Status = model.StatusSkipped
		d.logger.Debug("budget below alert threshold", "budget", b.ID, "bucket", eval.Bucket.String())
		return out
	}

	lookupCtx, cancel := detach(ctx, StoreTimeout)
	defer cancel()

	history, err := d.store.AlertHistory(lookupCtx, b.ID)
	if err != nil {
		return d.fail(out, fmt.Errorf("load alert history: %w", err))
	}
	now := d.now()
	if !d.dedup.ShouldAlert(b.ID, eval.Bucket, history, now) {
		out.Status = model.StatusSkippedCooldown
		d.logger.Debug("alert suppressed by cooldown", "budget", b.ID, "bucket", eval.Bucket.String())
		return out
	}

	if email == "" {
		email, err = d.contactEmail(lookupCtx, b.UserID)
		if err != nil {
			return d.fail(out, err)
		}
	}

	payload := content.AlertPayload{
		Category:   b.Category,
		Spent:      b.Spent,
		Total:      b.Total,
		Percentage: eval.Percentage,
		Bucket:     eval.Bucket,
		Currency:   d.currency,
	}
	c := d.renderAlert(ctx, payload)
	out.ContentSource = c.Source

	// Recording the event first is the claim on (budget, bucket): of two
	// concurrent dispatches only one insert succeeds.
	event := &model.AlertEvent{
		ID:             uuid.New().String(),
		UserID:         b.UserID,
		BudgetID:       b.ID,
		Category:       b.Category,
		Bucket:         eval.Bucket,
		PercentageUsed: eval.Percentage,
		EmailSentTo:    email,
		CreatedAt:      now,
	}
	if err := d.insertAlertEvent(ctx, event); err != nil {
		if errors.Is(err, storage.ErrDuplicateAlert) {
			out.Status = model.StatusSkippedCooldown
			d.logger.Debug("alert claimed by another dispatch", "budget", b.ID, "bucket", eval.Bucket.String())
			return out
		}
		return d.fail(out, fmt.Errorf("record alert event: %w", err))
	}
	out.EmailSentTo = email

	d.deliver(ctx, notify.Message{
		Kind:       notify.KindAlert,
		UserID:     b.UserID,
		To:         email,
		Subject:    c.Subject,
		HTMLBody:   c.Body,
		Level:      eval.Bucket.Level(),
		BudgetID:   b.ID,
		Category:   b.Category,
		Percentage: eval.Percentage,
	})

	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    b.UserID,
		Title:     AlertTitle(eval.Bucket),
		Message:   fmt.Sprintf("Your %s budget is at %.0f%% utilization.", b.Category, eval.Percentage),
		CreatedAt: now,
	}
	if err := d.insertNotification(ctx, n); err != nil {
		return d.fail(out, fmt.Errorf("record notification: %w", err))
	}

	out.Status = model.StatusSent
	d.logger.Info("budget alert sent",
		"budget", b.ID,
		"user", b.UserID,
		"category", b.Category,
		"bucket", eval.Bucket.String(),
		"percentage", eval.Percentage,
		"source", c.Source,
	)
	return out
}

// AlertTitle is the in-app notification title for a bucket.
func AlertTitle(b model.Bucket) string {
	switch b {
	case model.BucketExceeded:
		return "Exceeded: Budget Alert"
	case model.BucketCritical:
		return "Critical: Budget Alert"
	default:
		return "Warning: Budget Alert"
	}
}

// contactEmail resolves a user's address. A missing entry is not an error.
func (d *Dispatcher) contactEmail(ctx context.Context, userID string) (string, error) {
	email, err := d.store.ContactEmail(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		d.logger.Warn("no contact address for user; email skipped", "user", userID)
		return "", nil
	case err != nil:
		return "", fmt.Errorf("resolve contact for %s: %w", userID, err)
	}
	return email, nil
}

// renderAlert never fails: a misbehaving generator yields the offline template.
func (d *Dispatcher) renderAlert(ctx context.Context, p content.AlertPayload) (c content.Content) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("content generator panicked", "category", p.Category, "panic", r)
			c = content.FallbackAlert(p)
		}
	}()
	c = d.content.GenerateAlert(ctx, p)
	if c.Subject == "" || c.Body == "" {
		return content.FallbackAlert(p)
	}
	return c
}

// detach gives a step its own deadline while keeping the caller's values.
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (d *Dispatcher) insertAlertEvent(ctx context.Context, event *model.AlertEvent) error {
	ctx, cancel := detach(ctx, StoreTimeout)
	defer cancel()
	return d.store.InsertAlertEvent(ctx, event, d.dedup.Cooldown())
}

func (d *Dispatcher) insertNotification(ctx context.Context, n *model.Notification) error {
	ctx, cancel := detach(ctx, StoreTimeout)
	defer cancel()
	return d.store.InsertNotification(ctx, n)
}

// deliver sends a message. Failures are logged and never block persistence.
func (d *Dispatcher) deliver(ctx context.Context, msg notify.Message) {
	ctx, cancel := detach(ctx, DeliveryTimeout)
	defer cancel()
	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Warn("delivery incomplete", "kind", msg.Kind, "user", msg.UserID, "budget", msg.BudgetID, "error", err)
	}
}

func (d *Dispatcher) fail(out model.AlertOutcome, err error) model.AlertOutcome {
	out.Status = model.StatusError
	out.Err = err
	out.Error = err.Error()
	d.logger.Error("budget dispatch failed", "budget", out.BudgetID, "user", out.UserID, "error", err)
	return out
}
