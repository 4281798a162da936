package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/notify"
	"golang.org/x/sync/errgroup"
)

// Summary notification text.
const (
	SummaryTitle   = "Weekly Budget Summary"
	SummaryMessage = "Your weekly budget summary is ready."
)

// GroupByUser splits budgets per user, keeping users in first-seen order.
func GroupByUser(budgets []model.Budget) (users []string, byUser map[string][]model.Budget) {
	byUser = make(map[string][]model.Budget)
	for _, b := range budgets {
		if _, ok := byUser[b.UserID]; !ok {
			users = append(users, b.UserID)
		}
		byUser[b.UserID] = append(byUser[b.UserID], b)
	}
	return users, byUser
}

// ProcessWeeklySummaries sends one summary per user covering all of that
// user's budgets. Results are in first-seen user order.
func (d *Dispatcher) ProcessWeeklySummaries(ctx context.Context, budgets []model.Budget) []model.SummaryOutcome {
	users, byUser := GroupByUser(budgets)
	outcomes := make([]model.SummaryOutcome, len(users))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, userID := range users {
		g.Go(func() error {
			outcomes[i] = d.processSummary(ctx, userID, byUser[userID])
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("weekly summaries finished", "users", len(users), "budgets", len(budgets))
	return outcomes
}

// WeeklySummaries loads every budget and sends the weekly summaries.
func (d *Dispatcher) WeeklySummaries(ctx context.Context) ([]model.SummaryOutcome, error) {
	budgets, err := d.store.ListBudgets(ctx, model.BudgetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return d.ProcessWeeklySummaries(ctx, budgets), nil
}

func (d *Dispatcher) processSummary(ctx context.Context, userID string, budgets []model.Budget) (out model.SummaryOutcome) {
	out = model.SummaryOutcome{UserID: userID, BudgetCount: len(budgets)}
	defer func() {
		if r := recover(); r != nil {
			out = d.failSummary(out, fmt.Errorf("panic while processing summary: %v", r))
		}
	}()

	lookupCtx, cancel := detach(ctx, StoreTimeout)
	email, err := d.contactEmail(lookupCtx, userID)
	cancel()
	if err != nil {
		return d.failSummary(out, err)
	}
	out.Email = email

	c := d.renderSummary(ctx, content.SummaryPayload{UserID: userID, Budgets: budgets, Currency: d.currency})
	out.ContentSource = c.Source

	d.deliver(ctx, notify.Message{
		Kind:     notify.KindSummary,
		UserID:   userID,
		To:       email,
		Subject:  c.Subject,
		HTMLBody: c.Body,
	})

	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     SummaryTitle,
		Message:   SummaryMessage,
		CreatedAt: d.now(),
	}
	if err := d.insertNotification(ctx, n); err != nil {
		return d.failSummary(out, fmt.Errorf("record notification: %w", err))
	}

	out.Status = model.StatusSent
	d.logger.Info("weekly summary sent", "user", userID, "budgets", len(budgets), "source", c.Source)
	return out
}

func (d *Dispatcher) renderSummary(ctx context.Context, p content.SummaryPayload) (c content.Content) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("content generator panicked", "user", p.UserID, "panic", r)
			c = content.FallbackSummary(p.Currency, content.ComputeSummaryStats(p.Budgets))
		}
	}()
	c = d.content.GenerateSummary(ctx, p)
	if c.Subject == "" || c.Body == "" {
		return content.FallbackSummary(p.Currency, content.ComputeSummaryStats(p.Budgets))
	}
	return c
}

func (d *Dispatcher) failSummary(out model.SummaryOutcome, err error) model.SummaryOutcome {
	out.Status = model.StatusError
	out.Err = err
	out.Error = err.Error()
	d.logger.Error("weekly summary failed", "user", out.UserID, "error", err)
	return out
}
