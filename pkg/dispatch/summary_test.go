package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByUser(t *testing.T) {
	users, byUser := dispatch.GroupByUser([]model.Budget{
		{UserID: "u2", Category: "Food"},
		{UserID: "u1", Category: "Rent"},
		{UserID: "u2", Category: "Travel"},
	})
	assert.Equal(t, []string{"u2", "u1"}, users)
	assert.Len(t, byUser["u2"], 2)
	assert.Len(t, byUser["u1"], 1)
}

func TestProcessWeeklySummaries_OnePerUser(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.db.SetContact(ctx, "u1", "priya@example.com"))

	budgets := []model.Budget{
		h.budget(t, "u1", "Food", 450, 500),
		h.budget(t, "u1", "Rent", 0, 1500),
		h.budget(t, "u2", "Travel", 100, 500),
	}

	outcomes := h.d.ProcessWeeklySummaries(ctx, budgets)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "u1", outcomes[0].UserID)
	assert.Equal(t, model.StatusSent, outcomes[0].Status)
	assert.Equal(t, "priya@example.com", outcomes[0].Email)
	assert.Equal(t, 2, outcomes[0].BudgetCount)
	assert.Equal(t, content.SourceFallback, outcomes[0].ContentSource)

	assert.Equal(t, "u2", outcomes[1].UserID)
	assert.Equal(t, model.StatusSent, outcomes[1].Status)
	assert.Empty(t, outcomes[1].Email)

	for _, user := range []string{"u1", "u2"} {
		ns, err := h.db.ListNotifications(ctx, user, false)
		require.NoError(t, err)
		require.Len(t, ns, 1, user)
		assert.Equal(t, dispatch.SummaryTitle, ns[0].Title)
		assert.Equal(t, dispatch.SummaryMessage, ns[0].Message)
	}

	// Summaries are not alerts.
	events, err := h.db.ListAlertEvents(ctx, model.AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	msgs := h.notifier.sent()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, notify.KindSummary, m.Kind)
	}
}

func TestProcessWeeklySummaries_GeneratorPanic(t *testing.T) {
	h := newHarness(t, nil)
	d := dispatch.New(h.db, panickingContent{}, h.notifier, dispatch.Config{Currency: "$"}, quietLogger())

	outcomes := d.ProcessWeeklySummaries(context.Background(), []model.Budget{h.budget(t, "u1", "Food", 450, 500)})
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.StatusSent, outcomes[0].Status)
	assert.Equal(t, content.SourceFallback, outcomes[0].ContentSource)

	msgs := h.notifier.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].HTMLBody, "$450.00")
}

func TestProcessWeeklySummaries_PersistenceError(t *testing.T) {
	h := newHarness(t, nil)
	store := &failingStore{Store: h.db, failUser: "u1"}
	d := dispatch.New(store, content.NewGenerator(nil, 0, quietLogger()), h.notifier, dispatch.Config{}, quietLogger())

	outcomes := d.ProcessWeeklySummaries(context.Background(), []model.Budget{
		h.budget(t, "u1", "Food", 450, 500),
		h.budget(t, "u2", "Food", 10, 500),
	})
	require.Len(t, outcomes, 2)
	assert.Equal(t, model.StatusError, outcomes[0].Status)
	assert.Equal(t, model.StatusSent, outcomes[1].Status)
}

func TestWeeklySummaries_Empty(t *testing.T) {
	h := newHarness(t, nil)
	outcomes, err := h.d.WeeklySummaries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestProcessWeeklySummaries_ExpiredContextStillRecords(t *testing.T) {
	h := newHarness(t, hangingBackend{})
	require.NoError(t, h.db.SetContact(context.Background(), "u1", "priya@example.com"))
	budgets := []model.Budget{h.budget(t, "u1", "Food", 450, 500)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcomes := h.d.ProcessWeeklySummaries(ctx, budgets)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.StatusSent, outcomes[0].Status, outcomes[0].Error)
	assert.Equal(t, "priya@example.com", outcomes[0].Email)
	assert.Equal(t, content.SourceFallback, outcomes[0].ContentSource)

	_, notifications := h.counts(t, "u1")
	assert.Equal(t, 1, notifications)
}
