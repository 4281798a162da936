package content_test

import (
	"context"
	"errors"
	"html"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func budget(category string, spent, total int64) model.Budget {
	return model.Budget{UserID: "u1", Category: category, Spent: decimal.NewFromInt(spent), Total: decimal.NewFromInt(total)}
}

func TestComputeSummaryStats(t *testing.T) {
	stats := content.ComputeSummaryStats([]model.Budget{
		budget("Food", 450, 500),     // 90%
		budget("Rent", 0, 1500),      // 0%
		budget("Travel", 400, 500),   // 80%
		budget("Shopping", 600, 500), // 120%
		budget("Misc", 10, 0),        // not applicable
	})

	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(1460)))
	assert.True(t, stats.TotalBudget.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, []string{"Food", "Shopping"}, stats.Overspent)
	assert.Equal(t, []string{"Rent"}, stats.Healthy)
	assert.Len(t, stats.Lines, 5)
	assert.Equal(t, "Shopping", stats.Lines[0].Category)
	assert.Equal(t, model.AlertExceeded, stats.Lines[0].Level)
	assert.InDelta(t, 1460.0/3000*100, stats.OverallPercentage(), 1e-9)
}

func TestComputeSummaryStats_Empty(t *testing.T) {
	stats := content.ComputeSummaryStats(nil)
	assert.True(t, stats.TotalSpent.IsZero())
	assert.Empty(t, stats.Overspent)
	assert.Zero(t, stats.OverallPercentage())
}

func TestGenerateSummary_AIPromptCarriesAggregates(t *testing.T) {
	backend := &fakeBackend{text: `{"subject": "Your week", "body": "<p>ok</p>"}`}
	g := content.NewGenerator(backend, time.Second, quietLogger())

	c := g.GenerateSummary(context.Background(), content.SummaryPayload{
		UserID:  "u1",
		Budgets: []model.Budget{budget("Food", 450, 500), budget("Rent", 0, 1500)},
	})
	assert.Equal(t, content.SourceAI, c.Source)
	assert.Equal(t, "summary", backend.last.Purpose)
	assert.Contains(t, backend.last.Prompt, "Total spent: ₹450.00")
	assert.Contains(t, backend.last.Prompt, "Total budget: ₹2,000.00")
	assert.Contains(t, backend.last.Prompt, "Overspent categories (90% or more): Food")
	assert.Contains(t, backend.last.Prompt, "Healthy categories (under 75%): Rent")
}

func TestGenerateSummary_Fallback(t *testing.T) {
	g := content.NewGenerator(&fakeBackend{err: errors.New("down")}, time.Second, quietLogger())

	c := g.GenerateSummary(context.Background(), content.SummaryPayload{
		UserID:   "u1",
		Currency: "$",
		Budgets:  []model.Budget{budget("Food", 450, 500), budget("Rent", 0, 1500)},
	})
	assert.Equal(t, content.SourceFallback, c.Source)
	assert.Equal(t, "Your weekly budget summary: 1 category needs attention", c.Subject)
	assert.Contains(t, c.Body, "$450.00")
	assert.Contains(t, c.Body, "$2,000.00")
	assert.Contains(t, c.Body, "22.5%")
	assert.Contains(t, c.Body, "Food")
	assert.Contains(t, c.Body, "Rent")
}

func TestFallbackSummary_EscapesCategory(t *testing.T) {
	stats := content.ComputeSummaryStats([]model.Budget{budget("Food & Drinks", 95, 100), budget("Rent", 0, 1500)})

	c := content.FallbackSummary("$", stats)
	assert.Contains(t, c.Body, "Food &amp; Drinks")
	assert.NotContains(t, c.Body, "Food & Drinks")

	body := html.UnescapeString(c.Body)
	assert.Contains(t, body, "These categories are at 90% or more: Food & Drinks.")
	assert.Contains(t, body, "Food & Drinks: $95.00 of $100.00 (95.0%)")
}
