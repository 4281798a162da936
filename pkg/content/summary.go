package content

import (
	"sort"

	"github.com/ogulcanaydogan/budget-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// BudgetLine is one row of the weekly summary.
type BudgetLine struct {
	Category   string
	Spent      decimal.Decimal
	Total      decimal.Decimal
	Percentage float64
	Level      model.AlertLevel
}

// SummaryStats aggregates a user's budgets.
type SummaryStats struct {
	TotalSpent  decimal.Decimal
	TotalBudget decimal.Decimal
	// Overspent lists categories at or above 90%.
	Overspent []string
	// Healthy lists categories below 75%.
	Healthy []string
	Lines   []BudgetLine
}

// ComputeSummaryStats totals the budgets and classifies each category.
// Budgets with a non-positive total count toward the totals but are neither
// overspent nor healthy.
func ComputeSummaryStats(budgets []model.Budget) SummaryStats {
	stats := SummaryStats{TotalSpent: decimal.Zero, TotalBudget: decimal.Zero}
	for _, b := range budgets {
		stats.TotalSpent = stats.TotalSpent.Add(b.Spent)
		stats.TotalBudget = stats.TotalBudget.Add(b.Total)

		ev := alerting.EvaluateBudget(b)
		line := BudgetLine{Category: b.Category, Spent: b.Spent, Total: b.Total, Percentage: ev.Percentage, Level: ev.Bucket.Level()}
		switch ev.Bucket {
		case model.BucketCritical, model.BucketExceeded:
			stats.Overspent = append(stats.Overspent, b.Category)
		case model.BucketNone:
			stats.Healthy = append(stats.Healthy, b.Category)
		}
		stats.Lines = append(stats.Lines, line)
	}
	sort.SliceStable(stats.Lines, func(i, j int) bool {
		return stats.Lines[i].Percentage > stats.Lines[j].Percentage
	})
	return stats
}

// OverallPercentage is total spent over total budget, or 0 without a budget.
func (s SummaryStats) OverallPercentage() float64 {
	return alerting.Evaluate(s.TotalSpent, s.TotalBudget).Percentage
}
