package content

import (
	"fmt"
	"strings"
)

const alertSystemPrompt = `You write short, friendly budget alert emails for a personal finance app.
Respond only with a JSON object of the form {"subject": string, "body": string}.
The body is simple HTML (h1, p, ul, li) and must mention the category, the amounts spent and budgeted, the percentage used, and two or three practical recommendations.`

const summarySystemPrompt = `You write weekly budget summary emails for a personal finance app.
Respond only with a JSON object of the form {"subject": string, "body": string}.
The body is simple HTML and must report total spent against total budget, call out overspent categories, acknowledge healthy ones, and end with one or two tips.`

func alertPrompt(p AlertPayload) string {
	return fmt.Sprintf(`Write a %s budget alert.
Category: %s
Spent: %s
Budget: %s
Percentage used: %s
Currency symbol: %s`,
		p.Bucket.Level(), p.Category,
		FormatMoney(p.Currency, p.Spent), FormatMoney(p.Currency, p.Total),
		FormatPercent(p.Percentage), p.Currency)
}

func summaryPrompt(p SummaryPayload, s SummaryStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the weekly budget summary.\n")
	fmt.Fprintf(&b, "Currency symbol: %s\n", p.Currency)
	fmt.Fprintf(&b, "Total spent: %s\n", FormatMoney(p.Currency, s.TotalSpent))
	fmt.Fprintf(&b, "Total budget: %s\n", FormatMoney(p.Currency, s.TotalBudget))
	fmt.Fprintf(&b, "Overspent categories (90%% or more): %s\n", listOrNone(s.Overspent))
	fmt.Fprintf(&b, "Healthy categories (under 75%%): %s\n", listOrNone(s.Healthy))
	b.WriteString("Budgets:\n")
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "- %s: %s of %s (%s)\n", l.Category,
			FormatMoney(p.Currency, l.Spent), FormatMoney(p.Currency, l.Total), FormatPercent(l.Percentage))
	}
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
