package content

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// Recommendations are the static tips included in every fallback alert.
var Recommendations = []string{
	"Consider reducing non-essential expenses in this category for the rest of the month.",
	"Review your spending habits and identify areas where you can save.",
	"Adjust your budget allocation if this category consistently requires more funds.",
}

var alertTemplate = template.Must(template.New("alert").Parse(`<h1>Budget Alert</h1>
<p>Dear User,</p>
<p>{{.Headline}}</p>
<p>You have spent {{.Spent}} out of your total budget of {{.Total}}.</p>
<p>This means you have used {{.Percentage}} of your budget.</p>
<h2>Recommendations:</h2>
<ul>
{{- range .Recommendations}}
  <li>{{.}}</li>
{{- end}}
</ul>
<p>Login to your dashboard for more detailed insights and personalized recommendations.</p>
<p>Best regards,<br>Your Financial Dashboard Team</p>
`))

var summaryTemplate = template.Must(template.New("summary").Parse(`<h1>Your Weekly Budget Summary</h1>
<p>You have spent {{.TotalSpent}} of your combined budget of {{.TotalBudget}} ({{.Overall}}).</p>
{{- if .Overspent}}
<h2>Needs attention</h2>
<p>These categories are at 90% or more: {{.Overspent}}.</p>
{{- end}}
{{- if .Healthy}}
<h2>On track</h2>
<p>These categories are under 75%: {{.Healthy}}.</p>
{{- end}}
<h2>All budgets</h2>
<ul>
{{- range .Lines}}
  <li>{{.Category}}: {{.Spent}} of {{.Total}} ({{.Percentage}})</li>
{{- end}}
</ul>
<h2>Recommendations:</h2>
<ul>
{{- range .Recommendations}}
  <li>{{.}}</li>
{{- end}}
</ul>
<p>Best regards,<br>Your Financial Dashboard Team</p>
`))

// FallbackAlert renders the offline alert template. The subject is plain
// text; the body is HTML, so categories such as "Food & Drinks" appear
// entity-escaped in it.
func FallbackAlert(p AlertPayload) Content {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}

	subject := fmt.Sprintf("Budget Alert: Your %s budget is running low", p.Category)
	headline := fmt.Sprintf("This is to inform you that your %s budget is running low.", p.Category)
	if p.Bucket == model.BucketExceeded {
		subject = fmt.Sprintf("Budget Alert: You have exceeded your %s budget", p.Category)
		headline = fmt.Sprintf("This is to inform you that you have exceeded your %s budget.", p.Category)
	}

	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, struct {
		Headline        string
		Spent           string
		Total           string
		Percentage      string
		Recommendations []string
	}{
		Headline:        headline,
		Spent:           FormatMoney(p.Currency, p.Spent),
		Total:           FormatMoney(p.Currency, p.Total),
		Percentage:      FormatPercent(p.Percentage),
		Recommendations: Recommendations,
	})
	if err != nil {
		// Static template with string fields; only reachable on a broken writer.
		return Content{Subject: subject, Body: headline, Source: SourceFallback}
	}
	return Content{Subject: subject, Body: buf.String(), Source: SourceFallback}
}

type summaryLine struct {
	Category   string
	Spent      string
	Total      string
	Percentage string
}

// FallbackSummary renders the offline weekly summary template. Like
// FallbackAlert, the body is escaped HTML.
func FallbackSummary(currency string, s SummaryStats) Content {
	if currency == "" {
		currency = DefaultCurrency
	}

	lines := make([]summaryLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, summaryLine{
			Category:   l.Category,
			Spent:      FormatMoney(currency, l.Spent),
			Total:      FormatMoney(currency, l.Total),
			Percentage: FormatPercent(l.Percentage),
		})
	}

	subject := "Your weekly budget summary"
	if n := len(s.Overspent); n > 0 {
		subject = fmt.Sprintf("Your weekly budget summary: %d %s", n, plural(n, "category needs attention", "categories need attention"))
	}

	var overspent, healthy string
	if len(s.Overspent) > 0 {
		overspent = listOrNone(s.Overspent)
	}
	if len(s.Healthy) > 0 {
		healthy = listOrNone(s.Healthy)
	}

	var buf bytes.Buffer
	err := summaryTemplate.Execute(&buf, struct {
		TotalSpent      string
		TotalBudget     string
		Overall         string
		Overspent       string
		Healthy         string
		Lines           []summaryLine
		Recommendations []string
	}{
		TotalSpent:      FormatMoney(currency, s.TotalSpent),
		TotalBudget:     FormatMoney(currency, s.TotalBudget),
		Overall:         FormatPercent(s.OverallPercentage()),
		Overspent:       overspent,
		Healthy:         healthy,
		Lines:           lines,
		Recommendations: Recommendations[:2],
	})
	if err != nil {
		return Content{Subject: subject, Body: subject, Source: SourceFallback}
	}
	return Content{Subject: subject, Body: buf.String(), Source: SourceFallback}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
