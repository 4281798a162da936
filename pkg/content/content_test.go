package content_test

import (
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	text  string
	err   error
	delay time.Duration
	panic bool
	calls int
	last  llm.Request
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.last = req
	if f.panic {
		panic("backend exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, Model: "fake-1"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func foodPayload() content.AlertPayload {
	return content.AlertPayload{
		Category:   "Food",
		Spent:      decimal.NewFromInt(450),
		Total:      decimal.NewFromInt(500),
		Percentage: 90,
		Bucket:     model.BucketCritical,
		Currency:   "₹",
	}
}

func TestGenerateAlert_AI(t *testing.T) {
	backend := &fakeBackend{text: "```json\n{\"subject\": \"Food at 90%\", \"body\": \"<p>Slow down on Food.</p>\"}\n```"}
	g := content.NewGenerator(backend, time.Second, quietLogger())

	c := g.GenerateAlert(context.Background(), foodPayload())
	assert.Equal(t, content.SourceAI, c.Source)
	assert.Equal(t, "Food at 90%", c.Subject)
	assert.Equal(t, "<p>Slow down on Food.</p>", c.Body)

	assert.Equal(t, 1, backend.calls)
	assert.True(t, backend.last.JSON)
	assert.Equal(t, "alert", backend.last.Purpose)
	assert.Contains(t, backend.last.Prompt, "Food")
	assert.Contains(t, backend.last.Prompt, "90.0%")
	assert.Contains(t, backend.last.Prompt, "₹450.00")
}

func TestGenerateAlert_FallbackOnError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("upstream 503")}
	g := content.NewGenerator(backend, time.Second, quietLogger())

	c := g.GenerateAlert(context.Background(), foodPayload())
	assert.Equal(t, content.SourceFallback, c.Source)
	assert.NotEmpty(t, c.Subject)
	assert.NotEmpty(t, c.Body)
	assert.Contains(t, c.Subject, "Food")
	assert.Contains(t, c.Body, "Food")
	assert.Contains(t, c.Body, "90.0%")
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateAlert_FallbackOnUnparseable(t *testing.T) {
	for _, text := range []string{
		"Sure! Your food budget is nearly used up.",
		`{"subject": "", "body": "x"}`,
		`{"subject": "x"}`,
		`{"subject": "x", "body": }`,
	} {
		g := content.NewGenerator(&fakeBackend{text: text}, time.Second, quietLogger())
		c := g.GenerateAlert(context.Background(), foodPayload())
		assert.Equal(t, content.SourceFallback, c.Source, text)
		assert.Contains(t, c.Body, "Food")
	}
}

func TestGenerateAlert_FallbackOnTimeout(t *testing.T) {
	backend := &fakeBackend{text: `{"subject":"s","body":"b"}`, delay: time.Second}
	g := content.NewGenerator(backend, 20*time.Millisecond, quietLogger())

	start := time.Now()
	c := g.GenerateAlert(context.Background(), foodPayload())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, content.SourceFallback, c.Source)
}

func TestGenerateAlert_FallbackOnPanic(t *testing.T) {
	g := content.NewGenerator(&fakeBackend{panic: true}, time.Second, quietLogger())
	c := g.GenerateAlert(context.Background(), foodPayload())
	assert.Equal(t, content.SourceFallback, c.Source)
}

func TestGenerateAlert_NoBackend(t *testing.T) {
	g := content.NewGenerator(nil, 0, quietLogger())
	c := g.GenerateAlert(context.Background(), foodPayload())
	assert.Equal(t, content.SourceFallback, c.Source)
}

func TestFallbackAlert(t *testing.T) {
	c := content.FallbackAlert(content.AlertPayload{
		Category:   "Shopping",
		Spent:      decimal.RequireFromString("12500.5"),
		Total:      decimal.NewFromInt(10000),
		Percentage: 125.005,
		Bucket:     model.BucketExceeded,
	})
	assert.Equal(t, "Budget Alert: You have exceeded your Shopping budget", c.Subject)
	assert.Contains(t, c.Body, "₹12,500.50")
	assert.Contains(t, c.Body, "₹10,000.00")
	assert.Contains(t, c.Body, "125.0%")
	for _, rec := range content.Recommendations {
		assert.Contains(t, c.Body, rec)
	}

	warn := content.FallbackAlert(content.AlertPayload{Category: "Food", Bucket: model.BucketWarning, Percentage: 75})
	assert.Equal(t, "Budget Alert: Your Food budget is running low", warn.Subject)
}

func TestFallbackAlert_EscapesCategory(t *testing.T) {
	tests := []struct {
		category string
		escaped  string
	}{
		{category: "Food & Drinks", escaped: "Food &amp; Drinks"},
		{category: "Kids' Toys", escaped: "Kids&#39; Toys"},
		{category: "<b>Misc</b>", escaped: "&lt;b&gt;Misc&lt;/b&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			c := content.FallbackAlert(content.AlertPayload{
				Category:   tt.category,
				Spent:      decimal.NewFromInt(95),
				Total:      decimal.NewFromInt(100),
				Percentage: 95,
				Bucket:     model.BucketCritical,
			})
			assert.Equal(t, "Budget Alert: Your "+tt.category+" budget is running low", c.Subject)
			assert.Contains(t, c.Body, tt.escaped)
			assert.NotContains(t, c.Body, tt.category)
			assert.Contains(t, html.UnescapeString(c.Body), "your "+tt.category+" budget is running low")
		})
	}
}

func TestGenerate_Kinds(t *testing.T) {
	g := content.NewGenerator(nil, 0, quietLogger())
	ctx := context.Background()

	c, err := g.Generate(ctx, content.KindSingleAlert, foodPayload())
	require.NoError(t, err)
	assert.Contains(t, c.Body, "Food")

	c, err = g.Generate(ctx, content.KindWeeklySummary, content.SummaryPayload{UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Subject)

	_, err = g.Generate(ctx, content.KindSingleAlert, content.SummaryPayload{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = g.Generate(ctx, "monthly_digest", foodPayload())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹450.00", content.FormatMoney("₹", decimal.NewFromInt(450)))
	assert.Equal(t, "$1,234,567.89", content.FormatMoney("$", decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "90.0%", content.FormatPercent(90))
}
