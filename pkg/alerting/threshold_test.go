package alerting_test

import (
	"testing"

	"github.com/ogulcanaydogan/budget-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		spent  string
		total  string
		pct    float64
		bucket model.Bucket
	}{
		{"zero spend", "0", "1500", 0, model.BucketNone},
		{"just under warning", "74.99", "100", 74.99, model.BucketNone},
		{"warning boundary", "75", "100", 75, model.BucketWarning},
		{"critical", "450", "500", 90, model.BucketCritical},
		{"between critical and exceeded", "99.5", "100", 99.5, model.BucketCritical},
		{"exceeded boundary", "500", "500", 100, model.BucketExceeded},
		{"over budget is not clamped", "750", "500", 150, model.BucketExceeded},
		{"fractional", "1", "3", 100.0 / 3, model.BucketNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alerting.Evaluate(d(tt.spent), d(tt.total))
			assert.InDelta(t, tt.pct, got.Percentage, 1e-9)
			assert.Equal(t, tt.bucket, got.Bucket)
		})
	}
}

func TestEvaluate_NotApplicable(t *testing.T) {
	for _, total := range []string{"0", "-10"} {
		for _, spent := range []string{"0", "10", "1000"} {
			got := alerting.Evaluate(d(spent), d(total))
			assert.Equal(t, model.BucketNotApplicable, got.Bucket)
			assert.Zero(t, got.Percentage)
		}
	}
}

func TestEvaluate_NoneIffBelowWarning(t *testing.T) {
	total := d("200")
	for spent := 0; spent <= 400; spent++ {
		got := alerting.Evaluate(decimal.NewFromInt(int64(spent)), total)
		assert.InDelta(t, float64(spent)/200*100, got.Percentage, 1e-9)
		assert.Equal(t, got.Percentage < 75, got.Bucket == model.BucketNone, "spent=%d", spent)
	}
}

func TestEvaluateBudget(t *testing.T) {
	got := alerting.EvaluateBudget(model.Budget{Spent: d("450"), Total: d("500")})
	assert.Equal(t, model.BucketCritical, got.Bucket)
}
