package model_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC) // Wednesday

func TestPeriodBounds_Daily(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodDaily, fixedNow)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 15, start.Day())
}

func TestPeriodBounds_Weekly(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodWeekly, fixedNow)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, 13, start.Day())
}

func TestPeriodBounds_Monthly(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodMonthly, fixedNow)
	assert.Equal(t, 1, start.Day())
	assert.Equal(t, time.June, end.Month())
}

func TestPeriodBounds_DefaultIsMonthly(t *testing.T) {
	start, _ := model.PeriodBounds("unknown", fixedNow)
	assert.Equal(t, 1, start.Day())
}

func TestBucket_String(t *testing.T) {
	tests := []struct {
		bucket model.Bucket
		want   string
	}{
		{model.BucketNotApplicable, "not_applicable"},
		{model.BucketNone, "none"},
		{model.BucketWarning, "75"},
		{model.BucketCritical, "90"},
		{model.BucketExceeded, "100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.bucket.String())
	}
}

func TestBucket_LevelAndAlertable(t *testing.T) {
	assert.Equal(t, model.AlertWarning, model.BucketWarning.Level())
	assert.Equal(t, model.AlertCritical, model.BucketCritical.Level())
	assert.Equal(t, model.AlertExceeded, model.BucketExceeded.Level())
	assert.Equal(t, model.AlertHealthy, model.BucketNone.Level())

	assert.True(t, model.BucketCritical.Alertable())
	assert.False(t, model.BucketNone.Alertable())
	assert.False(t, model.BucketNotApplicable.Alertable())
}
