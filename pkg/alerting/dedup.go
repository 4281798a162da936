package alerting

import (
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// DefaultCooldown is the minimum gap between two alerts for the same budget
// and bucket.
const DefaultCooldown = 24 * time.Hour

// Deduplicator suppresses repeat alerts for a (budget, bucket) pair inside
// the cooldown window.
type Deduplicator struct {
	cooldown time.Duration
}

// NewDeduplicator creates a deduplicator. A non-positive cooldown falls back
// to DefaultCooldown.
func NewDeduplicator(cooldown time.Duration) *Deduplicator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Deduplicator{cooldown: cooldown}
}

// Cooldown returns the configured window.
func (d *Deduplicator) Cooldown() time.Duration {
	return d.cooldown
}

// ShouldAlert reports whether an alert at bucket may be sent for budgetID
// given its prior events. Only events with the same bucket suppress; a
// budget moving from 75 to 90 alerts again immediately.
func (d *Deduplicator) ShouldAlert(budgetID string, bucket model.Bucket, history []model.AlertEvent, now time.Time) bool {
	var latest time.Time
	for _, ev := range history {
		if ev.BudgetID != budgetID || ev.Bucket != bucket {
			continue
		}
		if ev.CreatedAt.After(latest) {
			latest = ev.CreatedAt
		}
	}
	if latest.IsZero() {
		return true
	}
	return now.Sub(latest) >= d.cooldown
}
