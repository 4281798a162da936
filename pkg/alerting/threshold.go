package alerting

import (
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluation is the utilization of a budget and the alert tier it falls into.
type Evaluation struct {
	Percentage float64      `json:"percentage"`
	Bucket     model.Bucket `json:"bucket"`
}

// Evaluate computes spent/total*100 and floors it to the highest threshold
// it meets. A non-positive total yields BucketNotApplicable with 0%.
// Percentages above 100 are not clamped.
func Evaluate(spent, total decimal.Decimal) Evaluation {
	if !total.IsPositive() {
		return Evaluation{Percentage: 0, Bucket: model.BucketNotApplicable}
	}

	pct := spent.Div(total).Mul(hundred)
	f, _ := pct.Float64()

	return Evaluation{Percentage: f, Bucket: bucketFor(pct)}
}

// EvaluateBudget is Evaluate applied to a budget snapshot.
func EvaluateBudget(b model.Budget) Evaluation {
	return Evaluate(b.Spent, b.Total)
}

func bucketFor(pct decimal.Decimal) model.Bucket {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(model.BucketExceeded))):
		return model.BucketExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(model.BucketCritical))):
		return model.BucketCritical
	case pct.GreaterThanOrEqual(decimal.NewFromInt(int64(model.BucketWarning))):
		return model.BucketWarning
	default:
		return model.BucketNone
	}
}
