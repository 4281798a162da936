package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field names in messages follow the JSON wire names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Decimals compare as numbers so gt/gte tags work on money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
	return v
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch model.BudgetPeriod(fl.Field().String()) {
	case model.PeriodDaily, model.PeriodWeekly, model.PeriodMonthly:
		return true
	}
	return false
}

// Validate checks struct tags and reports violations as ErrInvalidInput.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_with":
		return fe.Field() + " is required with " + strings.ToLower(fe.Param())
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "budget_period":
		return fe.Field() + " must be daily, weekly or monthly"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}
