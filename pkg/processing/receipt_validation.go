package processing

import (
	"fmt"

	"mercagasto/domain"
	"mercagasto/internal/utils"

	"github.com/go-playground/validator/v10"
)

// ValidateReceipt checks a parsed receipt before it is saved and reports
// every broken rule at once.
func ValidateReceipt(v *validator.Validate, r *domain.ParsedReceipt) error {
	if r == nil {
		return &domain.ValidationError{Problems: []string{"receipt: missing"}}
	}

	var problems []string
	if err := v.Struct(r); err != nil {
		problems = append(problems, utils.ValidationMessages(err)...)
	}
	if r.PurchasedAt.IsZero() {
		problems = append(problems, "PurchasedAt: required")
	}
	if !r.Total.IsPositive() {
		problems = append(problems, "Total: must be greater than zero")
	}
	for i, it := range r.Items {
		if !it.TotalPrice.IsPositive() {
			problems = append(problems, fmt.Sprintf("Items[%d].TotalPrice: must be greater than zero", i))
		}
	}
	if len(r.Items) > 0 && r.Total.IsPositive() {
		sum := r.ItemsTotal()
		if sum.Sub(r.Total).Abs().GreaterThan(domain.TotalsTolerance) {
			problems = append(problems, fmt.Sprintf("Total: items add up to %s, receipt says %s", sum.StringFixed(2), r.Total.StringFixed(2)))
		}
	}

	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}
