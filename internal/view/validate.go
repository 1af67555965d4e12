package view

import (
	"fmt"
	"math"

	"github.com/mmeshcher/coupontracker/internal/model"
)

// ValidationError описывает купон, нарушающий предусловия движка.
type ValidationError struct {
	CouponID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("coupon %q: invalid %s: %s", e.CouponID, e.Field, e.Reason)
}

// Validate проверяет предусловия движка и возвращает *ValidationError для первого нарушения.
// Filter и Sort не вызывают Validate; для некорректных данных их результат не определён.
func Validate(coupons []model.Coupon) error {
	for _, c := range coupons {
		if c.ID == "" {
			return &ValidationError{Field: "id", Reason: "must not be empty"}
		}
		if c.ExpiryDate.IsZero() {
			return &ValidationError{CouponID: c.ID, Field: "expiryDate", Reason: "must be set"}
		}
		if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
			return &ValidationError{CouponID: c.ID, Field: "amount", Reason: "must be finite"}
		}
		if c.Amount < 0 {
			return &ValidationError{CouponID: c.ID, Field: "amount", Reason: "must not be negative"}
		}
	}
	return nil
}
