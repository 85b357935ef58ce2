package domain

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes value percent off the line total.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes value off every unit in the line.
	DiscountFixed DiscountType = "fixed"
)

// Coupon is a discount rule scoped to specific products, with a validity
// window and optional usage limits. UsageCount only ever increases.
type Coupon struct {
	ID             int64
	Code           string
	DiscountType   DiscountType
	Value          float64
	MinOrderAmount *float64
	StartsAt       time.Time
	EndsAt         time.Time
	UsageLimit     *int32
	PerUserLimit   *int32
	UsageCount     int32
	IsActive       bool
	ProductIDs     []int64
}

// AppliesTo reports whether the coupon is associated with the product.
func (c *Coupon) AppliesTo(productID int64) bool {
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// WithinWindow reports whether t falls inside the coupon's validity window.
func (c *Coupon) WithinWindow(t time.Time) bool {
	return !t.Before(c.StartsAt) && !t.After(c.EndsAt)
}

// Discount computes the discount amount for a line total and quantity.
// Fixed-amount coupons are per-unit, so the value multiplies by quantity.
func (c *Coupon) Discount(total float64, quantity int32) float64 {
	switch c.DiscountType {
	case DiscountPercentage:
		return total * c.Value / 100
	case DiscountFixed:
		return c.Value * float64(quantity)
	}
	return 0
}

// EvaluationReason classifies why a coupon evaluation rejected the code.
type EvaluationReason string

const (
	ReasonNone          EvaluationReason = ""
	ReasonNotFound      EvaluationReason = "NOT_FOUND"
	ReasonInactive      EvaluationReason = "INACTIVE"
	ReasonExpired       EvaluationReason = "EXPIRED"
	ReasonLimitExceeded EvaluationReason = "LIMIT_EXCEEDED"
	ReasonNotApplicable EvaluationReason = "NOT_APPLICABLE"
	ReasonBelowMinimum  EvaluationReason = "BELOW_MINIMUM"
)

// Evaluation is the outcome of validating a coupon against one product line.
// It carries no side effects; usage accounting happens only at checkout.
type Evaluation struct {
	Valid          bool
	DiscountAmount float64
	FinalTotal     float64
	Reason         EvaluationReason
	Message        string
}

// CouponUsage is one append-only ledger row recording a redemption at
// checkout. Rows are never updated or deleted.
type CouponUsage struct {
	ID             uuid.UUID
	CouponID       int64
	UserID         string
	Quantity       int32
	DiscountAmount float64
	OrderID        uuid.UUID
	CreatedAt      time.Time
}
