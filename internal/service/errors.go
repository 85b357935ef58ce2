package service

import (
	"errors"
	"fmt"

	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)

// InsufficientStockError names the product that could not be reserved.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error {
	return repository.ErrInsufficientStock
}

// CouponRejectedError surfaces the evaluator's reason when an add-to-cart
// supplies a coupon that does not validate.
type CouponRejectedError struct {
	Reason  domain.EvaluationReason
	Message string
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon rejected (%s): %s", e.Reason, e.Message)
}
