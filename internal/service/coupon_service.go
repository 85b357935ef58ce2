package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
)

// CouponValidator evaluates a coupon against a single product line. The
// evaluation is pure: usage accounting happens only inside the checkout
// transaction, never here.
type CouponValidator interface {
	Validate(ctx context.Context, userID, code string, productID int64, quantity int32, unitPrice float64) (*domain.Evaluation, error)
}

type CouponService struct {
	coupons repository.CouponStore
}

func NewCouponService(coupons repository.CouponStore) *CouponService {
	return &CouponService{coupons: coupons}
}

func rejected(reason domain.EvaluationReason, message string) *domain.Evaluation {
	return &domain.Evaluation{Valid: false, Reason: reason, Message: message}
}

// Validate runs the checks in a fixed order and stops at the first failure,
// so the reported reason is deterministic. A rejection is a valid result,
// not an error; the error return is for store failures only.
func (s *CouponService) Validate(
	ctx context.Context,
	userID, code string,
	productID int64,
	quantity int32,
	unitPrice float64) (*domain.Evaluation, error) {

	coupon, err := s.coupons.GetCouponByCode(ctx, code)
	if errors.Is(err, repository.ErrCouponNotFound) {
		return rejected(domain.ReasonNotFound, fmt.Sprintf("coupon %q not found", code)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup coupon: %w", err)
	}

	if !coupon.IsActive {
		return rejected(domain.ReasonInactive, fmt.Sprintf("coupon %q is not active", code)), nil
	}

	if !coupon.WithinWindow(time.Now()) {
		return rejected(domain.ReasonExpired, fmt.Sprintf("coupon %q is outside its validity window", code)), nil
	}

	if coupon.UsageLimit != nil {
		remaining := *coupon.UsageLimit - coupon.UsageCount
		if coupon.UsageCount+quantity > *coupon.UsageLimit {
			return rejected(domain.ReasonLimitExceeded,
				fmt.Sprintf("coupon %q usage limit exceeded, %d uses remaining", code, remaining)), nil
		}
	}

	if coupon.PerUserLimit != nil && userID != "" {
		used, err := s.coupons.UsageCountByUser(ctx, coupon.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("lookup per-user usage: %w", err)
		}
		remaining := *coupon.PerUserLimit - used
		if used+quantity > *coupon.PerUserLimit {
			return rejected(domain.ReasonLimitExceeded,
				fmt.Sprintf("coupon %q per-user limit exceeded, %d uses remaining", code, remaining)), nil
		}
	}

	if !coupon.AppliesTo(productID) {
		return rejected(domain.ReasonNotApplicable,
			fmt.Sprintf("coupon %q does not apply to product %d", code, productID)), nil
	}

	total := unitPrice * float64(quantity)
	if coupon.MinOrderAmount != nil && total < *coupon.MinOrderAmount {
		return rejected(domain.ReasonBelowMinimum,
			fmt.Sprintf("order total %.2f is below the required minimum %.2f", total, *coupon.MinOrderAmount)), nil
	}

	discount := coupon.Discount(total, quantity)
	finalTotal := total - discount
	if finalTotal < 0 {
		finalTotal = 0
	}

	return &domain.Evaluation{
		Valid:          true,
		DiscountAmount: discount,
		FinalTotal:     finalTotal,
		Message:        "coupon applied",
	}, nil
}
