package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akosarev/storefront/internal/domain"
)

func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return getCouponByCode(ctx, r.db, code)
}

func getCouponByCode(ctx context.Context, q querier, code string) (*domain.Coupon, error) {
	query := `SELECT id, code, discount_type, value, min_order_amount, starts_at, ends_at,
	                 usage_limit, per_user_limit, usage_count, is_active
	          FROM coupons WHERE code = $1`

	var coupon domain.Coupon
	err := q.QueryRowContext(ctx, query, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountType,
		&coupon.Value,
		&coupon.MinOrderAmount,
		&coupon.StartsAt,
		&coupon.EndsAt,
		&coupon.UsageLimit,
		&coupon.PerUserLimit,
		&coupon.UsageCount,
		&coupon.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon by code: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT product_id FROM coupon_products WHERE coupon_id = $1`, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("query coupon products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("scan coupon product: %w", err)
		}
		coupon.ProductIDs = append(coupon.ProductIDs, productID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("coupon products iteration: %w", err)
	}

	return &coupon, nil
}

func (r *Repository) UsageCountByUser(ctx context.Context, couponID int64, userID string) (int32, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM coupon_usages
	          WHERE coupon_id = $1 AND user_id = $2`

	var count int32
	if err := r.db.QueryRowContext(ctx, query, couponID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("query usage count by user: %w", err)
	}
	return count, nil
}
