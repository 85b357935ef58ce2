package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akosarev/storefront/internal/domain"
)

// WithinCheckoutTx opens a read-committed transaction, runs fn against it
// and commits only when fn returns nil. Rollback is the default: any error,
// panic or context cancellation leaves the database exactly as it was.
func (r *Repository) WithinCheckoutTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

type checkoutTx struct {
	tx *sql.Tx
}

func (c *checkoutTx) CartForUpdate(ctx context.Context, userID string) (*domain.Cart, error) {
	return getCart(ctx, c.tx, userID, true)
}

func (c *checkoutTx) ProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error) {
	query := `SELECT id, name, price, stock FROM products WHERE id = $1 FOR UPDATE`

	var product domain.Product
	err := c.tx.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock product row: %w", err)
	}

	return &product, nil
}

// DecrementStock is a single conditional statement: the check and the write
// cannot be interleaved by a concurrent checkout, so stock never goes
// negative even without the prior row lock.
func (c *checkoutTx) DecrementStock(ctx context.Context, productID int64, quantity int32) error {
	query := `UPDATE products SET stock = stock - $2, updated_at = NOW()
	          WHERE id = $1 AND stock >= $2`

	res, err := c.tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (c *checkoutTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `INSERT INTO orders (id, user_id, total_price, status, items, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, insertErr := c.tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.TotalPrice,
		order.Status,
		itemsJSON)
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (c *checkoutTx) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return getCouponByCode(ctx, c.tx, code)
}

// IncrementCouponUsage mirrors DecrementStock: the limit re-check happens in
// the same statement as the increment, closing the validate/redeem race.
func (c *checkoutTx) IncrementCouponUsage(ctx context.Context, couponID int64, quantity int32) error {
	query := `UPDATE coupons SET usage_count = usage_count + $2
	          WHERE id = $1 AND (usage_limit IS NULL OR usage_count + $2 <= usage_limit)`

	res, err := c.tx.ExecContext(ctx, query, couponID, quantity)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment coupon usage rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUsageLimitExceeded
	}
	return nil
}

func (c *checkoutTx) InsertCouponUsage(ctx context.Context, usage *domain.CouponUsage) error {
	query := `INSERT INTO coupon_usages (id, coupon_id, user_id, quantity, discount_amount, order_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := c.tx.ExecContext(ctx, query,
		usage.ID,
		usage.CouponID,
		usage.UserID,
		usage.Quantity,
		usage.DiscountAmount,
		usage.OrderID)
	if err != nil {
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	return nil
}

func (c *checkoutTx) ClearCart(ctx context.Context, userID string) error {
	return clearCart(ctx, c.tx, userID)
}

func (c *checkoutTx) InsertOutboxEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, NOW())`

	if _, err := c.tx.ExecContext(ctx, query, aggregateID, eventType, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
