package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akosarev/storefront/internal/domain"
)

func (r *Repository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return getCart(ctx, r.db, userID, false)
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func getCart(ctx context.Context, q querier, userID string, forUpdate bool) (*domain.Cart, error) {
	cartQuery := `SELECT user_id, total_price, created_at, updated_at FROM carts WHERE user_id = $1`
	if forUpdate {
		cartQuery += ` FOR UPDATE`
	}

	var cart domain.Cart
	err := q.QueryRowContext(ctx, cartQuery, userID).Scan(
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	itemsQuery := `SELECT product_id, quantity, unit_price, COALESCE(coupon_code, '')
	               FROM cart_items WHERE user_id = $1 ORDER BY product_id`

	rows, err := q.QueryContext(ctx, itemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice, &item.CouponCode); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart items iteration: %w", err)
	}

	return &cart, nil
}

// SaveCart upserts the cart row and replaces all of its lines with the ones
// on the given cart. The replace runs in its own short transaction so a
// concurrent GetCart never observes a half-written line set.
func (r *Repository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save cart: %w", err)
	}
	defer tx.Rollback()

	upsert := `INSERT INTO carts (user_id, total_price, created_at, updated_at)
	           VALUES ($1, $2, NOW(), NOW())
	           ON CONFLICT (user_id) DO UPDATE SET total_price = $2, updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, upsert, cart.UserID, cart.TotalPrice); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, cart.UserID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	insert := `INSERT INTO cart_items (user_id, product_id, quantity, unit_price, coupon_code)
	           VALUES ($1, $2, $3, $4, NULLIF($5, ''))`
	for _, item := range cart.Items {
		if _, err := tx.ExecContext(ctx, insert,
			cart.UserID, item.ProductID, item.Quantity, item.UnitPrice, item.CouponCode); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save cart: %w", err)
	}
	return nil
}

func (r *Repository) ClearCart(ctx context.Context, userID string) error {
	return clearCart(ctx, r.db, userID)
}

func clearCart(ctx context.Context, q querier, userID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	// no-op when the cart row does not exist
	query := `UPDATE carts SET total_price = 0, updated_at = NOW() WHERE user_id = $1`
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("zero cart total: %w", err)
	}
	return nil
}
