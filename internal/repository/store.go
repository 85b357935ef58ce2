package repository

import (
	"context"
	"errors"
	"time"

	"github.com/akosarev/storefront/internal/domain"
	"github.com/google/uuid"
)

// Common errors returned by the stores
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
)

// CatalogStore is the read side of the product catalog; the engine never
// creates or edits products, it only reads price and stock.
type CatalogStore interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
}

// CouponStore provides coupon rules and per-user ledger counts for the
// evaluator. Both reads are side-effect free.
type CouponStore interface {
	// GetCouponByCode returns the coupon with its associated product ids
	// or ErrCouponNotFound
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// UsageCountByUser sums the quantities this user has already redeemed
	// for the coupon across the usage ledger
	UsageCountByUser(ctx context.Context, couponID int64, userID string) (int32, error)
}

// CartStore persists per-user carts. Carts are single-owner; callers
// serialize mutations per user.
type CartStore interface {
	// GetCart returns the cart with its lines or ErrCartNotFound
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveCart upserts the cart row and replaces its lines
	SaveCart(ctx context.Context, cart *domain.Cart) error

	// ClearCart removes all lines and zeroes the total; no-op when the
	// cart does not exist
	ClearCart(ctx context.Context, userID string) error
}

// OrderStore is the read side of persisted orders. Orders are written only
// inside the checkout transaction.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

// CheckoutTx is the set of writes available inside one checkout
// transaction. Nothing done through it is visible until the enclosing
// WithinCheckoutTx callback returns nil.
type CheckoutTx interface {
	// CartForUpdate loads the cart with a row lock, serializing
	// concurrent checkouts for the same user
	CartForUpdate(ctx context.Context, userID string) (*domain.Cart, error)

	// ProductForUpdate loads a product with a row lock so concurrent
	// checkouts of the same product queue behind each other
	ProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error)

	// DecrementStock subtracts quantity only while stock stays
	// non-negative; returns ErrInsufficientStock otherwise
	DecrementStock(ctx context.Context, productID int64, quantity int32) error

	InsertOrder(ctx context.Context, order *domain.Order) error

	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// IncrementCouponUsage adds quantity to the coupon's counter only
	// while it stays within the usage limit; returns
	// ErrUsageLimitExceeded otherwise
	IncrementCouponUsage(ctx context.Context, couponID int64, quantity int32) error

	InsertCouponUsage(ctx context.Context, usage *domain.CouponUsage) error

	ClearCart(ctx context.Context, userID string) error

	InsertOutboxEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
}

// CheckoutStore runs a function inside a single database transaction.
// The transaction commits only if fn returns nil; any error or panic
// rolls back every write made through the CheckoutTx.
type CheckoutStore interface {
	WithinCheckoutTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// OutboxEvent is one pending integration event written atomically with the
// state change it describes.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// OutboxStore is consumed by the publisher poller.
type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
