package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/akosarev/storefront/internal/cache"
	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
	"github.com/google/uuid"
)

const orderCreatedEventType = "order.created"

type CheckoutService struct {
	store repository.CheckoutStore
	carts repository.CartStore
	cache cache.CartCache
	locks *UserLocks // shared with CartService
}

func NewCheckoutService(
	store repository.CheckoutStore,
	carts repository.CartStore,
	cartCache cache.CartCache,
	locks *UserLocks) *CheckoutService {

	return &CheckoutService{
		store: store,
		carts: carts,
		cache: cartCache,
		locks: locks,
	}
}

// orderCreatedEvent is the outbox payload published after commit.
type orderCreatedEvent struct {
	OrderID    string             `json:"order_id"`
	UserID     string             `json:"user_id"`
	Items      []domain.OrderItem `json:"items"`
	TotalPrice float64            `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CreateOrderFromCart converts the user's cart into an order as one atomic
// transaction: stock is decremented, the order and coupon-usage rows are
// written, the cart is cleared and an outbox event is queued, all of it or
// none of it. The flow is an explicit state machine so that every failure
// path ends in Aborted with the transaction rolled back.
func (s *CheckoutService) CreateOrderFromCart(ctx context.Context, userID string) (uuid.UUID, error) {
	// hold the user's cart lock for the whole checkout: a cart save that
	// read its snapshot before the commit would resurrect the purchased
	// lines after ClearCart
	lock := s.locks.ForUser(userID)
	lock.Lock()
	defer lock.Unlock()

	status := domain.CheckoutStatusValidating

	advance := func(to domain.CheckoutStatus) error {
		if !domain.CanTransitionTo(status, to) {
			return IllegalTransitionError
		}
		status = to
		return nil
	}

	// terminal precondition, checked before any transaction is opened
	precheck, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) || (err == nil && precheck.IsEmpty()) {
		return uuid.Nil, ErrEmptyCart
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load cart: %w", err)
	}

	orderID := uuid.New()

	txErr := s.store.WithinCheckoutTx(ctx, func(tx repository.CheckoutTx) error {
		// re-read under the row lock; the cart may have changed since the
		// precheck
		cart, err := tx.CartForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("load cart for update: %w", err)
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}

		if err := advance(domain.CheckoutStatusReservingStock); err != nil {
			return err
		}

		// validate every line before mutating any stock; a shortfall on
		// the last line must not leave earlier lines decremented
		products := make(map[int64]*domain.Product, len(cart.Items))
		for _, item := range cart.Items {
			product, err := tx.ProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("load product %d: %w", item.ProductID, err)
			}
			if product.Stock < item.Quantity {
				return &InsufficientStockError{ProductID: item.ProductID}
			}
			products[item.ProductID] = product
		}

		for _, item := range cart.Items {
			if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &InsufficientStockError{ProductID: item.ProductID}
				}
				return err
			}
		}

		if err := advance(domain.CheckoutStatusPersisting); err != nil {
			return err
		}

		// the cart line prices are honored verbatim; coupons are not
		// re-validated at this stage
		order := &domain.Order{
			ID:     orderID,
			UserID: userID,
			Status: domain.OrderStatusConfirmed,
		}
		for _, item := range cart.Items {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
			order.TotalPrice += item.Subtotal()
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		if err := advance(domain.CheckoutStatusRecordingCouponUsage); err != nil {
			return err
		}

		for _, item := range cart.Items {
			if item.CouponCode == "" {
				continue
			}

			coupon, err := tx.GetCouponByCode(ctx, item.CouponCode)
			if err != nil {
				return fmt.Errorf("load coupon %q: %w", item.CouponCode, err)
			}

			// the increment re-checks the limit in the same statement,
			// so concurrent redemptions cannot overshoot it
			if err := tx.IncrementCouponUsage(ctx, coupon.ID, item.Quantity); err != nil {
				return err
			}

			realized := (products[item.ProductID].Price - item.UnitPrice) * float64(item.Quantity)
			usage := &domain.CouponUsage{
				ID:             uuid.New(),
				CouponID:       coupon.ID,
				UserID:         userID,
				Quantity:       item.Quantity,
				DiscountAmount: realized,
				OrderID:        orderID,
			}
			if err := tx.InsertCouponUsage(ctx, usage); err != nil {
				return err
			}
		}

		if err := advance(domain.CheckoutStatusClearingCart); err != nil {
			return err
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}

		payload, err := json.Marshal(orderCreatedEvent{
			OrderID:    orderID.String(),
			UserID:     userID,
			Items:      order.Items,
			TotalPrice: order.TotalPrice,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("marshal order event: %w", err)
		}
		return tx.InsertOutboxEvent(ctx, orderID.String(), orderCreatedEventType, payload)
	})

	if txErr != nil {
		status = domain.CheckoutStatusAborted
		log.Printf("checkout aborted for user %s: %v", userID, txErr)
		return uuid.Nil, txErr
	}

	if err := advance(domain.CheckoutStatusCommitted); err != nil {
		return uuid.Nil, err
	}
	log.Printf("checkout committed for user %s, order %s", userID, orderID)

	// the cart rows are gone; drop the cached copy as well
	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if errInvalidate := s.cache.Delete(cacheCtx, userID); errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}

	return orderID, nil
}
