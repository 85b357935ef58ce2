package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/akosarev/storefront/internal/cache"
	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	carts   repository.CartStore
	catalog repository.CatalogStore
	coupons CouponValidator
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
	locks   *UserLocks         // shared with CheckoutService
}

func NewCartService(
	carts repository.CartStore,
	catalog repository.CatalogStore,
	coupons CouponValidator,
	cartCache cache.CartCache,
	locks *UserLocks) *CartService {

	return &CartService{
		carts:   carts,
		catalog: catalog,
		coupons: coupons,
		cache:   cartCache,
		locks:   locks,
	}
}

// GetCart returns the user's cart, distinguishing an absent cart
// (repository.ErrCartNotFound) from an existing empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.carts.GetCart(ctx, userID)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of a product into the user's cart, merging
// with an existing line for the same product. When a coupon code is given
// it is evaluated against the full new line quantity and the line is
// re-priced as a whole. When no code is given on a merge, the existing
// line's coupon and price are deliberately left untouched.
func (s *CartService) AddItem(
	ctx context.Context,
	userID string,
	productID int64,
	quantity int32,
	couponCode string) (*domain.Cart, error) {

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	lock := s.locks.ForUser(userID)
	lock.Lock()
	defer lock.Unlock()

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		// created lazily on first add
		cart = &domain.Cart{
			UserID:    userID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	} else if err != nil {
		return nil, err
	}

	existing := cart.Item(productID)
	if existing == nil {
		unitPrice := product.Price
		if couponCode != "" {
			eval, errEval := s.coupons.Validate(ctx, userID, couponCode, productID, quantity, product.Price)
			if errEval != nil {
				return nil, errEval
			}
			if !eval.Valid {
				// cart is left unchanged
				return nil, &CouponRejectedError{Reason: eval.Reason, Message: eval.Message}
			}
			unitPrice = eval.FinalTotal / float64(quantity)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:  productID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			CouponCode: couponCode,
		})
	} else {
		newQuantity := existing.Quantity + quantity
		if couponCode != "" {
			// re-price the whole line against the merged quantity, not
			// just the delta
			eval, errEval := s.coupons.Validate(ctx, userID, couponCode, productID, newQuantity, product.Price)
			if errEval != nil {
				return nil, errEval
			}
			if !eval.Valid {
				return nil, &CouponRejectedError{Reason: eval.Reason, Message: eval.Message}
			}
			existing.UnitPrice = eval.FinalTotal / float64(newQuantity)
			existing.CouponCode = couponCode
		}
		existing.Quantity = newQuantity
	}

	cart.RecomputeTotal()
	cart.UpdatedAt = time.Now()

	if errSave := s.carts.SaveCart(ctx, cart); errSave != nil {
		log.Printf("repo save cart error: %v \n", errSave)
		return nil, errSave
	}

	s.invalidateCache(userID)
	return cart, nil
}

// RemoveItem deletes the line for the product if present; removing an
// absent line or from an absent cart is a no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	lock := s.locks.ForUser(userID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	cart.RecomputeTotal()
	cart.UpdatedAt = time.Now()

	if errSave := s.carts.SaveCart(ctx, cart); errSave != nil {
		log.Printf("repo save cart error: %v \n", errSave)
		return nil, errSave
	}

	s.invalidateCache(userID)
	return cart, nil
}

// ClearCart empties the cart; clearing an absent or already empty cart is
// a no-op.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	lock := s.locks.ForUser(userID)
	lock.Lock()
	defer lock.Unlock()

	if errClear := s.carts.ClearCart(ctx, userID); errClear != nil {
		log.Printf("repo clear cart error: %v \n", errClear)
		return errClear
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, userID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
