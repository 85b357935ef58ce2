package service

import (
	"context"
	"sync"
	"testing"

	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartService(t *testing.T) (*CartService, *MockCartStore, *MockCouponStore, *MockCartCache) {
	t.Helper()

	carts := NewMockCartStore()
	catalog := &MockCatalogStore{Products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Laptop", Price: 100, Stock: 50},
		2: {ID: 2, Name: "Mouse", Price: 25, Stock: 10},
	}}
	coupons := NewMockCouponStore()
	cartCache := NewMockCartCache()
	svc := NewCartService(carts, catalog, NewCouponService(coupons), cartCache, NewUserLocks())
	return svc, carts, coupons, cartCache
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	svc, _, _, _ := setupCartService(t)

	_, err := svc.AddItem(context.Background(), "u1", 1, 0, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), "u1", 1, -3, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc, carts, _, _ := setupCartService(t)

	_, err := svc.AddItem(context.Background(), "u1", 999, 1, "")

	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Nil(t, carts.Saved)
}

func TestAddItem_CreatesCartLazily(t *testing.T) {
	svc, carts, _, _ := setupCartService(t)

	cart, err := svc.AddItem(context.Background(), "u1", 1, 2, "")

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(2), cart.Items[0].Quantity)
	assert.Equal(t, 100.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 200.0, cart.TotalPrice)
	assert.NotNil(t, carts.Saved)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	svc, _, _, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 2, "")
	require.NoError(t, err)

	cart, err := svc.AddItem(ctx, "u1", 1, 3, "")
	require.NoError(t, err)

	// one line with the summed quantity, not two lines
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(5), cart.Items[0].Quantity)
	assert.Equal(t, 500.0, cart.TotalPrice)
}

func TestAddItem_CouponPricesWholeLine(t *testing.T) {
	svc, _, coupons, _ := setupCartService(t)
	coupons.Coupons["SAVE10"] = validCoupon()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "u1", 1, 2, "SAVE10")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 90.0, cart.Items[0].UnitPrice)
	assert.Equal(t, "SAVE10", cart.Items[0].CouponCode)
	assert.Equal(t, 180.0, cart.TotalPrice)

	// merging with the coupon re-supplied must re-price the full 5-unit
	// line, not just the added 3
	cart, err = svc.AddItem(ctx, "u1", 1, 3, "SAVE10")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(5), cart.Items[0].Quantity)
	assert.Equal(t, 90.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 450.0, cart.TotalPrice)
}

func TestAddItem_MergeWithoutCouponKeepsExistingPrice(t *testing.T) {
	svc, _, coupons, _ := setupCartService(t)
	coupons.Coupons["SAVE10"] = validCoupon()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 2, "SAVE10")
	require.NoError(t, err)

	// re-add without a coupon code: quantity grows, the previously
	// applied coupon and its price stay untouched
	cart, err := svc.AddItem(ctx, "u1", 1, 1, "")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(3), cart.Items[0].Quantity)
	assert.Equal(t, 90.0, cart.Items[0].UnitPrice)
	assert.Equal(t, "SAVE10", cart.Items[0].CouponCode)
}

func TestAddItem_RejectedCouponLeavesCartUnchanged(t *testing.T) {
	svc, carts, coupons, _ := setupCartService(t)
	coupon := validCoupon()
	coupon.IsActive = false
	coupons.Coupons[coupon.Code] = coupon

	_, err := svc.AddItem(context.Background(), "u1", 1, 2, "SAVE10")

	var rejected *CouponRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, domain.ReasonInactive, rejected.Reason)

	// nothing was saved
	assert.Nil(t, carts.Saved)
	_, errGet := carts.GetCart(context.Background(), "u1")
	assert.ErrorIs(t, errGet, repository.ErrCartNotFound)
}

func TestAddItem_InvalidatesCache(t *testing.T) {
	svc, _, _, cartCache := setupCartService(t)

	_, err := svc.AddItem(context.Background(), "u1", 1, 1, "")

	require.NoError(t, err)
	assert.Contains(t, cartCache.Deleted, "u1")
}

func TestRemoveItem_RemovesLineAndRecomputesTotal(t *testing.T) {
	svc, _, _, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 2, "")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", 2, 4, "")
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
	assert.Equal(t, 100.0, cart.TotalPrice)
}

func TestRemoveItem_AbsentLineIsNoop(t *testing.T) {
	svc, _, _, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 2, "")
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "u1", 999)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 200.0, cart.TotalPrice)
}

func TestRemoveItem_AbsentCartIsNoop(t *testing.T) {
	svc, _, _, _ := setupCartService(t)

	cart, err := svc.RemoveItem(context.Background(), "nobody", 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearCart_EmptiesCart(t *testing.T) {
	svc, carts, _, cartCache := setupCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 2, "")
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, "u1"))

	cart := carts.Carts["u1"]
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.TotalPrice)
	assert.Contains(t, cartCache.Deleted, "u1")
}

func TestGetCart_AbsentCartIsNotFound(t *testing.T) {
	svc, _, _, _ := setupCartService(t)

	_, err := svc.GetCart(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrCartNotFound)
}

func TestGetCart_ServesFromCache(t *testing.T) {
	svc, carts, _, cartCache := setupCartService(t)

	cached := &domain.Cart{UserID: "u1", TotalPrice: 42}
	cartCache.Entries["u1"] = cached
	carts.GetErr = assert.AnError // the repo must not be hit

	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, cart.TotalPrice)
}

func TestAddItem_ConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	svc, carts, _, _ := setupCartService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, "u1", 1, 1, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart := carts.Carts["u1"]
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(20), cart.Items[0].Quantity)
	assert.Equal(t, 2000.0, cart.TotalPrice)
}
