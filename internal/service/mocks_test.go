package service

import (
	"context"
	"fmt"

	"github.com/akosarev/storefront/internal/cache"
	"github.com/akosarev/storefront/internal/domain"
	"github.com/akosarev/storefront/internal/repository"
)

// MockCartStore implements repository.CartStore for testing
type MockCartStore struct {
	Carts   map[string]*domain.Cart
	GetErr  error
	SaveErr error
	Saved   *domain.Cart // Captures the last cart passed to SaveCart
}

func NewMockCartStore() *MockCartStore {
	return &MockCartStore{Carts: make(map[string]*domain.Cart)}
}

func (m *MockCartStore) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.Carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *MockCartStore) SaveCart(_ context.Context, cart *domain.Cart) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = cart
	m.Carts[cart.UserID] = cart
	return nil
}

func (m *MockCartStore) ClearCart(_ context.Context, userID string) error {
	if cart, ok := m.Carts[userID]; ok {
		cart.Items = nil
		cart.TotalPrice = 0
	}
	return nil
}

// MockCatalogStore implements repository.CatalogStore for testing
type MockCatalogStore struct {
	Products map[int64]*domain.Product
}

func (m *MockCatalogStore) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	product, ok := m.Products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

// MockCouponStore implements repository.CouponStore for testing
type MockCouponStore struct {
	Coupons   map[string]*domain.Coupon
	UserUsage map[string]int32 // "couponID:userID" -> redeemed quantity
	GetErr    error
}

func NewMockCouponStore() *MockCouponStore {
	return &MockCouponStore{
		Coupons:   make(map[string]*domain.Coupon),
		UserUsage: make(map[string]int32),
	}
}

func (m *MockCouponStore) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	coupon, ok := m.Coupons[code]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	return coupon, nil
}

func (m *MockCouponStore) UsageCountByUser(_ context.Context, couponID int64, userID string) (int32, error) {
	return m.UserUsage[fmt.Sprintf("%d:%s", couponID, userID)], nil
}

// MockCartCache implements cache.CartCache for testing
type MockCartCache struct {
	Entries map[string]*domain.Cart
	Deleted []string
	GetErr  error
	SetErr  error
}

func NewMockCartCache() *MockCartCache {
	return &MockCartCache{Entries: make(map[string]*domain.Cart)}
}

func (m *MockCartCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.Entries[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *MockCartCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Entries[userID] = cart
	return nil
}

func (m *MockCartCache) Delete(_ context.Context, userID string) error {
	m.Deleted = append(m.Deleted, userID)
	delete(m.Entries, userID)
	return nil
}

// MockCheckoutTx records every write the orchestrator makes so tests can
// assert ordering and all-or-nothing behaviour
type stockDecrement struct {
	ProductID int64
	Quantity  int32
}

type usageIncrement struct {
	CouponID int64
	Quantity int32
}

type MockCheckoutTx struct {
	Cart    *domain.Cart
	CartErr error

	Products map[int64]*domain.Product
	Coupons  map[string]*domain.Coupon

	DecrementErrs map[int64]error
	IncrementErr  error
	OrderErr      error

	Decrements    []stockDecrement
	Increments    []usageIncrement
	InsertedOrder *domain.Order
	Usages        []*domain.CouponUsage
	ClearedUsers  []string
	OutboxEvents  []string // event types in insertion order
}

func (m *MockCheckoutTx) CartForUpdate(_ context.Context, _ string) (*domain.Cart, error) {
	if m.CartErr != nil {
		return nil, m.CartErr
	}
	if m.Cart == nil {
		return nil, repository.ErrCartNotFound
	}
	return m.Cart, nil
}

func (m *MockCheckoutTx) ProductForUpdate(_ context.Context, productID int64) (*domain.Product, error) {
	product, ok := m.Products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *MockCheckoutTx) DecrementStock(_ context.Context, productID int64, quantity int32) error {
	if err := m.DecrementErrs[productID]; err != nil {
		return err
	}
	m.Decrements = append(m.Decrements, stockDecrement{ProductID: productID, Quantity: quantity})
	return nil
}

func (m *MockCheckoutTx) InsertOrder(_ context.Context, order *domain.Order) error {
	if m.OrderErr != nil {
		return m.OrderErr
	}
	m.InsertedOrder = order
	return nil
}

func (m *MockCheckoutTx) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	coupon, ok := m.Coupons[code]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	return coupon, nil
}

func (m *MockCheckoutTx) IncrementCouponUsage(_ context.Context, couponID int64, quantity int32) error {
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.Increments = append(m.Increments, usageIncrement{CouponID: couponID, Quantity: quantity})
	return nil
}

func (m *MockCheckoutTx) InsertCouponUsage(_ context.Context, usage *domain.CouponUsage) error {
	m.Usages = append(m.Usages, usage)
	return nil
}

func (m *MockCheckoutTx) ClearCart(_ context.Context, userID string) error {
	m.ClearedUsers = append(m.ClearedUsers, userID)
	return nil
}

func (m *MockCheckoutTx) InsertOutboxEvent(_ context.Context, _, eventType string, _ []byte) error {
	m.OutboxEvents = append(m.OutboxEvents, eventType)
	return nil
}

// MockCheckoutStore implements repository.CheckoutStore for testing
type MockCheckoutStore struct {
	Tx         *MockCheckoutTx
	BeginErr   error
	RolledBack bool
	Committed  bool
}

func (m *MockCheckoutStore) WithinCheckoutTx(_ context.Context, fn func(tx repository.CheckoutTx) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	if err := fn(m.Tx); err != nil {
		m.RolledBack = true
		return err
	}
	m.Committed = true
	return nil
}
