package domain

import "time"

// Cart holds one user's pending purchase. There is at most one line per
// product; adding an already-present product merges quantities.
type Cart struct {
	UserID     string     `json:"user_id"`
	Items      []CartItem `json:"items"`
	TotalPrice float64    `json:"total_price"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is a single product line. UnitPrice is the effective per-unit
// price at the time of the last mutation: when CouponCode is set it already
// reflects that coupon's discount against the full line quantity.
type CartItem struct {
	ProductID  int64   `json:"product_id"`
	Quantity   int32   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CouponCode string  `json:"coupon_code,omitempty"`
}

// Subtotal returns the line total at the effective unit price.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Item returns the line for the given product, or nil if the cart has none.
func (c *Cart) Item(productID int64) *CartItem {
	for idx := range c.Items {
		if c.Items[idx].ProductID == productID {
			return &c.Items[idx]
		}
	}
	return nil
}

// RecomputeTotal refreshes the cached TotalPrice projection from the lines.
// Every mutation must call this; TotalPrice is never set independently.
func (c *Cart) RecomputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	c.TotalPrice = total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
