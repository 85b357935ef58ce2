package domain

// CheckoutStatus tracks the checkout transaction through its states. The
// happy path runs straight through to Committed; any failure before that
// moves to Aborted and the transaction rolls back.
type CheckoutStatus string

const (
	CheckoutStatusValidating           CheckoutStatus = "VALIDATING"
	CheckoutStatusReservingStock       CheckoutStatus = "RESERVING_STOCK"
	CheckoutStatusPersisting           CheckoutStatus = "PERSISTING"
	CheckoutStatusRecordingCouponUsage CheckoutStatus = "RECORDING_COUPON_USAGE"
	CheckoutStatusClearingCart         CheckoutStatus = "CLEARING_CART"
	CheckoutStatusCommitted            CheckoutStatus = "COMMITTED"
	CheckoutStatusAborted              CheckoutStatus = "ABORTED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusValidating:           {CheckoutStatusReservingStock, CheckoutStatusAborted},
	CheckoutStatusReservingStock:       {CheckoutStatusPersisting, CheckoutStatusAborted},
	CheckoutStatusPersisting:           {CheckoutStatusRecordingCouponUsage, CheckoutStatusAborted},
	CheckoutStatusRecordingCouponUsage: {CheckoutStatusClearingCart, CheckoutStatusAborted},
	CheckoutStatusClearingCart:         {CheckoutStatusCommitted, CheckoutStatusAborted},
}

// CanTransitionTo reports whether moving from one status to another is legal.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCommitted || s == CheckoutStatusAborted
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
