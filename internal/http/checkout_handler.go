package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CheckoutAPI is what the handler needs from the checkout orchestrator.
type CheckoutAPI interface {
	CreateOrderFromCart(ctx context.Context, userID string) (uuid.UUID, error)
}

type CheckoutHandler struct {
	checkout CheckoutAPI
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutAPI, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutResponseDTO struct {
	OrderID string `json:"order_id"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := h.checkout.CreateOrderFromCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{OrderID: orderID.String()})
}
