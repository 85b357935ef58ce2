package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/akosarev/storefront/internal/service"
)

type CouponHandler struct {
	coupons service.CouponValidator
	timeout time.Duration
}

func NewCouponHandler(coupons service.CouponValidator, timeout time.Duration) *CouponHandler {
	return &CouponHandler{
		coupons: coupons,
		timeout: timeout,
	}
}

type ValidateCouponRequestDTO struct {
	Code      string  `json:"code"`
	ProductID int64   `json:"product_id"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type ValidateCouponResponseDTO struct {
	IsValid        bool    `json:"is_valid"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalPrice     float64 `json:"final_price"`
	Message        string  `json:"message"`
}

// Validate is a dry run: it reports whether the coupon would apply right
// now, without reserving any of its quota.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ValidateCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_code", "code must not be empty")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	eval, err := h.coupons.Validate(ctx, userID, req.Code, req.ProductID, req.Quantity, req.UnitPrice)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ValidateCouponResponseDTO{
		IsValid:        eval.Valid,
		DiscountAmount: eval.DiscountAmount,
		FinalPrice:     eval.FinalTotal,
		Message:        eval.Message,
	})
}
