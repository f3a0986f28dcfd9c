package api

import (
	"net/http"
	"time"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
)

type couponDTO struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Description   string    `json:"description,omitempty"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue float64   `json:"discount_value"`
	MinimumAmount float64   `json:"minimum_amount"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidTo       time.Time `json:"valid_to"`
}

func toCouponDTO(c *coupon.Coupon) couponDTO {
	return couponDTO{
		ID:            c.ID,
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue.InexactFloat64(),
		MinimumAmount: c.MinimumAmount.InexactFloat64(),
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
	}
}

// ValidateCoupon checks a code for the customer without applying it.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.coupons.Validate(r.Context(), req.Code, cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponDTO(c))
}

// ListAvailableCoupons returns coupons the customer can still redeem.
func (h *Handler) ListAvailableCoupons(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	available, err := h.coupons.ListAvailable(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]couponDTO, len(available))
	for i := range available {
		out[i] = toCouponDTO(&available[i])
	}
	writeJSON(w, http.StatusOK, out)
}
