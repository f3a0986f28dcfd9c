package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
)

type lineDTO struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type orderDTO struct {
	ID               string     `json:"id,omitempty"`
	CustomerID       string     `json:"customer_id"`
	BranchID         string     `json:"branch_id,omitempty"`
	PaymentMethodID  string     `json:"payment_method_id,omitempty"`
	DeliveryMode     string     `json:"delivery_mode"`
	State            string     `json:"state"`
	Lines            []lineDTO  `json:"lines"`
	Subtotal         float64    `json:"subtotal"`
	Discount         float64    `json:"discount"`
	ShippingCost     float64    `json:"shipping_cost"`
	Total            float64    `json:"total"`
	CouponCode       string     `json:"coupon_code,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toOrderDTO(o *cart.Order) orderDTO {
	lines := make([]lineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = lineDTO{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			Subtotal:  l.Subtotal.InexactFloat64(),
		}
	}
	return orderDTO{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		BranchID:         o.BranchID,
		PaymentMethodID:  o.PaymentMethodID,
		DeliveryMode:     string(o.DeliveryMode),
		State:            string(o.State),
		Lines:            lines,
		Subtotal:         o.Subtotal.InexactFloat64(),
		Discount:         o.Discount.InexactFloat64(),
		ShippingCost:     o.ShippingCost.InexactFloat64(),
		Total:            o.Total.InexactFloat64(),
		CouponCode:       o.CouponCode,
		EstimatedMinutes: o.EstimatedMinutes,
		CreatedAt:        o.CreatedAt,
		ConfirmedAt:      o.ConfirmedAt,
		CompletedAt:      o.CompletedAt,
	}
}

// GetCart returns the customer's active cart, or an empty cart view.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	o, err := h.carts.GetCart(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// AddItem adds a product to the cart, creating the cart on first use.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.AddItem(r.Context(), cid, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// UpdateQuantity changes a cart line's quantity.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.UpdateQuantity(r.Context(), cid, chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// RemoveLine deletes a cart line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	o, err := h.carts.RemoveLine(r.Context(), cid, chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// SetDeliveryMode switches between home delivery and pickup.
func (h *Handler) SetDeliveryMode(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.SetDeliveryMode(r.Context(), cid, cart.DeliveryMode(req.Mode))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// SelectBranch attaches a pickup/preparation branch to the cart.
func (h *Handler) SelectBranch(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		BranchID string `json:"branch_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.SelectBranch(r.Context(), cid, req.BranchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// SelectPaymentMethod stores the chosen payment method.
func (h *Handler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentMethodID string `json:"payment_method_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.SelectPaymentMethod(r.Context(), cid, req.PaymentMethodID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// ApplyCoupon validates and attaches a coupon code to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
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
	o, err := h.carts.ApplyCoupon(r.Context(), cid, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// RemoveCoupon detaches the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	o, err := h.carts.RemoveCoupon(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// ClearCart removes every line from the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	o, err := h.carts.Clear(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// ConfirmOrder turns the cart into a confirmed order.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	o, err := h.carts.Confirm(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}
