package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
)

// ListOrders returns the customer's order history, excluding the live cart.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	orders, err := h.carts.ListOrders(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

// GetOrder returns any order by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	o, err := h.carts.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// CancelOrder cancels a non-terminal order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	o, err := h.carts.Cancel(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// ListActiveOrders returns in-flight orders for the manager dashboard.
func (h *Handler) ListActiveOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.carts.ListActiveOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

// ChangeOrderState performs a manager-driven lifecycle transition.
func (h *Handler) ChangeOrderState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := h.carts.ChangeState(r.Context(), chi.URLParam(r, "orderID"), cart.State(req.State))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func toOrderDTOs(orders []cart.Order) []orderDTO {
	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = toOrderDTO(&orders[i])
	}
	return out
}
