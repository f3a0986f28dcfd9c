package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the HTTP router over the handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{lineID}", h.UpdateQuantity)
		r.Delete("/items/{lineID}", h.RemoveLine)
		r.Put("/delivery-mode", h.SetDeliveryMode)
		r.Put("/branch", h.SelectBranch)
		r.Put("/payment-method", h.SelectPaymentMethod)
		r.Post("/coupon", h.ApplyCoupon)
		r.Delete("/coupon", h.RemoveCoupon)
		r.Post("/confirm", h.ConfirmOrder)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)
	})

	// Manager dashboard endpoints.
	r.Route("/manager/orders", func(r chi.Router) {
		r.Get("/", h.ListActiveOrders)
		r.Put("/{orderID}/state", h.ChangeOrderState)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/validate", h.ValidateCoupon)
		r.Get("/available", h.ListAvailableCoupons)
	})

	r.Route("/loyalty", func(r chi.Router) {
		r.Get("/balance", h.GetBalance)
		r.Get("/history", h.GetLoyaltyHistory)
		r.Get("/rewards", h.ListRewards)
		r.Post("/redeem", h.RedeemReward)
	})

	r.Route("/trivia", func(r chi.Router) {
		r.Post("/sessions", h.StartTrivia)
		r.Get("/sessions/{sessionID}/question", h.NextTriviaQuestion)
		r.Post("/sessions/{sessionID}/answers", h.AnswerTrivia)
		r.Post("/sessions/{sessionID}/finalize", h.FinalizeTrivia)
		r.Get("/history", h.TriviaHistory)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/branches", h.ListBranches)

	return r
}
