// Package api exposes the engine over a thin JSON REST layer. Handlers decode
// the request, delegate to a domain service, and map domain errors to HTTP
// statuses. The authenticated customer arrives in the X-Customer-ID header.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
	"github.com/Yuliannahernandez/backend-app/internal/domain/catalog"
	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/loyalty"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
	"github.com/Yuliannahernandez/backend-app/internal/domain/trivia"
)

// customerHeader carries the authenticated customer ID, resolved by the auth
// layer in front of this service.
const customerHeader = "X-Customer-ID"

// Handler holds the domain services the HTTP layer delegates to.
type Handler struct {
	carts    *cart.Service
	loyalty  *loyalty.Service
	trivia   *trivia.Service
	coupons  *coupon.Validator
	products catalog.ProductRepository
	branches catalog.BranchRepository
}

// NewHandler creates the API handler over the given services.
func NewHandler(
	carts *cart.Service,
	loyaltySvc *loyalty.Service,
	triviaSvc *trivia.Service,
	coupons *coupon.Validator,
	products catalog.ProductRepository,
	branches catalog.BranchRepository,
) *Handler {
	return &Handler{
		carts:    carts,
		loyalty:  loyaltySvc,
		trivia:   triviaSvc,
		coupons:  coupons,
		products: products,
		branches: branches,
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Code: status, Message: err.Error()})
}

// writeError maps a domain error to an HTTP status. Unrecognized errors are
// logged and surfaced as 500 without leaking internals.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, status, errorResponse{Code: status, Message: "internal error"})
		return
	}
	writeErrorStatus(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrBranchNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, reward.ErrNotFound),
		errors.Is(err, trivia.ErrSessionNotFound),
		errors.Is(err, trivia.ErrQuestionNotFound),
		errors.Is(err, trivia.ErrOptionNotFound):
		return http.StatusNotFound

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidDeliveryMode),
		errors.Is(err, coupon.ErrEmptyCode),
		errors.Is(err, trivia.ErrInvalidResponseTime):
		return http.StatusBadRequest

	case errors.Is(err, cart.ErrNoActiveCart),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrBranchRequired),
		errors.Is(err, coupon.ErrNotYetValid),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrGlobalLimitReached),
		errors.Is(err, coupon.ErrCustomerLimitReached),
		errors.Is(err, coupon.ErrMinimumNotMet),
		errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, trivia.ErrSessionCompleted),
		errors.Is(err, trivia.ErrAlreadyAnswered),
		errors.Is(err, trivia.ErrNoMoreQuestions):
		return http.StatusUnprocessableEntity
	}

	var (
		unavailable *cart.ProductUnavailableError
		terminal    *cart.TerminalStateError
		invalid     *cart.InvalidTransitionError
	)
	switch {
	case errors.As(err, &unavailable),
		errors.As(err, &terminal),
		errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// customerID extracts the authenticated customer. Missing header means the
// request never went through the auth layer.
func customerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(customerHeader)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Code:    http.StatusUnauthorized,
			Message: "missing customer identity",
		})
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, errors.Wrap(err, "decode request body"))
		return false
	}
	return true
}
