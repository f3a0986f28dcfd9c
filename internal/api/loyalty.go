package api

import (
	"net/http"
	"time"

	"github.com/Yuliannahernandez/backend-app/internal/domain/loyalty"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
)

type ledgerEntryDTO struct {
	ID          string    `json:"id"`
	Points      int       `json:"points"`
	Kind        string    `json:"kind"`
	OrderID     string    `json:"order_id,omitempty"`
	RewardID    string    `json:"reward_id,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type rewardDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	PointsRequired int    `json:"points_required"`
	Kind           string `json:"kind"`
	Value          string `json:"value"`
}

// GetBalance returns the customer's current point balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	balance, err := h.loyalty.Balance(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Balance int `json:"balance"`
	}{Balance: balance})
}

// GetLoyaltyHistory returns the customer's recent ledger entries.
func (h *Handler) GetLoyaltyHistory(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	entries, err := h.loyalty.History(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]ledgerEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListRewards returns the active reward catalog.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	rewards, err := h.loyalty.ListRewards(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]rewardDTO, len(rewards))
	for i, rw := range rewards {
		out[i] = toRewardDTO(rw)
	}
	writeJSON(w, http.StatusOK, out)
}

// RedeemReward spends points on a reward, minting a coupon when applicable.
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		RewardID string `json:"reward_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.loyalty.Redeem(r.Context(), cid, req.RewardID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := struct {
		RemainingBalance int        `json:"remaining_balance"`
		IssuedCoupon     *couponDTO `json:"issued_coupon,omitempty"`
	}{RemainingBalance: result.RemainingBalance}
	if result.IssuedCoupon != nil {
		dto := toCouponDTO(result.IssuedCoupon)
		resp.IssuedCoupon = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

func toLedgerEntryDTO(e loyalty.Entry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:          e.ID,
		Points:      e.Points,
		Kind:        string(e.Kind),
		OrderID:     e.OrderID,
		RewardID:    e.RewardID,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func toRewardDTO(rw reward.Reward) rewardDTO {
	return rewardDTO{
		ID:             rw.ID,
		Name:           rw.Name,
		Description:    rw.Description,
		PointsRequired: rw.PointsRequired,
		Kind:           string(rw.Kind),
		Value:          rw.Value,
	}
}
