package api

import "net/http"

type productDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	PrepMinutes int     `json:"prep_minutes"`
	Orderable   bool    `json:"orderable"`
	Category    string  `json:"category,omitempty"`
}

type branchDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Open bool   `json:"open"`
}

// ListProducts returns the orderable catalog view.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = productDTO{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price.InexactFloat64(),
			PrepMinutes: p.PrepMinutes,
			Orderable:   p.Orderable,
			Category:    p.Category,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListBranches returns the store branches.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.branches.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]branchDTO, len(branches))
	for i, b := range branches {
		out[i] = branchDTO{ID: b.ID, Name: b.Name, Open: b.Open}
	}
	writeJSON(w, http.StatusOK, out)
}
