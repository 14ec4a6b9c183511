package handler

import (
	"net/http"
)

// ProcessCart prices a cart with the active sales and the supplied coupons.
func (h *Handler) ProcessCart(w http.ResponseWriter, r *http.Request) {
	var body cartRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	q, err := h.pricer.ProcessCart(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(q))
}
