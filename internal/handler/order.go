package handler

import (
	"net/http"
)

// PlaceOrder prices the cart strictly and persists it as an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
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

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}
