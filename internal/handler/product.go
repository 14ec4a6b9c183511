package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/money"
)

// ProductPrice returns the catalog price of a product after active sales.
// The currency query parameter is required.
func (h *Handler) ProductPrice(w http.ResponseWriter, r *http.Request) {
	c, err := money.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, r, &badRequestError{err: err})
		return
	}

	q, err := h.pricer.ProductPrice(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		var pnf *checkout.ProductNotFoundError
		if errors.As(err, &pnf) {
			writeJSON(w, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "product not found"})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductPriceResponse(q))
}
