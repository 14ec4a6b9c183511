// Package handler serves the storefront HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/order"
)

const maxBodySize = 1 << 20

// Pricer prices carts and catalog products.
type Pricer interface {
	ProcessCart(ctx context.Context, req checkout.Request) (*checkout.Quote, error)
	ProductPrice(ctx context.Context, productID string, c money.Currency) (*checkout.ProductQuote, error)
}

// OrderPlacer places orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*order.Order, error)
}

var (
	_ Pricer      = (*checkout.Service)(nil)
	_ OrderPlacer = (*order.Service)(nil)
)

// Handler serves the cart, order and product price endpoints.
type Handler struct {
	pricer Pricer
	orders OrderPlacer
}

// New returns a Handler delegating to the given services.
func New(pricer Pricer, orders OrderPlacer) *Handler {
	return &Handler{pricer: pricer, orders: orders}
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/cart/process", h.ProcessCart)
	r.Post("/orders", h.PlaceOrder)
	r.Get("/products/{id}/price", h.ProductPrice)
}

// badRequestError marks malformed input.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequestError{err: errors.Wrap(err, "invalid request body")}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
