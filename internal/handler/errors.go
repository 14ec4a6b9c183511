package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusOf maps domain errors to HTTP statuses. Anything unknown, including
// misconfigured discounts, is a server error.
func statusOf(err error) int {
	var (
		badRequest      *badRequestError
		invalidQuantity *checkout.InvalidQuantityError
		schemaNotFound  *product.SchemaNotFoundError
		schemaRequired  *product.SchemaRequiredError
		optionNotFound  *product.OptionNotFoundError

		productNotFound  *checkout.ProductNotFoundError
		shippingNotFound *checkout.ShippingMethodNotFoundError
		notApplicable    *order.CouponNotApplicableError
		usageLimit       *discount.UsageLimitError
		priceMissing     *product.PriceMissingError
	)
	switch {
	case errors.As(err, &badRequest),
		errors.Is(err, checkout.ErrEmptyItems),
		errors.Is(err, money.ErrUnknownCurrency),
		errors.As(err, &invalidQuantity),
		errors.As(err, &schemaNotFound),
		errors.As(err, &schemaRequired),
		errors.As(err, &optionNotFound):
		return http.StatusBadRequest
	case errors.As(err, &productNotFound),
		errors.As(err, &shippingNotFound),
		errors.Is(err, order.ErrCouponNotFound),
		errors.As(err, &notApplicable),
		errors.As(err, &usageLimit),
		errors.As(err, &priceMissing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}
