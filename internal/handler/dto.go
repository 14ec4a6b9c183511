package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
)

type itemRequest struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	Quantity  decimal.Decimal   `json:"quantity"`
	Schemas   map[string]string `json:"schemas"`
}

type cartRequest struct {
	Currency         string        `json:"currency"`
	SalesChannelID   string        `json:"sales_channel_id"`
	Items            []itemRequest `json:"items"`
	Coupons          []string      `json:"coupons"`
	ShippingMethodID string        `json:"shipping_method_id"`
}

func (r cartRequest) toDomain() (checkout.Request, error) {
	c, err := money.ParseCurrency(r.Currency)
	if err != nil {
		return checkout.Request{}, &badRequestError{err: err}
	}
	items := make([]checkout.ItemRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = checkout.ItemRequest{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Schemas:   it.Schemas,
		}
	}
	return checkout.Request{
		Currency:         c,
		SalesChannelID:   r.SalesChannelID,
		Items:            items,
		Coupons:          r.Coupons,
		ShippingMethodID: r.ShippingMethodID,
	}, nil
}

type discountResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Code   string `json:"code,omitempty"`
	Amount string `json:"amount"`
}

type itemResponse struct {
	ID           string            `json:"id"`
	ProductID    string            `json:"product_id"`
	Name         string            `json:"name"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Schemas      map[string]string `json:"schemas,omitempty"`
	PriceInitial string            `json:"price_initial"`
	Price        string            `json:"price"`
	Total        string            `json:"total"`
}

type cartResponse struct {
	Currency             money.Currency     `json:"currency"`
	ShippingMethodID     string             `json:"shipping_method_id,omitempty"`
	Items                []itemResponse     `json:"items"`
	CartTotalInitial     string             `json:"cart_total_initial"`
	CartTotal            string             `json:"cart_total"`
	ShippingPriceInitial string             `json:"shipping_price_initial"`
	ShippingPrice        string             `json:"shipping_price"`
	Summary              string             `json:"summary"`
	Sales                []discountResponse `json:"sales"`
	Coupons              []discountResponse `json:"coupons"`
}

func newCartResponse(q *checkout.Quote) cartResponse {
	items := make([]itemResponse, len(q.Lines))
	for i := range q.Lines {
		l := &q.Lines[i]
		items[i] = itemResponse{
			ID:           l.CartItemID,
			ProductID:    l.Product.ID,
			Name:         l.Product.Name,
			Quantity:     l.Quantity,
			Schemas:      l.Schemas,
			PriceInitial: l.PriceInitial.StringFixed(),
			Price:        l.Price.StringFixed(),
			Total:        l.Total().StringFixed(),
		}
	}
	return cartResponse{
		Currency:             q.Currency,
		ShippingMethodID:     q.ShippingMethodID,
		Items:                items,
		CartTotalInitial:     q.CartTotalInitial.StringFixed(),
		CartTotal:            q.CartTotal().StringFixed(),
		ShippingPriceInitial: q.ShippingPriceInitial.StringFixed(),
		ShippingPrice:        q.ShippingPrice.StringFixed(),
		Summary:              q.Summary().StringFixed(),
		Sales:                newDiscounts(q.Sales),
		Coupons:              newDiscounts(q.Coupons),
	}
}

func newDiscounts(applied []pricing.Applied) []discountResponse {
	out := make([]discountResponse, len(applied))
	for i, a := range applied {
		out[i] = discountResponse{
			ID:     a.Discount.ID,
			Name:   a.Discount.Name,
			Code:   a.Discount.Code,
			Amount: a.Amount.StringFixed(),
		}
	}
	return out
}

type orderResponse struct {
	ID                   string             `json:"id"`
	Code                 string             `json:"code"`
	UserID               string             `json:"user_id,omitempty"`
	Currency             money.Currency     `json:"currency"`
	SalesChannelID       string             `json:"sales_channel_id,omitempty"`
	ShippingMethodID     string             `json:"shipping_method_id,omitempty"`
	Items                []itemResponse     `json:"items"`
	CartTotalInitial     string             `json:"cart_total_initial"`
	CartTotal            string             `json:"cart_total"`
	ShippingPriceInitial string             `json:"shipping_price_initial"`
	ShippingPrice        string             `json:"shipping_price"`
	Summary              string             `json:"summary"`
	Discounts            []discountResponse `json:"discounts"`
	CreatedAt            time.Time          `json:"created_at"`
}

func newOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Products))
	for i, p := range o.Products {
		items[i] = itemResponse{
			ID:           p.CartItemID,
			ProductID:    p.ProductID,
			Name:         p.Name,
			Quantity:     p.Quantity,
			Schemas:      p.Schemas,
			PriceInitial: p.PriceInitial.StringFixed(),
			Price:        p.Price.StringFixed(),
			Total:        p.Price.Mul(p.Quantity).Round().StringFixed(),
		}
	}
	discounts := make([]discountResponse, len(o.Redemptions))
	for i, red := range o.Redemptions {
		discounts[i] = discountResponse{
			ID:     red.DiscountID,
			Code:   red.Code,
			Amount: red.Amount.StringFixed(),
		}
	}
	return orderResponse{
		ID:                   o.ID,
		Code:                 o.Code,
		UserID:               o.UserID,
		Currency:             o.Currency,
		SalesChannelID:       o.SalesChannelID,
		ShippingMethodID:     o.ShippingMethodID,
		Items:                items,
		CartTotalInitial:     o.CartTotalInitial.StringFixed(),
		CartTotal:            o.CartTotal.StringFixed(),
		ShippingPriceInitial: o.ShippingPriceInitial.StringFixed(),
		ShippingPrice:        o.ShippingPrice.StringFixed(),
		Summary:              o.Summary.StringFixed(),
		Discounts:            discounts,
		CreatedAt:            o.CreatedAt,
	}
}

type productPriceResponse struct {
	ProductID    string             `json:"product_id"`
	Name         string             `json:"name"`
	Currency     money.Currency     `json:"currency"`
	PriceInitial string             `json:"price_initial"`
	Price        string             `json:"price"`
	Sales        []discountResponse `json:"sales"`
}

func newProductPriceResponse(q *checkout.ProductQuote) productPriceResponse {
	return productPriceResponse{
		ProductID:    q.Product.ID,
		Name:         q.Product.Name,
		Currency:     q.Price.Currency(),
		PriceInitial: q.PriceInitial.StringFixed(),
		Price:        q.Price.StringFixed(),
		Sales:        newDiscounts(q.Sales),
	}
}
