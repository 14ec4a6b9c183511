// Package checkout prices carts and catalog products against the active sales
// and coupons.
package checkout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/shipping"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/checkout"

// ErrEmptyItems is returned for a cart without items.
var ErrEmptyItems = errors.New("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ShippingMethodNotFoundError indicates the chosen shipping method does not
// exist.
type ShippingMethodNotFoundError struct {
	MethodID string
}

func (e *ShippingMethodNotFoundError) Error() string {
	return fmt.Sprintf("shipping method %s not found", e.MethodID)
}

// ItemRequest is a single requested cart line.
type ItemRequest struct {
	// ID identifies the line in the response. Defaults to the line index.
	ID        string
	ProductID string
	Quantity  decimal.Decimal
	Schemas   map[string]string
}

// Request holds the input for pricing a cart.
type Request struct {
	Currency         money.Currency
	SalesChannelID   string
	Items            []ItemRequest
	Coupons          []string
	ShippingMethodID string
}

// Quote is a priced cart.
type Quote struct {
	*pricing.CartResource
	Cart *pricing.Cart
	// FoundCoupons holds the active coupons found for the supplied codes,
	// whether or not they fired.
	FoundCoupons []discount.Discount
	// User is nil for anonymous callers.
	User *auth.Identity
}

// ProductQuote is the catalog price of a product after active sales.
type ProductQuote struct {
	Product      *product.Product
	PriceInitial money.Money
	Price        money.Money
	Sales        []pricing.Applied
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the store time zone used by date, time and weekday
// conditions.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service prices carts and products.
type Service struct {
	products  product.Repository
	sets      product.SetRepository
	shipping  shipping.Repository
	discounts discount.Repository
	usage     pricing.UsageCounter

	loc            *time.Location
	now            func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer  trace.Tracer
	applied metric.Int64Counter
}

// NewService creates a checkout Service.
func NewService(
	products product.Repository,
	sets product.SetRepository,
	shippingMethods shipping.Repository,
	discounts discount.Repository,
	usage pricing.UsageCounter,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		products:       products,
		sets:           sets,
		shipping:       shippingMethods,
		discounts:      discounts,
		usage:          usage,
		loc:            time.UTC,
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	applied, err := s.meterProvider.Meter(instrumentationName).Int64Counter("storefront.discounts.applied",
		metric.WithDescription("Number of discounts applied to carts and products"),
		metric.WithUnit("{discount}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create applied counter")
	}
	s.applied = applied

	return s, nil
}

// evaluation builds the request scoped evaluation context.
func (s *Service) evaluation(ctx context.Context) (*pricing.Evaluation, error) {
	tree, err := s.sets.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load product sets: %w", err)
	}
	user, _ := auth.FromContext(ctx)
	return &pricing.Evaluation{
		User:  user,
		Now:   s.now().In(s.loc),
		Usage: s.usage,
		Sets:  tree,
	}, nil
}

// ProcessCart prices the requested cart and applies every eligible sale and
// every active coupon whose code was supplied. Unknown codes are ignored.
func (s *Service) ProcessCart(ctx context.Context, req Request) (_ *Quote, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ProcessCart",
		trace.WithAttributes(
			attribute.String("currency", string(req.Currency)),
			attribute.Int("items", len(req.Items)),
			attribute.Int("coupons", len(req.Coupons)),
		),
	)
	defer func() {
		endSpan(span, rerr)
	}()

	if !req.Currency.Valid() {
		return nil, errors.Wrapf(money.ErrUnknownCurrency, "currency %q", req.Currency)
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids = append(ids, item.ProductID)
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		productMap[fetched[i].ID] = &fetched[i]
	}

	cart := &pricing.Cart{
		Currency:         req.Currency,
		SalesChannelID:   req.SalesChannelID,
		Items:            make([]pricing.CartItem, 0, len(req.Items)),
		Coupons:          req.Coupons,
		ShippingMethodID: req.ShippingMethodID,
	}
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		id := item.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		cart.Items = append(cart.Items, pricing.CartItem{
			ID:       id,
			Product:  p,
			Quantity: item.Quantity,
			Schemas:  item.Schemas,
		})
	}

	shippingInitial, err := s.shippingPrice(ctx, cart)
	if err != nil {
		return nil, err
	}

	sales, err := s.discounts.ListActiveSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var coupons []discount.Discount
	if len(req.Coupons) > 0 {
		if coupons, err = s.discounts.ListActiveCoupons(ctx, req.Coupons); err != nil {
			return nil, fmt.Errorf("list coupons: %w", err)
		}
	}

	ev, err := s.evaluation(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]discount.Discount, 0, len(sales)+len(coupons))
	candidates = append(candidates, sales...)
	candidates = append(candidates, coupons...)

	res, err := pricing.CalcCartDiscounts(ctx, ev, cart, shippingInitial, candidates)
	if err != nil {
		return nil, errors.Wrap(err, "calculate discounts")
	}

	s.record(ctx, "sale", len(res.Sales))
	s.record(ctx, "coupon", len(res.Coupons))

	zctx.From(ctx).Debug("Cart processed",
		zap.Stringer("cart_total_initial", res.CartTotalInitial),
		zap.Stringer("cart_total", res.CartTotal()),
		zap.Stringer("shipping_price", res.ShippingPrice),
		zap.Int("sales", len(res.Sales)),
		zap.Int("coupons", len(res.Coupons)),
	)

	return &Quote{
		CartResource: res,
		Cart:         cart,
		FoundCoupons: coupons,
		User:         ev.User,
	}, nil
}

// shippingPrice returns the undiscounted price of the cart's shipping method,
// zero when none is chosen.
func (s *Service) shippingPrice(ctx context.Context, cart *pricing.Cart) (money.Money, error) {
	if cart.ShippingMethodID == "" {
		return money.Zero(cart.Currency), nil
	}
	method, err := s.shipping.GetByID(ctx, cart.ShippingMethodID)
	if err != nil {
		if errors.Is(err, shipping.ErrNotFound) {
			return money.Money{}, &ShippingMethodNotFoundError{MethodID: cart.ShippingMethodID}
		}
		return money.Money{}, fmt.Errorf("get shipping method: %w", err)
	}
	value, err := pricing.InitialValue(cart)
	if err != nil {
		return money.Money{}, err
	}
	return method.PriceFor(value)
}

// ProductPrice returns the catalog price of a product in c after active
// sales. Conditions that need a cart fail.
func (s *Service) ProductPrice(ctx context.Context, productID string, c money.Currency) (_ *ProductQuote, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ProductPrice",
		trace.WithAttributes(
			attribute.String("product_id", productID),
			attribute.String("currency", string(c)),
		),
	)
	defer func() {
		endSpan(span, rerr)
	}()

	if !c.Valid() {
		return nil, errors.Wrapf(money.ErrUnknownCurrency, "currency %q", c)
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	base, err := p.BasePrice(c)
	if err != nil {
		return nil, err
	}

	sales, err := s.discounts.ListActiveSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	ev, err := s.evaluation(ctx)
	if err != nil {
		return nil, err
	}

	price, applied, err := pricing.CalcProductDiscounts(ctx, ev, p, base, sales)
	if err != nil {
		return nil, errors.Wrap(err, "calculate discounts")
	}
	s.record(ctx, "sale", len(applied))

	return &ProductQuote{
		Product:      p,
		PriceInitial: base,
		Price:        price,
		Sales:        applied,
	}, nil
}

func (s *Service) record(ctx context.Context, kind string, n int) {
	if n == 0 {
		return
	}
	s.applied.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
