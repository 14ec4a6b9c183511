package checkout

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/shipping"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockSetRepo struct {
	nodes []product.SetNode
}

func (m *mockSetRepo) Tree(_ context.Context) (*product.SetTree, error) {
	return product.NewSetTree(m.nodes), nil
}

type mockShippingRepo struct {
	methods map[string]shipping.Method
}

func (m *mockShippingRepo) GetByID(_ context.Context, id string) (*shipping.Method, error) {
	method, ok := m.methods[id]
	if !ok {
		return nil, shipping.ErrNotFound
	}
	return &method, nil
}

type mockDiscountRepo struct {
	discounts []discount.Discount
	listErr   error
	// codes records the codes passed to ListActiveCoupons.
	codes []string
}

func (m *mockDiscountRepo) ListActiveSales(_ context.Context) ([]discount.Discount, error) {
	var out []discount.Discount
	for _, d := range m.discounts {
		if d.Active && !d.IsCoupon() {
			out = append(out, d)
		}
	}
	return out, m.listErr
}

func (m *mockDiscountRepo) ListActiveCoupons(_ context.Context, codes []string) ([]discount.Discount, error) {
	m.codes = codes
	var out []discount.Discount
	for _, d := range m.discounts {
		if d.Active && slices.ContainsFunc(codes, d.MatchesCode) {
			out = append(out, d)
		}
	}
	return out, m.listErr
}

func (m *mockDiscountRepo) GetByCode(_ context.Context, code string) (*discount.Discount, error) {
	for _, d := range m.discounts {
		if d.MatchesCode(code) {
			return &d, nil
		}
	}
	return nil, discount.ErrNotFound
}

func (m *mockDiscountRepo) Create(_ context.Context, d *discount.Discount) error {
	m.discounts = append(m.discounts, *d)
	return nil
}

type mockUsage struct {
	uses map[string]int
}

func (m *mockUsage) CountUses(_ context.Context, discountID string) (int, error) {
	return m.uses[discountID], nil
}

func (m *mockUsage) CountUserUses(_ context.Context, discountID, userID string) (int, error) {
	return m.uses[discountID+"/"+userID], nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func allCurrencies(s string) money.Prices {
	p := money.Prices{}
	for _, c := range money.Currencies() {
		p[c] = dec(s)
	}
	return p
}

func testProducts() *mockProductRepo {
	return &mockProductRepo{byID: map[string]product.Product{
		"shirt": {
			ID:     "shirt",
			Name:   "Shirt",
			Prices: money.Prices{money.PLN: dec("120"), money.EUR: dec("30")},
			SetIDs: []string{"shirts"},
			Schemas: []product.Schema{{
				ID:     "size",
				Name:   "Size",
				Type:   product.SchemaSelect,
				Prices: money.Prices{money.PLN: dec("0")},
				Options: []product.Option{
					{ID: "m", Name: "M"},
					{ID: "xl", Name: "XL", Prices: money.Prices{money.PLN: dec("10")}},
				},
			}},
		},
		"mug": {
			ID:     "mug",
			Name:   "Mug",
			Prices: money.Prices{money.PLN: dec("80")},
		},
	}}
}

func testShipping() *mockShippingRepo {
	return &mockShippingRepo{methods: map[string]shipping.Method{
		"courier": {
			ID:   "courier",
			Name: "Courier",
			PriceRanges: []shipping.PriceRange{
				{Currency: money.PLN, Start: dec("0"), Price: dec("20")},
				{Currency: money.PLN, Start: dec("500"), Price: dec("0")},
			},
		},
	}}
}

func percentSale(id, pct string, target discount.TargetType) discount.Discount {
	return discount.Discount{
		ID:                id,
		Name:              id,
		Percentage:        decimal.NullDecimal{Decimal: dec(pct), Valid: true},
		TargetType:        target,
		TargetIsAllowList: true,
		Active:            true,
	}
}

var fixedNow = time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, discounts *mockDiscountRepo, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := NewService(
		testProducts(),
		&mockSetRepo{nodes: []product.SetNode{{ID: "clothing"}, {ID: "shirts", ParentID: "clothing"}}},
		testShipping(),
		discounts,
		&mockUsage{},
		opts...,
	)
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestProcessCart_Validation(t *testing.T) {
	svc := newTestService(t, &mockDiscountRepo{})

	t.Run("empty items", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{Currency: money.PLN})
		require.ErrorIs(t, err, ErrEmptyItems)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{
			Currency: money.PLN,
			Items:    []ItemRequest{{ProductID: "mug", Quantity: dec("0")}},
		})
		var iqErr *InvalidQuantityError
		require.ErrorAs(t, err, &iqErr)
		assert.Equal(t, "mug", iqErr.ProductID)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{
			Currency: "XXX",
			Items:    []ItemRequest{{ProductID: "mug", Quantity: dec("1")}},
		})
		require.ErrorIs(t, err, money.ErrUnknownCurrency)
	})

	t.Run("product not found", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{
			Currency: money.PLN,
			Items:    []ItemRequest{{ProductID: "missing", Quantity: dec("1")}},
		})
		var pnfErr *ProductNotFoundError
		require.ErrorAs(t, err, &pnfErr)
		assert.Equal(t, "missing", pnfErr.ProductID)
	})

	t.Run("shipping method not found", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{
			Currency:         money.PLN,
			Items:            []ItemRequest{{ProductID: "mug", Quantity: dec("1")}},
			ShippingMethodID: "drone",
		})
		var smErr *ShippingMethodNotFoundError
		require.ErrorAs(t, err, &smErr)
		assert.Equal(t, "drone", smErr.MethodID)
	})

	t.Run("missing price", func(t *testing.T) {
		_, err := svc.ProcessCart(context.Background(), Request{
			Currency: money.EUR,
			Items:    []ItemRequest{{ProductID: "mug", Quantity: dec("1")}},
		})
		var pmErr *product.PriceMissingError
		require.ErrorAs(t, err, &pmErr)
		assert.Equal(t, money.EUR, pmErr.Currency)
	})
}

func TestProcessCart_NoDiscounts(t *testing.T) {
	svc := newTestService(t, &mockDiscountRepo{})

	q, err := svc.ProcessCart(context.Background(), Request{
		Currency: money.PLN,
		Items: []ItemRequest{
			{ID: "line-1", ProductID: "shirt", Quantity: dec("2"), Schemas: map[string]string{"size": "xl"}},
			{ProductID: "mug", Quantity: dec("1")},
		},
		ShippingMethodID: "courier",
	})
	require.NoError(t, err)

	require.Len(t, q.Lines, 2)
	assert.Equal(t, "line-1", q.Lines[0].CartItemID)
	assert.Equal(t, "130.00", q.Lines[0].Price.StringFixed())
	assert.Equal(t, "1", q.Lines[1].CartItemID)
	assert.Equal(t, "340.00", q.CartTotal().StringFixed())
	assert.Equal(t, "20.00", q.ShippingPrice.StringFixed())
	assert.Equal(t, "360.00", q.Summary().StringFixed())
	assert.Empty(t, q.Sales)
	assert.Empty(t, q.Coupons)
	assert.Nil(t, q.User)
}

func TestProcessCart_FreeShippingRange(t *testing.T) {
	svc := newTestService(t, &mockDiscountRepo{})

	q, err := svc.ProcessCart(context.Background(), Request{
		Currency:         money.PLN,
		Items:            []ItemRequest{{ProductID: "shirt", Quantity: dec("5")}},
		ShippingMethodID: "courier",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", q.ShippingPrice.StringFixed())
}

func TestProcessCart_SalesAndCoupons(t *testing.T) {
	clothing := percentSale("clothing", "10", discount.TargetProductSets)
	clothing.ProductSetIDs = []string{"clothing"}

	coupon := percentSale("ship", "50", discount.TargetShippingPrice)
	coupon.Code = "HALFSHIP"
	coupon.ShippingMethodIDs = []string{"courier"}

	other := percentSale("other", "90", discount.TargetOrderValue)
	other.Code = "OTHER"

	repo := &mockDiscountRepo{discounts: []discount.Discount{clothing, coupon, other}}
	svc := newTestService(t, repo)

	q, err := svc.ProcessCart(context.Background(), Request{
		Currency: money.PLN,
		Items: []ItemRequest{
			{ProductID: "shirt", Quantity: dec("1")},
			{ProductID: "mug", Quantity: dec("1")},
		},
		Coupons:          []string{"halfship", "UNKNOWN"},
		ShippingMethodID: "courier",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"halfship", "UNKNOWN"}, repo.codes)
	assert.Equal(t, "108.00", q.Lines[0].Price.StringFixed())
	assert.Equal(t, "80.00", q.Lines[1].Price.StringFixed())
	assert.Equal(t, "10.00", q.ShippingPrice.StringFixed())
	assert.Equal(t, "198.00", q.Summary().StringFixed())

	require.Len(t, q.Sales, 1)
	assert.Equal(t, "clothing", q.Sales[0].Discount.ID)
	require.Len(t, q.CartResource.Coupons, 1)
	assert.Equal(t, "ship", q.CartResource.Coupons[0].Discount.ID)
	require.Len(t, q.FoundCoupons, 1)
}

func TestProcessCart_Identity(t *testing.T) {
	vip := percentSale("vip", "20", discount.TargetOrderValue)
	vip.Groups = []discount.ConditionGroup{{
		ID: "vip-only",
		Conditions: []discount.Condition{{
			ID:    "role",
			Value: discount.UserInRole{Roles: []string{"vip"}, IsAllowList: true},
		}},
	}}
	svc := newTestService(t, &mockDiscountRepo{discounts: []discount.Discount{vip}})

	req := Request{Currency: money.PLN, Items: []ItemRequest{{ProductID: "mug", Quantity: dec("1")}}}

	q, err := svc.ProcessCart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "80.00", q.CartTotal().StringFixed())

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "u1", Roles: []string{"vip"}})
	q, err = svc.ProcessCart(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "64.00", q.CartTotal().StringFixed())
	require.NotNil(t, q.User)
	assert.Equal(t, "u1", q.User.UserID)
}

func TestProcessCart_Location(t *testing.T) {
	var weekend [7]bool
	weekend[time.Saturday] = true
	weekend[time.Sunday] = true

	sale := percentSale("weekend", "50", discount.TargetOrderValue)
	sale.Groups = []discount.ConditionGroup{{
		ID:         "weekend",
		Conditions: []discount.Condition{{ID: "days", Value: discount.WeekdayIn{Weekday: weekend}}},
	}}

	// Friday 23:30 UTC is already Saturday in Warsaw.
	friday := time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	req := Request{Currency: money.PLN, Items: []ItemRequest{{ProductID: "mug", Quantity: dec("1")}}}

	utc := newTestService(t, &mockDiscountRepo{discounts: []discount.Discount{sale}},
		WithClock(func() time.Time { return friday }))
	q, err := utc.ProcessCart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "80.00", q.CartTotal().StringFixed())

	local := newTestService(t, &mockDiscountRepo{discounts: []discount.Discount{sale}},
		WithClock(func() time.Time { return friday }), WithLocation(warsaw))
	q, err = local.ProcessCart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "40.00", q.CartTotal().StringFixed())
}

func TestProcessCart_RepositoryError(t *testing.T) {
	svc := newTestService(t, &mockDiscountRepo{listErr: errors.New("connection refused")})

	_, err := svc.ProcessCart(context.Background(), Request{
		Currency: money.PLN,
		Items:    []ItemRequest{{ProductID: "mug", Quantity: dec("1")}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list sales")
}

func TestProcessCart_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	sale := percentSale("all", "10", discount.TargetOrderValue)
	svc := newTestService(t, &mockDiscountRepo{discounts: []discount.Discount{sale}},
		WithMeterProvider(mp), WithTracerProvider(tp))

	_, err := svc.ProcessCart(context.Background(), Request{
		Currency: money.PLN,
		Items:    []ItemRequest{{ProductID: "mug", Quantity: dec("1")}},
	})
	require.NoError(t, err)

	_, err = svc.ProcessCart(context.Background(), Request{Currency: money.PLN})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "storefront.discounts.applied" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "checkout.ProcessCart", ended[0].Name())
	assert.True(t, strings.Contains(ended[1].Status().Description, "items required"))
}

func TestProductPrice(t *testing.T) {
	clothing := percentSale("clothing", "25", discount.TargetProductSets)
	clothing.ProductSetIDs = []string{"clothing"}

	bulk := percentSale("bulk", "50", discount.TargetProducts)
	bulk.ProductIDs = []string{"shirt"}
	bulk.Groups = []discount.ConditionGroup{{
		ID:         "bulk",
		Conditions: []discount.Condition{{ID: "len", Value: discount.CartLength{}}},
	}}

	fixed := discount.Discount{
		ID:                "fixed",
		Amounts:           allCurrencies("5"),
		TargetType:        discount.TargetProducts,
		TargetIsAllowList: true,
		ProductIDs:        []string{"shirt"},
		Active:            true,
	}

	svc := newTestService(t, &mockDiscountRepo{discounts: []discount.Discount{clothing, bulk, fixed}})

	q, err := svc.ProductPrice(context.Background(), "shirt", money.EUR)
	require.NoError(t, err)
	assert.Equal(t, "30.00", q.PriceInitial.StringFixed())
	assert.Equal(t, "17.50", q.Price.StringFixed())
	require.Len(t, q.Sales, 2)

	q, err = svc.ProductPrice(context.Background(), "mug", money.PLN)
	require.NoError(t, err)
	assert.Equal(t, "80.00", q.Price.StringFixed())
	assert.Empty(t, q.Sales)

	_, err = svc.ProductPrice(context.Background(), "missing", money.PLN)
	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)

	_, err = svc.ProductPrice(context.Background(), "mug", money.EUR)
	var pmErr *product.PriceMissingError
	require.ErrorAs(t, err, &pmErr)
}
