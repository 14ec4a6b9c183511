// Package catalog decodes the seed catalog: products, product sets, shipping
// methods and discounts.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/shipping"
)

// Set is a product set with its directly attached products.
type Set struct {
	ID         string
	Name       string
	ParentID   string
	ProductIDs []string
}

// Catalog is a decoded seed file.
type Catalog struct {
	Products        []product.Product
	Sets            []Set
	ShippingMethods []shipping.Method
	Discounts       []discount.Discount
}

type pricesJSON map[string]decimal.Decimal

type optionJSON struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Prices pricesJSON `json:"prices"`
}

type schemaJSON struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Required bool         `json:"required"`
	Prices   pricesJSON   `json:"prices"`
	Options  []optionJSON `json:"options"`
}

type productJSON struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Prices  pricesJSON   `json:"prices"`
	Schemas []schemaJSON `json:"schemas"`
}

type setJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Products []string `json:"products"`
}

type priceRangeJSON struct {
	Currency string          `json:"currency"`
	Start    decimal.Decimal `json:"start"`
	Price    decimal.Decimal `json:"price"`
}

type shippingJSON struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Prices []priceRangeJSON `json:"prices"`
}

type conditionJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type groupJSON struct {
	Name       string          `json:"name"`
	Conditions []conditionJSON `json:"conditions"`
}

type discountJSON struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Code              string           `json:"code"`
	Percentage        *decimal.Decimal `json:"percentage"`
	Amounts           pricesJSON       `json:"amounts"`
	TargetType        string           `json:"target_type"`
	TargetIsAllowList *bool            `json:"target_is_allow_list"`
	Active            *bool            `json:"active"`
	Priority          int              `json:"priority"`
	CreatedAt         *time.Time       `json:"created_at"`
	Groups            []groupJSON      `json:"condition_groups"`
	Products          []string         `json:"products"`
	ProductSets       []string         `json:"product_sets"`
	ShippingMethods   []string         `json:"shipping_methods"`
}

type catalogJSON struct {
	Products        []productJSON  `json:"products"`
	ProductSets     []setJSON      `json:"product_sets"`
	ShippingMethods []shippingJSON `json:"shipping_methods"`
	Discounts       []discountJSON `json:"discounts"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	c := &Catalog{}
	for _, p := range raw.Products {
		v, err := p.product()
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", p.ID)
		}
		c.Products = append(c.Products, v)
	}
	for _, s := range raw.ProductSets {
		if s.ID == "" {
			return nil, errors.New("product set without id")
		}
		c.Sets = append(c.Sets, Set{ID: s.ID, Name: s.Name, ParentID: s.ParentID, ProductIDs: s.Products})
	}
	for _, m := range raw.ShippingMethods {
		v, err := m.method()
		if err != nil {
			return nil, errors.Wrapf(err, "shipping method %s", m.ID)
		}
		c.ShippingMethods = append(c.ShippingMethods, v)
	}
	for _, d := range raw.Discounts {
		v, err := d.discount()
		if err != nil {
			return nil, errors.Wrapf(err, "discount %s", d.ID)
		}
		c.Discounts = append(c.Discounts, v)
	}
	return c, nil
}

func (p pricesJSON) prices() (money.Prices, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(money.Prices, len(p))
	for code, v := range p {
		c, err := money.ParseCurrency(code)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}

func (p productJSON) product() (product.Product, error) {
	if p.ID == "" {
		return product.Product{}, errors.New("missing id")
	}
	prices, err := p.Prices.prices()
	if err != nil {
		return product.Product{}, err
	}
	out := product.Product{ID: p.ID, Name: p.Name, Prices: prices}
	for _, s := range p.Schemas {
		schema := product.Schema{
			ID:       s.ID,
			Name:     s.Name,
			Type:     product.SchemaType(s.Type),
			Required: s.Required,
		}
		switch schema.Type {
		case product.SchemaSelect, product.SchemaString, product.SchemaNumeric, product.SchemaBoolean:
		default:
			return product.Product{}, errors.Errorf("schema %s: unknown type %q", s.ID, s.Type)
		}
		if schema.Prices, err = s.Prices.prices(); err != nil {
			return product.Product{}, errors.Wrapf(err, "schema %s", s.ID)
		}
		for _, o := range s.Options {
			opt := product.Option{ID: o.ID, Name: o.Name}
			if opt.Prices, err = o.Prices.prices(); err != nil {
				return product.Product{}, errors.Wrapf(err, "option %s/%s", s.ID, o.ID)
			}
			schema.Options = append(schema.Options, opt)
		}
		out.Schemas = append(out.Schemas, schema)
	}
	return out, nil
}

func (m shippingJSON) method() (shipping.Method, error) {
	out := shipping.Method{ID: m.ID, Name: m.Name}
	for _, r := range m.Prices {
		c, err := money.ParseCurrency(r.Currency)
		if err != nil {
			return shipping.Method{}, err
		}
		if r.Price.IsNegative() {
			return shipping.Method{}, errors.Errorf("negative price in %s", c)
		}
		out.PriceRanges = append(out.PriceRanges, shipping.PriceRange{Currency: c, Start: r.Start, Price: r.Price})
	}
	return out, nil
}

func (d discountJSON) discount() (discount.Discount, error) {
	if d.ID == "" {
		return discount.Discount{}, errors.New("missing id")
	}
	out := discount.Discount{
		ID:                d.ID,
		Name:              d.Name,
		Code:              d.Code,
		TargetType:        discount.TargetType(d.TargetType),
		TargetIsAllowList: true,
		Active:            true,
		Priority:          d.Priority,
		ProductIDs:        d.Products,
		ProductSetIDs:     d.ProductSets,
		ShippingMethodIDs: d.ShippingMethods,
	}
	if d.TargetIsAllowList != nil {
		out.TargetIsAllowList = *d.TargetIsAllowList
	}
	if d.Active != nil {
		out.Active = *d.Active
	}
	if d.CreatedAt != nil {
		out.CreatedAt = *d.CreatedAt
	}
	if d.Percentage != nil {
		out.Percentage = decimal.NewNullDecimal(*d.Percentage)
	}

	var err error
	if out.Amounts, err = d.Amounts.prices(); err != nil {
		return discount.Discount{}, err
	}

	for gi, g := range d.Groups {
		group := discount.ConditionGroup{Name: g.Name}
		for ci, c := range g.Conditions {
			payload := []byte(c.Value)
			if len(payload) == 0 {
				payload = []byte("{}")
			}
			v, err := discount.DecodeConditionValue(discount.ConditionType(c.Type), payload)
			if err != nil {
				return discount.Discount{}, errors.Wrapf(err, "group %d condition %d", gi, ci)
			}
			group.Conditions = append(group.Conditions, discount.Condition{Value: v})
		}
		out.Groups = append(out.Groups, group)
	}

	if err := out.Validate(); err != nil {
		return discount.Discount{}, err
	}
	return out, nil
}
