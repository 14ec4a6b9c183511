package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newShirt() *Product {
	return &Product{
		ID:     "shirt",
		Name:   "Shirt",
		Prices: money.Prices{money.PLN: dec("100"), money.EUR: dec("25")},
		Schemas: []Schema{
			{
				ID:       "size",
				Type:     SchemaSelect,
				Required: true,
				Options: []Option{
					{ID: "m", Prices: money.Prices{money.PLN: dec("0")}},
					{ID: "xl", Prices: money.Prices{money.PLN: dec("15")}},
				},
			},
			{
				ID:     "gift-wrap",
				Type:   SchemaBoolean,
				Prices: money.Prices{money.PLN: dec("5")},
			},
			{
				ID:     "engraving",
				Type:   SchemaString,
				Prices: money.Prices{money.PLN: dec("20")},
			},
		},
	}
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name       string
		selections map[string]string
		want       string
	}{
		{name: "base option", selections: map[string]string{"size": "m"}, want: "100"},
		{name: "option delta", selections: map[string]string{"size": "xl"}, want: "115"},
		{name: "boolean true", selections: map[string]string{"size": "m", "gift-wrap": "true"}, want: "105"},
		{name: "boolean false", selections: map[string]string{"size": "m", "gift-wrap": "false"}, want: "100"},
		{
			name:       "all deltas",
			selections: map[string]string{"size": "xl", "gift-wrap": "true", "engraving": "J.D."},
			want:       "140",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newShirt().UnitPrice(money.PLN, tt.selections)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got.Amount()), "got %s", got)
		})
	}
}

func TestUnitPrice_Errors(t *testing.T) {
	p := newShirt()

	_, err := p.UnitPrice(money.GBP, map[string]string{"size": "m"})
	var pmErr *PriceMissingError
	require.ErrorAs(t, err, &pmErr)
	assert.Equal(t, money.GBP, pmErr.Currency)

	_, err = p.UnitPrice(money.PLN, nil)
	var reqErr *SchemaRequiredError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "size", reqErr.SchemaID)

	_, err = p.UnitPrice(money.PLN, map[string]string{"size": "xxl"})
	var optErr *OptionNotFoundError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "xxl", optErr.OptionID)

	_, err = p.UnitPrice(money.PLN, map[string]string{"size": "m", "color": "red"})
	var snfErr *SchemaNotFoundError
	require.ErrorAs(t, err, &snfErr)
	assert.Equal(t, "color", snfErr.SchemaID)
}

func TestUnitPrice_MissingDeltaCurrency(t *testing.T) {
	// Schema deltas without an entry for the currency add nothing.
	got, err := newShirt().UnitPrice(money.EUR, map[string]string{"size": "xl", "gift-wrap": "true"})
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(got.Amount()))
}

func TestSetTree(t *testing.T) {
	tree := NewSetTree([]SetNode{
		{ID: "clothing"},
		{ID: "shirts", ParentID: "clothing"},
		{ID: "polo", ParentID: "shirts"},
		{ID: "toys"},
	})

	assert.Equal(t, []string{"polo", "shirts", "clothing"}, tree.Lineage("polo"))
	assert.Equal(t, []string{"toys"}, tree.Lineage("toys"))
	assert.Equal(t, []string{"unknown"}, tree.Lineage("unknown"))

	assert.True(t, tree.InAny([]string{"polo"}, []string{"clothing"}))
	assert.True(t, tree.InAny([]string{"toys", "polo"}, []string{"shirts"}))
	assert.False(t, tree.InAny([]string{"clothing"}, []string{"polo"}))
	assert.False(t, tree.InAny(nil, []string{"clothing"}))
}

func TestSetTree_Cycle(t *testing.T) {
	tree := NewSetTree([]SetNode{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	})

	assert.Equal(t, []string{"a", "b"}, tree.Lineage("a"))
	assert.False(t, tree.InAny([]string{"a"}, []string{"c"}))
}

func TestSetTree_Nil(t *testing.T) {
	var tree *SetTree

	assert.True(t, tree.InAny([]string{"a"}, []string{"a"}))
	assert.False(t, tree.InAny([]string{"a"}, []string{"b"}))
}
