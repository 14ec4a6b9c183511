package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Currency
		wantErr bool
	}{
		{name: "upper", in: "PLN", want: PLN},
		{name: "lower with spaces", in: " eur ", want: EUR},
		{name: "unknown", in: "XXX", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinimalPrice(t *testing.T) {
	assert.Equal(t, "0.01", MinimalPrice(PLN).Amount().String())
	assert.Equal(t, "1", MinimalPrice(JPY).Amount().String())
}

func TestMoney_AddSub(t *testing.T) {
	a := New(d("10.50"), PLN)
	b := New(d("0.75"), PLN)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, d("11.25").Equal(sum.Amount()))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, d("9.75").Equal(diff.Amount()))
}

func TestMoney_Mismatch(t *testing.T) {
	a := New(d("1"), PLN)
	b := New(d("1"), EUR)

	_, err := a.Add(b)
	var mmErr *MismatchError
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, PLN, mmErr.Left)
	assert.Equal(t, EUR, mmErr.Right)

	_, err = a.Sub(b)
	require.ErrorAs(t, err, &mmErr)

	_, err = a.Cmp(b)
	require.ErrorAs(t, err, &mmErr)

	_, err = a.Max(b)
	require.ErrorAs(t, err, &mmErr)
}

func TestMoney_Percent(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		pct    string
		cur    Currency
		want   string
	}{
		{name: "half of 360", amount: "360", pct: "50", cur: PLN, want: "180"},
		{name: "quarter of 20", amount: "20", pct: "25", cur: PLN, want: "5"},
		{name: "rounds half up", amount: "0.10", pct: "5", cur: PLN, want: "0.01"},
		{name: "rounds down below half", amount: "0.10", pct: "4", cur: PLN, want: "0"},
		{name: "zero digit currency", amount: "999", pct: "15", cur: JPY, want: "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(d(tt.amount), tt.cur).Percent(d(tt.pct))
			assert.True(t, d(tt.want).Equal(got.Amount()), "got %s", got)
			assert.Equal(t, tt.cur, got.Currency())
		})
	}
}

func TestMoney_MaxMin(t *testing.T) {
	a := New(d("5"), USD)
	b := New(d("7"), USD)

	hi, err := a.Max(b)
	require.NoError(t, err)
	assert.True(t, hi.Equal(b))

	lo, err := a.Min(b)
	require.NoError(t, err)
	assert.True(t, lo.Equal(a))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "12.50 PLN", New(d("12.5"), PLN).String())
	assert.Equal(t, "1200 JPY", New(d("1200"), JPY).String())
}

func TestPrices(t *testing.T) {
	p := Prices{PLN: d("50"), EUR: d("12")}

	m, ok := p.Get(PLN)
	require.True(t, ok)
	assert.True(t, m.Equal(New(d("50"), PLN)))

	_, ok = p.Get(GBP)
	assert.False(t, ok)

	assert.Equal(t, []Currency{GBP, USD, CZK, JPY}, p.Missing())
}
