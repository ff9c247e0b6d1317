package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTable(t *testing.T, includeTax bool) *Table {
	t.Helper()
	table, err := NewTable(Config{
		Rates:            map[string]string{"standard": "19", "reduced": "7", "zero": "0"},
		PricesIncludeTax: includeTax,
		Currency:         money.NewCurrency("eur"),
	})
	require.NoError(t, err)
	return table
}

func TestNewTable_Errors(t *testing.T) {
	_, err := NewTable(Config{Rates: map[string]string{"standard": "abc"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rate")

	_, err = NewTable(Config{Rates: map[string]string{"standard": "-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative rate")

	_, err = NewTable(Config{Rates: map[string]string{"reduced": "7"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default tax class")
}

func TestTable_Rate(t *testing.T) {
	table := newTable(t, false)

	assert.True(t, d("19").Equal(table.Rate("standard")))
	assert.True(t, d("7").Equal(table.Rate("reduced")))
	assert.True(t, d("19").Equal(table.Rate("")), "empty class uses default")
	assert.True(t, d("19").Equal(table.Rate("luxury")), "unknown class uses default")
}

func TestTable_LineTotals(t *testing.T) {
	tests := []struct {
		name       string
		includeTax bool
		item       cart.LineItem
		wantNet    string
		wantGross  string
	}{
		{
			name:      "exclusive standard",
			item:      cart.LineItem{UnitPrice: d("50"), Quantity: 2, TaxClass: "standard"},
			wantNet:   "100",
			wantGross: "119",
		},
		{
			name:      "exclusive reduced rounds line tax",
			item:      cart.LineItem{UnitPrice: d("9.99"), Quantity: 3, TaxClass: "reduced"},
			wantNet:   "29.97",
			wantGross: "32.07", // 29.97 * 0.07 = 2.0979 -> 2.10
		},
		{
			name:      "exclusive zero rated",
			item:      cart.LineItem{UnitPrice: d("12.50"), Quantity: 1, TaxClass: "zero"},
			wantNet:   "12.50",
			wantGross: "12.50",
		},
		{
			name:       "inclusive standard",
			includeTax: true,
			item:       cart.LineItem{UnitPrice: d("119"), Quantity: 1, TaxClass: "standard"},
			wantNet:    "100",
			wantGross:  "119",
		},
		{
			name:       "inclusive reduced",
			includeTax: true,
			item:       cart.LineItem{UnitPrice: d("10"), Quantity: 2, TaxClass: "reduced"},
			wantNet:    "18.69", // tax = 20 * 7 / 107 = 1.3084 -> 1.31
			wantGross:  "20",
		},
		{
			name:      "zero quantity",
			item:      cart.LineItem{UnitPrice: d("10"), Quantity: 0},
			wantNet:   "0",
			wantGross: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTable(t, tt.includeTax)
			net, gross := table.LineTotals(tt.item)
			assert.True(t, d(tt.wantNet).Equal(net), "net: expected %s, got %s", tt.wantNet, net)
			assert.True(t, d(tt.wantGross).Equal(gross), "gross: expected %s, got %s", tt.wantGross, gross)
		})
	}
}

func TestBlendedRate(t *testing.T) {
	assert.True(t, d("0.19").Equal(BlendedRate(cart.Totals{Net: d("100"), Gross: d("119")})))
	assert.True(t, decimal.Zero.Equal(BlendedRate(cart.Totals{Net: d("0"), Gross: d("10")})))
	assert.True(t, decimal.Zero.Equal(BlendedRate(cart.Totals{Net: d("50"), Gross: d("50")})))
}
