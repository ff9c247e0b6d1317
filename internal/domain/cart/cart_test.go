package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// flatRate prices every line at a fixed fractional rate.
type flatRate struct {
	rate decimal.Decimal
}

func (f flatRate) LineTotals(item LineItem) (decimal.Decimal, decimal.Decimal) {
	net := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return net, net.Add(net.Mul(f.rate))
}

func TestSum(t *testing.T) {
	c := Cart{Items: []LineItem{
		{ProductID: "p1", UnitPrice: decimal.RequireFromString("10"), Quantity: 2},
		{ProductID: "p2", UnitPrice: decimal.RequireFromString("30"), Quantity: 1},
	}}

	got := Sum(c, flatRate{rate: decimal.RequireFromString("0.2")})

	assert.True(t, decimal.RequireFromString("50").Equal(got.Net), "net %s", got.Net)
	assert.True(t, decimal.RequireFromString("60").Equal(got.Gross), "gross %s", got.Gross)
	assert.True(t, decimal.RequireFromString("10").Equal(got.Tax()), "tax %s", got.Tax())
}

func TestSum_EmptyCart(t *testing.T) {
	got := Sum(Cart{}, flatRate{rate: decimal.RequireFromString("0.2")})

	assert.True(t, got.Net.IsZero())
	assert.True(t, got.Gross.IsZero())
}

func TestItemCount(t *testing.T) {
	c := Cart{Items: []LineItem{{Quantity: 2}, {Quantity: 3}}}
	assert.Equal(t, 5, c.ItemCount())
	assert.Equal(t, 0, Cart{}.ItemCount())
}
