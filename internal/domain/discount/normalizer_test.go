package discount

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// fixedTotals returns preset net/gross amounts per product id.
type fixedTotals map[string][2]decimal.Decimal

func (f fixedTotals) LineTotals(item cart.LineItem) (decimal.Decimal, decimal.Decimal) {
	t := f[item.ProductID]
	return t[0], t[1]
}

var eur = money.NewCurrency("eur")

func afterTaxCoupon(code, amount string) *coupon.Rule {
	return &coupon.Rule{
		Code:          code,
		DiscountType:  coupon.DiscountFixedCart,
		Amount:        d(amount),
		ApplyAfterTax: true,
	}
}

// vatCart is a single-line cart worth 100.00 net / 119.00 gross.
func vatCart() (cart.Cart, fixedTotals) {
	c := cart.Cart{Items: []cart.LineItem{{ProductID: "p1", UnitPrice: d("100"), Quantity: 1}}}
	return c, fixedTotals{"p1": {d("100.00"), d("119.00")}}
}

func TestNormalizer_VATExample(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)
	pass := NewPass(c)

	got := n.DiscountAmount(pass, Request{
		Discount: d("50"),
		Item:     c.Items[0],
		Coupon:   afterTaxCoupon("TAXPROOF50", "50.00"),
	})

	assert.True(t, d("42.02").Equal(got), "expected 42.02, got %s", got)
	assert.True(t, pass.Applied("TAXPROOF50"))
}

func TestNormalizer_AppliedOncePerPass(t *testing.T) {
	c := cart.Cart{Items: []cart.LineItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p3", Quantity: 1},
	}}
	totals := fixedTotals{
		"p1": {d("50"), d("59.50")},
		"p2": {d("30"), d("35.70")},
		"p3": {d("20"), d("23.80")},
	}
	n := NewNormalizer(totals, eur)
	pass := NewPass(c)
	rule := afterTaxCoupon("TAXPROOF50", "50")

	var results []decimal.Decimal
	for i, item := range c.Items {
		results = append(results, n.DiscountAmount(pass, Request{
			Discount: d("16.67"),
			Item:     item,
			Index:    i,
			Coupon:   rule,
		}))
	}

	require.Len(t, results, 3)
	assert.True(t, d("42.02").Equal(results[0]), "first call got %s", results[0])
	assert.True(t, results[1].IsZero(), "second call got %s", results[1])
	assert.True(t, results[2].IsZero(), "third call got %s", results[2])
}

func TestNormalizer_TwiceWithIdenticalInputs(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)
	pass := NewPass(c)
	req := Request{Discount: d("50"), Item: c.Items[0], Coupon: afterTaxCoupon("TWICE", "50")}

	first := n.DiscountAmount(pass, req)
	second := n.DiscountAmount(pass, req)

	assert.True(t, d("42.02").Equal(first))
	assert.True(t, second.IsZero())
	assert.Equal(t, "0", second.String())
}

func TestNormalizer_DistinctCouponsInSamePass(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)
	pass := NewPass(c)

	a := n.DiscountAmount(pass, Request{Item: c.Items[0], Coupon: afterTaxCoupon("A", "11.90")})
	b := n.DiscountAmount(pass, Request{Item: c.Items[0], Coupon: afterTaxCoupon("B", "23.80")})

	assert.True(t, d("10").Equal(a), "got %s", a)
	assert.True(t, d("20").Equal(b), "got %s", b)
}

func TestNormalizer_NewPassAppliesAgain(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)
	rule := afterTaxCoupon("REUSED", "50")

	first := n.DiscountAmount(NewPass(c), Request{Item: c.Items[0], Coupon: rule})
	second := n.DiscountAmount(NewPass(c), Request{Item: c.Items[0], Coupon: rule})

	assert.True(t, d("42.02").Equal(first))
	assert.True(t, d("42.02").Equal(second), "a separate evaluation must not be suppressed")
}

func TestNormalizer_ResetPass(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)
	rule := afterTaxCoupon("RESET", "50")
	pass := NewPass(c)

	require.True(t, d("42.02").Equal(n.DiscountAmount(pass, Request{Item: c.Items[0], Coupon: rule})))
	require.True(t, n.DiscountAmount(pass, Request{Item: c.Items[0], Coupon: rule}).IsZero())

	pass.Reset(c)

	got := n.DiscountAmount(pass, Request{Item: c.Items[0], Coupon: rule})
	assert.True(t, d("42.02").Equal(got), "got %s", got)
}

func TestNormalizer_PassThrough(t *testing.T) {
	c, totals := vatCart()
	n := NewNormalizer(totals, eur)

	rules := []*coupon.Rule{
		{Code: "FLAG_OFF", DiscountType: coupon.DiscountFixedCart, Amount: d("50")},
		{Code: "PCT", DiscountType: coupon.DiscountPercent, Amount: d("10"), ApplyAfterTax: true},
		{Code: "PER_ITEM", DiscountType: coupon.DiscountFixedProduct, Amount: d("5"), ApplyAfterTax: true},
		nil,
	}
	discounts := []string{"0", "3.33", "16.666", "-2", "1000000"}

	for _, rule := range rules {
		for _, in := range discounts {
			name := fmt.Sprintf("%v/%s", rule, in)
			pass := NewPass(c)
			got := n.DiscountAmount(pass, Request{Discount: d(in), Item: c.Items[0], Coupon: rule})
			assert.True(t, d(in).Equal(got), "%s: expected %s, got %s", name, in, got)
		}
	}
}

func TestNormalizer_DegenerateTotals(t *testing.T) {
	tests := []struct {
		name  string
		cart  cart.Cart
		lines fixedTotals
	}{
		{
			name: "empty cart",
			cart: cart.Cart{},
		},
		{
			name:  "zero net",
			cart:  cart.Cart{Items: []cart.LineItem{{ProductID: "p1"}}},
			lines: fixedTotals{"p1": {d("0"), d("10")}},
		},
		{
			name:  "zero gross",
			cart:  cart.Cart{Items: []cart.LineItem{{ProductID: "p1"}}},
			lines: fixedTotals{"p1": {d("10"), d("0")}},
		},
		{
			name:  "negative net",
			cart:  cart.Cart{Items: []cart.LineItem{{ProductID: "p1"}}},
			lines: fixedTotals{"p1": {d("-5"), d("10")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.lines, eur)
			pass := NewPass(tt.cart)
			rule := afterTaxCoupon("DEGENERATE", "500")

			got := n.DiscountAmount(pass, Request{Discount: d("7"), Coupon: rule})

			assert.True(t, got.IsZero(), "got %s", got)
			assert.False(t, pass.Applied("DEGENERATE"), "degenerate carts must not consume the coupon")
		})
	}
}

func TestNormalizer_MatchesFormula(t *testing.T) {
	nets := []string{"0.01", "1", "9.99", "100", "123.45", "1000"}
	rates := []string{"0", "0.05", "0.07", "0.19", "0.2", "0.255"}
	amounts := []string{"0", "0.01", "5", "50", "150", "999.99"}

	for _, netStr := range nets {
		for _, rateStr := range rates {
			for _, amountStr := range amounts {
				net := d(netStr)
				gross := net.Add(net.Mul(d(rateStr)))
				lines := fixedTotals{"p1": {net, gross}}
				c := cart.Cart{Items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}

				got := NewNormalizer(lines, eur).DiscountAmount(NewPass(c), Request{
					Item:   c.Items[0],
					Coupon: afterTaxCoupon("F", amountStr),
				})

				want := d(amountStr).Div(gross.Div(net)).Round(2)
				assert.True(t, want.Equal(got), "net=%s rate=%s amount=%s: expected %s, got %s",
					netStr, rateStr, amountStr, want, got)
			}
		}
	}
}

func TestNormalizer_TaxNeutral(t *testing.T) {
	nets := []string{"10", "29.97", "100", "250.50", "1234.56"}
	rates := []string{"0.07", "0.1", "0.19", "0.2", "0.21"}
	amounts := []string{"5", "10", "42", "50", "99.99"}
	minor := eur.MinorUnit()

	for _, netStr := range nets {
		for _, rateStr := range rates {
			for _, amountStr := range amounts {
				net := d(netStr)
				gross := eur.Round(net.Add(net.Mul(d(rateStr))))
				lines := fixedTotals{"p1": {net, gross}}
				c := cart.Cart{Items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}

				netDiscount := NewNormalizer(lines, eur).DiscountAmount(NewPass(c), Request{
					Item:   c.Items[0],
					Coupon: afterTaxCoupon("N", amountStr),
				})

				blended := gross.Div(net).Sub(decimal.NewFromInt(1))
				reapplied := netDiscount.Add(eur.Round(netDiscount.Mul(blended)))
				diff := reapplied.Sub(d(amountStr)).Abs()

				assert.True(t, diff.LessThanOrEqual(minor),
					"net=%s rate=%s amount=%s: gross reduction %s differs by %s",
					netStr, rateStr, amountStr, reapplied, diff)
			}
		}
	}
}

func TestNormalizer_ZeroDecimalCurrency(t *testing.T) {
	c := cart.Cart{Items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	lines := fixedTotals{"p1": {d("1000"), d("1100")}}

	got := NewNormalizer(lines, money.NewCurrency("jpy")).DiscountAmount(NewPass(c), Request{
		Item:   c.Items[0],
		Coupon: afterTaxCoupon("YEN", "500"),
	})

	// 500 / 1.1 = 454.5454... -> 455
	assert.True(t, d("455").Equal(got), "got %s", got)
}
