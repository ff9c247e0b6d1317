package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
)

var (
	hundred = decimal.NewFromInt(100)

	_ Hook = (*DefaultHook)(nil)
)

// DefaultHook is the stock per-line discount computation. Fixed-cart amounts
// are spread over the lines in proportion to their net amount, with the
// rounding remainder landing on the last line.
type DefaultHook struct {
	totals   cart.TotalsProvider
	currency money.Currency
}

// NewDefaultHook creates a DefaultHook.
func NewDefaultHook(totals cart.TotalsProvider, currency money.Currency) *DefaultHook {
	return &DefaultHook{
		totals:   totals,
		currency: currency,
	}
}

// DiscountAmount implements Hook.
func (h *DefaultHook) DiscountAmount(pass *Pass, req Request) decimal.Decimal {
	rule := req.Coupon
	if rule == nil {
		return req.Discount
	}

	switch rule.DiscountType {
	case coupon.DiscountFixedCart:
		return h.fixedCartShare(pass.Cart(), rule.Amount, req.Index)
	case coupon.DiscountPercent:
		return h.currency.Round(req.DiscountingAmount.Mul(rule.Amount).Div(hundred))
	case coupon.DiscountFixedProduct:
		amount := rule.Amount.Mul(decimal.NewFromInt(int64(req.Item.Quantity)))
		return decimal.Min(amount, req.DiscountingAmount)
	default:
		return req.Discount
	}
}

func (h *DefaultHook) fixedCartShare(c cart.Cart, amount decimal.Decimal, index int) decimal.Decimal {
	if index < 0 || index >= len(c.Items) {
		return decimal.Zero
	}

	nets := make([]decimal.Decimal, len(c.Items))
	total := decimal.Zero
	for i, item := range c.Items {
		nets[i], _ = h.totals.LineTotals(item)
		total = total.Add(nets[i])
	}
	if !total.IsPositive() {
		return decimal.Zero
	}

	share := func(i int) decimal.Decimal {
		return h.currency.Round(amount.Mul(nets[i]).Div(total))
	}

	if index < len(c.Items)-1 {
		return share(index)
	}

	rest := amount
	for i := range len(c.Items) - 1 {
		rest = rest.Sub(share(i))
	}
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
