package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
)

var _ Hook = (*Normalizer)(nil)

// Normalizer converts the tax-inclusive amount of an apply-after-tax
// fixed-cart coupon into the net discount that, once the pipeline re-applies
// tax, reduces the gross total by exactly that amount.
//
// The pipeline invokes hooks once per cart line, so the whole-cart discount
// is returned for the first line of a pass and zero for every later line.
type Normalizer struct {
	totals   cart.TotalsProvider
	currency money.Currency
}

// NewNormalizer creates a Normalizer that reads line totals from totals and
// rounds to the currency precision.
func NewNormalizer(totals cart.TotalsProvider, currency money.Currency) *Normalizer {
	return &Normalizer{
		totals:   totals,
		currency: currency,
	}
}

// DiscountAmount implements Hook. Coupons that are not apply-after-tax
// fixed-cart coupons pass through with req.Discount unchanged.
func (n *Normalizer) DiscountAmount(pass *Pass, req Request) decimal.Decimal {
	if !req.Coupon.AppliesAfterTax() {
		return req.Discount
	}

	code := req.Coupon.Code
	if pass.Applied(code) {
		return decimal.Zero
	}

	totals := cart.Sum(pass.Cart(), n.totals)
	if !totals.Net.IsPositive() || !totals.Gross.IsPositive() {
		return decimal.Zero
	}

	// amount / (1 + avg), avg = gross/net - 1, without the intermediate
	// division.
	net := n.currency.Round(req.Coupon.Amount.Mul(totals.Net).Div(totals.Gross))

	pass.MarkApplied(code)
	return net
}
