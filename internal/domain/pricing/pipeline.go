// Package pricing evaluates carts: it runs every coupon through the discount
// hooks line by line and re-applies tax to the resulting net discounts.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/discount"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
	"github.com/xenking/taxproof-coupons/internal/domain/tax"
)

// CouponLine is the discount one coupon contributed to a quote.
type CouponLine struct {
	Code          string
	DiscountType  coupon.DiscountType
	ApplyAfterTax bool
	Net           decimal.Decimal
	Tax           decimal.Decimal
}

// Gross returns the tax-inclusive discount.
func (l CouponLine) Gross() decimal.Decimal {
	return l.Net.Add(l.Tax)
}

// Quote is the priced result of one cart evaluation. Subtotal and Discount
// are net amounts; Total is gross.
type Quote struct {
	Currency    string
	Subtotal    decimal.Decimal
	SubtotalTax decimal.Decimal
	Discount    decimal.Decimal
	DiscountTax decimal.Decimal
	Total       decimal.Decimal
	Coupons     []CouponLine
}

// DiscountGross returns the total tax-inclusive discount.
func (q *Quote) DiscountGross() decimal.Decimal {
	return q.Discount.Add(q.DiscountTax)
}

// Pipeline prices carts through a hook registry.
type Pipeline struct {
	totals     cart.TotalsProvider
	hooks      *discount.Registry
	currency   money.Currency
	normalized metric.Int64Counter
}

// NewPipeline creates a Pipeline. Pass a no-op meter provider when metrics
// are not needed.
func NewPipeline(
	totals cart.TotalsProvider,
	hooks *discount.Registry,
	currency money.Currency,
	meter metric.MeterProvider,
) (*Pipeline, error) {
	counter, err := meter.Meter("taxproof/pricing").Int64Counter("taxproof.coupons.normalized",
		metric.WithDescription("Apply-after-tax coupons converted to a net discount"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create normalized counter")
	}

	return &Pipeline{
		totals:     totals,
		hooks:      hooks,
		currency:   currency,
		normalized: counter,
	}, nil
}

// NewRegistry returns the hook chain the service runs: the stock per-line
// computation, overridden for apply-after-tax coupons by the normalizer.
func NewRegistry(totals cart.TotalsProvider, currency money.Currency) *discount.Registry {
	r := discount.NewRegistry()
	r.Register(discount.PriorityDefault, discount.NewDefaultHook(totals, currency))
	r.Register(discount.PriorityApplyAfterTax, discount.NewNormalizer(totals, currency))
	return r
}

// Quote evaluates c with the given coupons, in order. Each call is its own
// discount-computation pass, so a coupon used in an earlier evaluation is
// never suppressed here.
func (p *Pipeline) Quote(ctx context.Context, c cart.Cart, rules []*coupon.Rule) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pass := discount.NewPass(c)

	lineNet := make([]decimal.Decimal, len(c.Items))
	totals := cart.Totals{Net: decimal.Zero, Gross: decimal.Zero}
	for i, item := range c.Items {
		net, gross := p.totals.LineTotals(item)
		lineNet[i] = net
		totals.Net = totals.Net.Add(net)
		totals.Gross = totals.Gross.Add(gross)
	}
	rate := tax.BlendedRate(totals)

	q := &Quote{
		Currency:    p.currency.Code,
		Subtotal:    totals.Net,
		SubtotalTax: totals.Tax(),
		Discount:    decimal.Zero,
		DiscountTax: decimal.Zero,
	}

	// open tracks the net amount of each line not yet discounted.
	open := make([]decimal.Decimal, len(lineNet))
	copy(open, lineNet)
	remaining := totals.Net

	for _, rule := range rules {
		if rule == nil {
			continue
		}

		couponNet := decimal.Zero
		taken := decimal.Zero
		for i, item := range c.Items {
			amount := p.hooks.Apply(pass, discount.Request{
				Discount:          decimal.Zero,
				DiscountingAmount: open[i],
				Item:              item,
				Index:             i,
				Single:            len(c.Items) == 1,
				Coupon:            rule,
			})
			if !amount.IsPositive() {
				continue
			}
			couponNet = couponNet.Add(amount)
			if rule.AppliesAfterTax() {
				continue
			}
			amount = decimal.Min(amount, open[i])
			open[i] = open[i].Sub(amount)
			taken = taken.Add(amount)
		}

		couponNet = decimal.Min(couponNet, remaining)
		remaining = remaining.Sub(couponNet)

		// Whole-cart amounts, and whatever a line could not absorb, come off
		// every open line in proportion to its net.
		spread(open, couponNet.Sub(taken))

		if rule.AppliesAfterTax() && couponNet.IsPositive() {
			p.normalized.Add(ctx, 1, metric.WithAttributes(
				attribute.String("currency", p.currency.Code),
			))
		}

		line := CouponLine{
			Code:          rule.Code,
			DiscountType:  rule.DiscountType,
			ApplyAfterTax: rule.ApplyAfterTax,
			Net:           couponNet,
			Tax:           p.currency.Round(couponNet.Mul(rate)),
		}
		q.Coupons = append(q.Coupons, line)
		q.Discount = q.Discount.Add(line.Net)
		q.DiscountTax = q.DiscountTax.Add(line.Tax)
	}

	total := totals.Gross.Sub(q.DiscountGross())
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total

	return q, nil
}

// spread reduces open by amount, proportionally to each entry. Entries are
// kept unrounded so the result does not depend on line order.
func spread(open []decimal.Decimal, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	total := decimal.Sum(decimal.Zero, open...)
	if !total.IsPositive() {
		return
	}
	if amount.GreaterThanOrEqual(total) {
		for i := range open {
			open[i] = decimal.Zero
		}
		return
	}
	factor := total.Sub(amount).Div(total)
	for i := range open {
		open[i] = open[i].Mul(factor)
	}
}
