// Package tax implements the cart totals provider: it prices cart lines with
// and without tax from a table of per-class rates.
package tax

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/money"
)

// StandardClass is the class used when a product does not name one.
const StandardClass = "standard"

var hundred = decimal.NewFromInt(100)

var _ cart.TotalsProvider = (*Table)(nil)

// Table maps tax classes to percentage rates.
type Table struct {
	rates            map[string]decimal.Decimal
	defaultClass     string
	pricesIncludeTax bool
	currency         money.Currency
}

// Config describes a rate table. Rates are percentages keyed by class and
// given as decimal strings, e.g. {"standard": "19", "reduced": "7"}.
type Config struct {
	Rates            map[string]string
	DefaultClass     string
	PricesIncludeTax bool
	Currency         money.Currency
}

// NewTable parses the configured rates.
func NewTable(cfg Config) (*Table, error) {
	rates := make(map[string]decimal.Decimal, len(cfg.Rates))
	for class, raw := range cfg.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse rate for tax class %q", class)
		}
		if rate.IsNegative() {
			return nil, errors.Errorf("negative rate %s for tax class %q", rate, class)
		}
		rates[class] = rate
	}

	defaultClass := cfg.DefaultClass
	if defaultClass == "" {
		defaultClass = StandardClass
	}
	if _, ok := rates[defaultClass]; !ok {
		return nil, errors.Errorf("default tax class %q has no rate", defaultClass)
	}

	return &Table{
		rates:            rates,
		defaultClass:     defaultClass,
		pricesIncludeTax: cfg.PricesIncludeTax,
		currency:         cfg.Currency,
	}, nil
}

// Rate returns the percentage rate for class, falling back to the default
// class for unknown or empty classes.
func (t *Table) Rate(class string) decimal.Decimal {
	if rate, ok := t.rates[class]; ok {
		return rate
	}
	return t.rates[t.defaultClass]
}

// LineTotals prices a line. Line tax is rounded to the currency precision,
// so net + tax == gross holds exactly for every line.
func (t *Table) LineTotals(item cart.LineItem) (net, gross decimal.Decimal) {
	amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	rate := t.Rate(item.TaxClass)

	if t.pricesIncludeTax {
		lineTax := t.currency.Round(amount.Mul(rate).Div(hundred.Add(rate)))
		return amount.Sub(lineTax), amount
	}

	lineTax := t.currency.Round(amount.Mul(rate).Div(hundred))
	return amount, amount.Add(lineTax)
}

// BlendedRate returns the average rate implied by cart totals as a fraction
// (gross/net - 1). It is zero when net is not positive.
func BlendedRate(totals cart.Totals) decimal.Decimal {
	if !totals.Net.IsPositive() {
		return decimal.Zero
	}
	return totals.Gross.Div(totals.Net).Sub(decimal.NewFromInt(1))
}
