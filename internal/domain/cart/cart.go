// Package cart describes the cart being priced and the collaborator that
// turns its lines into net and gross amounts.
package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem represents one product line in the active cart.
type LineItem struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
	TaxClass  string
}

// Cart is the ordered set of line items under evaluation.
type Cart struct {
	Items []LineItem
}

// TotalsProvider derives quantity-scaled line totals excluding (net) and
// including (gross) tax.
type TotalsProvider interface {
	LineTotals(item LineItem) (net, gross decimal.Decimal)
}

// Totals holds summed net and gross amounts for a set of lines.
type Totals struct {
	Net   decimal.Decimal
	Gross decimal.Decimal
}

// Tax returns the tax portion of the totals.
func (t Totals) Tax() decimal.Decimal {
	return t.Gross.Sub(t.Net)
}

// Sum aggregates line totals across every item of the cart.
func Sum(c Cart, p TotalsProvider) Totals {
	t := Totals{Net: decimal.Zero, Gross: decimal.Zero}
	for _, item := range c.Items {
		net, gross := p.LineTotals(item)
		t.Net = t.Net.Add(net)
		t.Gross = t.Gross.Add(gross)
	}
	return t
}

// ItemCount returns the sum of quantities across all lines.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}
