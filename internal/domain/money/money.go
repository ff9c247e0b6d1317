// Package money holds currency precision rules shared by every amount the
// service computes.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is used for currencies missing from the precision table.
const DefaultPrecision int32 = 2

var precisions = map[string]int32{
	"usd": 2, "eur": 2, "gbp": 2, "aud": 2, "cad": 2,
	"chf": 2, "cny": 2, "czk": 2, "dkk": 2, "hkd": 2,
	"huf": 2, "ils": 2, "inr": 2, "mxn": 2, "nok": 2,
	"nzd": 2, "pln": 2, "ron": 2, "sek": 2, "sgd": 2,
	"try": 2, "zar": 2, "brl": 2,
	"jpy": 0, "krw": 0, "vnd": 0, "clp": 0, "isk": 0,
	"bhd": 3, "kwd": 3, "omr": 3, "jod": 3,
}

// Precision returns the number of decimal places used for the currency.
func Precision(currency string) int32 {
	if p, ok := precisions[strings.ToLower(currency)]; ok {
		return p
	}
	return DefaultPrecision
}

// Currency is a shop currency with its rounding precision resolved once.
type Currency struct {
	Code      string
	Precision int32
}

// NewCurrency resolves the precision for code.
func NewCurrency(code string) Currency {
	return Currency{
		Code:      strings.ToLower(code),
		Precision: Precision(code),
	}
}

// Round rounds d to the currency precision, half away from zero.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Precision)
}

// MinorUnit returns the smallest denomination, e.g. 0.01 for eur.
func (c Currency) MinorUnit() decimal.Decimal {
	return decimal.New(1, -c.Precision)
}
