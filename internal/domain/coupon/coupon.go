package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFixedCart deducts a flat amount from the whole cart.
	DiscountFixedCart DiscountType = "fixed_cart"
	// DiscountPercent deducts a percentage of every line.
	DiscountPercent DiscountType = "percent"
	// DiscountFixedProduct deducts a flat amount per unit of every line.
	DiscountFixedProduct DiscountType = "fixed_product"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountFixedCart, DiscountPercent, DiscountFixedProduct:
		return true
	default:
		return false
	}
}

// Coupon metadata keys and values.
const (
	MetaApplyAfterTax = "apply_after_tax"

	MetaYes = "yes"
	MetaNo  = "no"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found or
	// the cart does not satisfy the coupon's minimum item requirement.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
//
// Amount is entered by an administrator. For fixed_cart coupons flagged
// ApplyAfterTax it is a tax-inclusive amount.
type Rule struct {
	Code          string
	DiscountType  DiscountType
	Amount        decimal.Decimal
	ApplyAfterTax bool
	MinItems      int
	Description   string
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	MaxUses       int
	Uses          int
}

// AppliesAfterTax reports whether the rule is a whole-cart fixed coupon whose
// amount must come off the gross total.
func (r *Rule) AppliesAfterTax() bool {
	return r != nil && r.DiscountType == DiscountFixedCart && r.ApplyAfterTax
}

// MetaBool converts a stored yes/no meta value to a bool. Anything other than
// "yes" is false.
func MetaBool(v string) bool {
	return v == MetaYes
}

// MetaValue converts a flag to its stored yes/no form.
func MetaValue(b bool) string {
	if b {
		return MetaYes
	}
	return MetaNo
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
	SetMeta(ctx context.Context, code, key, value string) error
}
