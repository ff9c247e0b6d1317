package discount

import (
	"github.com/xenking/taxproof-coupons/internal/domain/cart"
)

// Pass is the state of one discount-computation pass over a cart: the cart
// being evaluated and the coupon codes whose whole-cart discount has already
// been attributed. A Pass is owned by a single evaluation and is not safe
// for concurrent use.
type Pass struct {
	cart    cart.Cart
	applied map[string]struct{}
}

// NewPass starts a pass over c.
func NewPass(c cart.Cart) *Pass {
	return &Pass{
		cart:    c,
		applied: make(map[string]struct{}),
	}
}

// Cart returns the cart under evaluation.
func (p *Pass) Cart() cart.Cart {
	return p.cart
}

// Applied reports whether code was already discounted in this pass.
func (p *Pass) Applied(code string) bool {
	_, ok := p.applied[code]
	return ok
}

// MarkApplied records code as discounted. It reports false when the code
// was already present.
func (p *Pass) MarkApplied(code string) bool {
	if p.Applied(code) {
		return false
	}
	p.applied[code] = struct{}{}
	return true
}

// Reset forgets every applied code so the pass can evaluate c afresh.
func (p *Pass) Reset(c cart.Cart) {
	p.cart = c
	clear(p.applied)
}
