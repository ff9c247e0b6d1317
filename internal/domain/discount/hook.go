// Package discount computes per-line coupon discounts through a chain of
// prioritized hooks, including the normalizer that turns tax-inclusive
// fixed-cart coupons into the net amount a tax-aware pipeline expects.
package discount

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
)

// Hook priorities used by the default registry.
const (
	PriorityDefault       = 10
	PriorityApplyAfterTax = 20
)

// Request is the input of one hook invocation for one cart line.
type Request struct {
	// Discount is the amount the pipeline currently intends to apply to the
	// line, i.e. the output of lower-priority hooks.
	Discount decimal.Decimal
	// DiscountingAmount is the line's net amount still open to discounts.
	DiscountingAmount decimal.Decimal
	Item              cart.LineItem
	// Index is the position of Item in the pass cart.
	Index int
	// Single is set when the cart consists of this one line.
	Single bool
	Coupon *coupon.Rule
}

// Hook adjusts the discount the pipeline applies to one line for one coupon.
type Hook interface {
	DiscountAmount(pass *Pass, req Request) decimal.Decimal
}

// HookFunc adapts a function to Hook.
type HookFunc func(pass *Pass, req Request) decimal.Decimal

// DiscountAmount calls f.
func (f HookFunc) DiscountAmount(pass *Pass, req Request) decimal.Decimal {
	return f(pass, req)
}

type registered struct {
	priority int
	hook     Hook
}

// Registry runs hooks in ascending priority order. Hooks with equal
// priority run in registration order. Registration must happen before the
// registry is used by concurrent passes.
type Registry struct {
	hooks []registered
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h at the given priority.
func (r *Registry) Register(priority int, h Hook) {
	r.hooks = append(r.hooks, registered{priority: priority, hook: h})
	sort.SliceStable(r.hooks, func(i, j int) bool {
		return r.hooks[i].priority < r.hooks[j].priority
	})
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.hooks)
}

// Apply threads req.Discount through every hook and returns the result.
func (r *Registry) Apply(pass *Pass, req Request) decimal.Decimal {
	for _, h := range r.hooks {
		req.Discount = h.hook.DiscountAmount(pass, req)
	}
	return req.Discount
}
