// Package cache provides in-memory read-through decorators for repositories.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
)

// DefaultCouponTTL is how long a coupon rule is served from memory.
const DefaultCouponTTL = 30 * time.Second

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository caches coupon lookups in memory. Writes go straight to
// the underlying repository and evict the cached rule.
type CouponRepository struct {
	next  coupon.Repository
	items *gocache.Cache
}

// NewCouponRepository wraps next with a cache holding rules for ttl.
// A non-positive ttl selects DefaultCouponTTL.
func NewCouponRepository(next coupon.Repository, ttl time.Duration) *CouponRepository {
	if ttl <= 0 {
		ttl = DefaultCouponTTL
	}
	return &CouponRepository{
		next:  next,
		items: gocache.New(ttl, 2*ttl),
	}
}

// FindByCode returns the cached rule for code or loads it. Misses and errors
// are not cached.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	key := cacheKey(code)
	if v, ok := r.items.Get(key); ok {
		rule := v.(coupon.Rule)
		return &rule, nil
	}

	rule, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.items.SetDefault(key, *rule)

	cp := *rule
	return &cp, nil
}

// IncrementUses implements coupon.Repository.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	defer r.items.Delete(cacheKey(code))
	return r.next.IncrementUses(ctx, code)
}

// SetMeta implements coupon.Repository.
func (r *CouponRepository) SetMeta(ctx context.Context, code, key, value string) error {
	defer r.items.Delete(cacheKey(code))
	return r.next.SetMeta(ctx, code, key, value)
}

// Flush drops every cached rule.
func (r *CouponRepository) Flush() {
	r.items.Flush()
}

func cacheKey(code string) string {
	return strings.ToUpper(code)
}
