package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
)

type countingRepo struct {
	rules map[string]coupon.Rule
	finds int
	err   error
}

func (m *countingRepo) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	m.finds++
	if m.err != nil {
		return nil, m.err
	}
	rule, ok := m.rules[code]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	return &rule, nil
}

func (m *countingRepo) IncrementUses(_ context.Context, code string) error {
	rule := m.rules[code]
	rule.Uses++
	m.rules[code] = rule
	return nil
}

func (m *countingRepo) SetMeta(_ context.Context, code, key, value string) error {
	if key == coupon.MetaApplyAfterTax {
		rule := m.rules[code]
		rule.ApplyAfterTax = coupon.MetaBool(value)
		m.rules[code] = rule
	}
	return nil
}

func newRepo() *countingRepo {
	return &countingRepo{rules: map[string]coupon.Rule{
		"SAVE10": {Code: "SAVE10", DiscountType: coupon.DiscountFixedCart, Amount: decimal.NewFromInt(10)},
	}}
}

func TestFindByCode_CachesHits(t *testing.T) {
	next := newRepo()
	r := NewCouponRepository(next, time.Minute)
	ctx := context.Background()

	first, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	second, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, 1, next.finds)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestFindByCode_MissNotCached(t *testing.T) {
	next := newRepo()
	r := NewCouponRepository(next, time.Minute)
	ctx := context.Background()

	for range 2 {
		_, err := r.FindByCode(ctx, "NOPE")
		require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	}
	assert.Equal(t, 2, next.finds)

	next.err = errors.New("boom")
	_, err := r.FindByCode(ctx, "SAVE10")
	require.Error(t, err)
}

func TestSetMeta_Evicts(t *testing.T) {
	next := newRepo()
	r := NewCouponRepository(next, time.Minute)
	ctx := context.Background()

	rule, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.False(t, rule.ApplyAfterTax)

	require.NoError(t, r.SetMeta(ctx, "SAVE10", coupon.MetaApplyAfterTax, coupon.MetaYes))

	rule, err = r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, rule.ApplyAfterTax)
	assert.Equal(t, 2, next.finds)
}

func TestIncrementUses_Evicts(t *testing.T) {
	next := newRepo()
	r := NewCouponRepository(next, time.Minute)
	ctx := context.Background()

	_, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	require.NoError(t, r.IncrementUses(ctx, "save10"))

	next.rules["SAVE10"] = coupon.Rule{Code: "SAVE10", Uses: 7}
	rule, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 7, rule.Uses)
}

func TestMutatingResultDoesNotLeak(t *testing.T) {
	r := NewCouponRepository(newRepo(), time.Minute)
	ctx := context.Background()

	rule, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	rule.Amount = decimal.NewFromInt(999)

	again, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(again.Amount))
}
