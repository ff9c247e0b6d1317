package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT c.code, c.discount_type, c.amount, COALESCE(m.value, 'no'),
		c.min_items, c.description, c.valid_from, c.valid_until, c.max_uses, c.uses
		FROM coupons c
		LEFT JOIN coupon_meta m ON m.code = c.code AND m.key = '` + coupon.MetaApplyAfterTax + `'
		WHERE UPPER(c.code) = UPPER($1) AND c.active = TRUE`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE UPPER(code) = UPPER($1)`

	// The meta row takes the stored spelling of the code so lookups by any
	// case hit the same row.
	setCouponMetaSQL = `INSERT INTO coupon_meta (code, key, value)
		SELECT code, $2, $3 FROM coupons WHERE UPPER(code) = UPPER($1)
		ON CONFLICT (code, key) DO UPDATE SET value = EXCLUDED.value`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, amount, min_items, description,
		valid_from, valid_until, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			amount = EXCLUDED.amount,
			min_items = EXCLUDED.min_items,
			description = EXCLUDED.description,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			active = TRUE`

	upsertCouponMetaSQL = `INSERT INTO coupon_meta (code, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (code, key) DO UPDATE SET value = EXCLUDED.value`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. The
// apply-after-tax flag lives in coupon_meta and is joined into every lookup.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}

// IncrementUses atomically increments the usage counter for the given coupon code.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code); err != nil {
		return errors.Wrapf(err, "increment uses for coupon %q", code)
	}
	return nil
}

// SetMeta stores a metadata value for the coupon. It returns
// coupon.ErrInvalidCoupon when the coupon does not exist.
func (r *CouponRepository) SetMeta(ctx context.Context, code, key, value string) error {
	tag, err := r.pool.Exec(ctx, setCouponMetaSQL, code, key, value)
	if err != nil {
		return errors.Wrapf(err, "set %s for coupon %q", key, code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrInvalidCoupon
	}
	return nil
}

// Upsert writes rules and their apply-after-tax flag in a single
// transaction. Usage counters of existing coupons are kept.
func (r *CouponRepository) Upsert(ctx context.Context, rules ...coupon.Rule) error {
	if len(rules) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rule := range rules {
			batch.Queue(upsertCouponSQL,
				rule.Code, string(rule.DiscountType), rule.Amount, rule.MinItems, rule.Description,
				rule.ValidFrom, rule.ValidUntil, rule.MaxUses,
			)
			batch.Queue(upsertCouponMetaSQL,
				rule.Code, coupon.MetaApplyAfterTax, coupon.MetaValue(rule.ApplyAfterTax),
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "upsert %d coupons", len(rules))
		}
		return nil
	})
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule          coupon.Rule
		discountType  string
		applyAfterTax string
		validFrom     *time.Time
		validUntil    *time.Time
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Amount, &applyAfterTax,
		&rule.MinItems, &rule.Description, &validFrom, &validUntil, &rule.MaxUses, &rule.Uses,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.ApplyAfterTax = coupon.MetaBool(applyAfterTax)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
