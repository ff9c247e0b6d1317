package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator resolves coupon codes into rules that may be applied to a cart.
type Validator interface {
	Lookup(ctx context.Context, code string, itemCount int) (*Rule, error)
	Redeem(ctx context.Context, code string) error
}

var _ Validator = (*RepoValidator)(nil)

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and checking their eligibility constraints.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Lookup finds the rule for code and checks its temporal validity, usage
// limit and minimum item count against a cart holding itemCount units.
func (v *RepoValidator) Lookup(ctx context.Context, code string, itemCount int) (*Rule, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrCouponExpired
	}

	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrCouponUsageLimitReached
	}

	if rule.MinItems > 0 && itemCount < rule.MinItems {
		return nil, ErrInvalidCoupon
	}

	return rule, nil
}

// Redeem records one use of the coupon.
func (v *RepoValidator) Redeem(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrap(err, "increment coupon uses")
	}
	return nil
}
