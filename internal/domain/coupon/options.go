package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Texts shown next to the apply-after-tax toggle on the coupon edit form.
const (
	ApplyAfterTaxLabel       = "Apply coupon after tax"
	ApplyAfterTaxDescription = "Deduct the fixed coupon amount from the order total including tax, " +
		"so the coupon value stays the same for every tax rate and location."
)

// TokenIssuer issues and verifies request authenticity tokens bound to an
// action and a session.
type TokenIssuer interface {
	Create(action, session string) string
	Verify(token, action, session string) bool
}

// Options is the admin view of a coupon's tax handling settings.
type Options struct {
	Code          string
	DiscountType  DiscountType
	ApplyAfterTax bool
	Label         string
	Description   string
	Token         string
}

// SaveOptionsRequest carries a submitted coupon options form.
type SaveOptionsRequest struct {
	Code          string
	Token         string
	Session       string
	ApplyAfterTax bool
}

type metaUpdate struct {
	Code  string `validate:"required,max=64"`
	Key   string `validate:"required"`
	Value string `validate:"oneof=yes no"`
}

// OptionsService reads and saves the per-coupon apply-after-tax flag.
type OptionsService struct {
	repo     Repository
	tokens   TokenIssuer
	validate *validator.Validate
}

// NewOptionsService creates an OptionsService.
func NewOptionsService(repo Repository, tokens TokenIssuer) *OptionsService {
	return &OptionsService{
		repo:     repo,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// OptionsAction returns the token action guarding saves for code.
func OptionsAction(code string) string {
	return "coupon-options:" + strings.ToUpper(code)
}

// Form returns the current options for code together with a fresh token for
// session.
func (s *OptionsService) Form(ctx context.Context, code, session string) (*Options, error) {
	rule, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return &Options{
		Code:          rule.Code,
		DiscountType:  rule.DiscountType,
		ApplyAfterTax: rule.ApplyAfterTax,
		Label:         ApplyAfterTaxLabel,
		Description:   ApplyAfterTaxDescription,
		Token:         s.tokens.Create(OptionsAction(rule.Code), session),
	}, nil
}

// SaveApplyAfterTax persists the flag when the request token verifies.
// A token that fails verification skips the save without an error; the
// returned bool reports whether anything was written.
func (s *OptionsService) SaveApplyAfterTax(ctx context.Context, req SaveOptionsRequest) (bool, error) {
	if req.Token == "" || !s.tokens.Verify(req.Token, OptionsAction(req.Code), req.Session) {
		zctx.From(ctx).Debug("Coupon options token rejected, skipping save",
			zap.String("code", req.Code),
		)
		return false, nil
	}

	upd := metaUpdate{
		Code:  req.Code,
		Key:   MetaApplyAfterTax,
		Value: MetaValue(req.ApplyAfterTax),
	}
	if err := s.validate.Struct(upd); err != nil {
		return false, errors.Wrap(err, "validate coupon options")
	}

	if err := s.repo.SetMeta(ctx, upd.Code, upd.Key, upd.Value); err != nil {
		return false, errors.Wrap(err, "save coupon options")
	}
	return true, nil
}
