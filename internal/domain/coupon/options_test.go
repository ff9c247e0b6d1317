package coupon

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTokens accepts exactly one token/action/session triple.
type stubTokens struct {
	token   string
	action  string
	session string
}

func (s *stubTokens) Create(action, session string) string {
	s.action = action
	s.session = session
	return s.token
}

func (s *stubTokens) Verify(token, action, session string) bool {
	return token == s.token && action == s.action && session == s.session
}

func TestOptionsService_Form(t *testing.T) {
	repo := &mockCouponRepo{rule: &Rule{
		Code:          "TAXFREE50",
		DiscountType:  DiscountFixedCart,
		Amount:        decimal.NewFromInt(50),
		ApplyAfterTax: true,
	}}
	tokens := &stubTokens{token: "tok"}
	svc := NewOptionsService(repo, tokens)

	opts, err := svc.Form(context.Background(), "taxfree50", "key-1")

	require.NoError(t, err)
	assert.Equal(t, "TAXFREE50", opts.Code)
	assert.True(t, opts.ApplyAfterTax)
	assert.Equal(t, ApplyAfterTaxLabel, opts.Label)
	assert.Equal(t, "tok", opts.Token)
	assert.Equal(t, "coupon-options:TAXFREE50", tokens.action)
	assert.Equal(t, "key-1", tokens.session)
}

func TestOptionsService_FormNotFound(t *testing.T) {
	svc := NewOptionsService(&mockCouponRepo{err: ErrInvalidCoupon}, &stubTokens{})

	_, err := svc.Form(context.Background(), "NOPE", "key-1")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestOptionsService_SaveApplyAfterTax(t *testing.T) {
	tests := []struct {
		name      string
		req       SaveOptionsRequest
		wantSaved bool
		wantValue string
	}{
		{
			name:      "checked saves yes",
			req:       SaveOptionsRequest{Code: "C1", Token: "tok", Session: "key-1", ApplyAfterTax: true},
			wantSaved: true,
			wantValue: "yes",
		},
		{
			name:      "unchecked saves no",
			req:       SaveOptionsRequest{Code: "C1", Token: "tok", Session: "key-1"},
			wantSaved: true,
			wantValue: "no",
		},
		{
			name: "missing token skips save",
			req:  SaveOptionsRequest{Code: "C1", Session: "key-1", ApplyAfterTax: true},
		},
		{
			name: "wrong token skips save",
			req:  SaveOptionsRequest{Code: "C1", Token: "forged", Session: "key-1", ApplyAfterTax: true},
		},
		{
			name: "token from another session skips save",
			req:  SaveOptionsRequest{Code: "C1", Token: "tok", Session: "key-2", ApplyAfterTax: true},
		},
		{
			name: "token for another coupon skips save",
			req:  SaveOptionsRequest{Code: "C2", Token: "tok", Session: "key-1", ApplyAfterTax: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{}
			tokens := &stubTokens{token: "tok", action: OptionsAction("C1"), session: "key-1"}
			svc := NewOptionsService(repo, tokens)

			saved, err := svc.SaveApplyAfterTax(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, saved)
			if !tt.wantSaved {
				assert.Empty(t, repo.meta, "nothing must be written")
				return
			}
			assert.Equal(t, tt.wantValue, repo.meta[tt.req.Code+"/"+MetaApplyAfterTax])
		})
	}
}

func TestOptionsService_SaveRepoError(t *testing.T) {
	repo := &mockCouponRepo{metaErr: errors.New("db down")}
	tokens := &stubTokens{token: "tok", action: OptionsAction("C1"), session: "key-1"}
	svc := NewOptionsService(repo, tokens)

	saved, err := svc.SaveApplyAfterTax(context.Background(), SaveOptionsRequest{
		Code: "C1", Token: "tok", Session: "key-1", ApplyAfterTax: true,
	})

	require.Error(t, err)
	assert.False(t, saved)
	assert.Contains(t, err.Error(), "save coupon options")
}

func TestOptionsService_SaveInvalidCode(t *testing.T) {
	tokens := &stubTokens{token: "tok", action: OptionsAction(""), session: "key-1"}
	svc := NewOptionsService(&mockCouponRepo{}, tokens)

	saved, err := svc.SaveApplyAfterTax(context.Background(), SaveOptionsRequest{
		Token: "tok", Session: "key-1",
	})

	require.Error(t, err)
	assert.False(t, saved)
	assert.Contains(t, err.Error(), "validate coupon options")
}
