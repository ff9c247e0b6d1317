package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/taxproof-coupons/internal/domain/auth"
	"github.com/xenking/taxproof-coupons/pkg/httpmiddleware"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "api_key"

// SecurityHandler authenticates requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require rejects requests without a valid API key (401) or without scope
// (403). The authenticated key is stored in the request context.
func (s *SecurityHandler) Require(scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "api key required")
				return
			}

			info, err := s.authenticate(r, key)
			if err != nil {
				zctx.From(r.Context()).Debug("API key rejected", zap.Error(err))
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				httpmiddleware.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := auth.WithKey(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *SecurityHandler) authenticate(r *http.Request, key string) (*auth.APIKeyInfo, error) {
	hash := auth.Hash(s.pepper, key)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return nil, errors.Wrap(err, "find key")
	}

	// The row came back for this hash, but compare anyway so a stale or
	// wrong row can never authenticate.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, errors.Wrap(err, "decode stored hash")
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, errors.New("hash mismatch")
	}
	return info, nil
}
