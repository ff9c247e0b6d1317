// Package nonce issues short-lived tokens that bind a form submission to an
// action and a session, so a state-changing request can prove it came from a
// form the server rendered.
//
// A token is valid for between lifetime/2 and lifetime: time is cut into
// ticks of half the lifetime and a token is accepted during the tick it was
// issued in and the one after.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/go-faster/errors"
)

// DefaultLifetime matches the usual one day validity of admin form tokens.
const DefaultLifetime = 24 * time.Hour

// tokenLen is the number of HMAC bytes kept in a token.
const tokenLen = 16

// Issuer creates and verifies tokens with a shared secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// New creates an Issuer. A zero lifetime selects DefaultLifetime.
func New(secret []byte, lifetime time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("nonce secret is empty")
	}
	if lifetime < 0 {
		return nil, errors.Errorf("negative nonce lifetime %s", lifetime)
	}
	if lifetime == 0 {
		lifetime = DefaultLifetime
	}
	// Ticks are half a lifetime; anything below 2ns would give zero.
	if lifetime < 2 {
		return nil, errors.Errorf("nonce lifetime %s too short", lifetime)
	}

	i := &Issuer{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Create returns a token for action and session valid from now.
func (i *Issuer) Create(action, session string) string {
	return base64.RawURLEncoding.EncodeToString(i.sign(i.tick(), action, session))
}

// Verify reports whether token was issued for action and session in the
// current or the previous tick.
func (i *Issuer) Verify(token, action, session string) bool {
	if token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(got) != tokenLen {
		return false
	}

	tick := i.tick()
	for _, t := range [2]int64{tick, tick - 1} {
		if subtle.ConstantTimeCompare(got, i.sign(t, action, session)) == 1 {
			return true
		}
	}
	return false
}

func (i *Issuer) tick() int64 {
	half := i.lifetime / 2
	return i.now().UnixNano() / int64(half)
}

func (i *Issuer) sign(tick int64, action, session string) []byte {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(action))
	mac.Write([]byte{0})
	mac.Write([]byte(session))
	return mac.Sum(nil)[:tokenLen]
}
