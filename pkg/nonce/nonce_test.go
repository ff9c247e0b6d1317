package nonce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newIssuer(t *testing.T, c *clock) *Issuer {
	t.Helper()
	i, err := New([]byte("secret"), time.Hour, WithClock(c.now))
	require.NoError(t, err)
	return i
}

func TestNew(t *testing.T) {
	_, err := New(nil, time.Hour)
	require.Error(t, err)

	_, err = New([]byte("s"), -time.Second)
	require.Error(t, err)

	i, err := New([]byte("s"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLifetime, i.lifetime)
}

func TestVerify(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	i := newIssuer(t, c)

	token := i.Create("coupon-options:SAVE50", "key-1")

	tests := []struct {
		name    string
		advance time.Duration
		token   string
		action  string
		session string
		want    bool
	}{
		{name: "fresh", token: token, action: "coupon-options:SAVE50", session: "key-1", want: true},
		{name: "next tick", advance: 45 * time.Minute, token: token, action: "coupon-options:SAVE50", session: "key-1", want: true},
		{name: "expired", advance: 61 * time.Minute, token: token, action: "coupon-options:SAVE50", session: "key-1", want: false},
		{name: "other action", token: token, action: "coupon-options:OTHER", session: "key-1", want: false},
		{name: "other session", token: token, action: "coupon-options:SAVE50", session: "key-2", want: false},
		{name: "empty", token: "", action: "coupon-options:SAVE50", session: "key-1", want: false},
		{name: "garbage", token: "not*base64", action: "coupon-options:SAVE50", session: "key-1", want: false},
		{name: "truncated", token: token[:10], action: "coupon-options:SAVE50", session: "key-1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.t = start.Add(tt.advance)
			assert.Equal(t, tt.want, i.Verify(tt.token, tt.action, tt.session))
		})
	}
}

func TestVerify_OtherSecret(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := newIssuer(t, c)
	b, err := New([]byte("other"), time.Hour, WithClock(c.now))
	require.NoError(t, err)

	assert.False(t, b.Verify(a.Create("act", "s"), "act", "s"))
}
