package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexHash(t *testing.T) {
	a := HexHash([]byte("pepper"), "key")
	b := HexHash([]byte("pepper"), "key")
	c := HexHash([]byte("other"), "key")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHasScope(t *testing.T) {
	k := &APIKeyInfo{Scopes: []string{ScopeOrders}}
	assert.True(t, k.HasScope(ScopeOrders))
	assert.False(t, k.HasScope(ScopeAdmin))

	all := &APIKeyInfo{Scopes: []string{"*"}}
	assert.True(t, all.HasScope(ScopeAdmin))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	info := &APIKeyInfo{ID: "k1"}
	got, ok := FromContext(WithKey(context.Background(), info))
	require.True(t, ok)
	assert.Equal(t, "k1", got.ID)
}
