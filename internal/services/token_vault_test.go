package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVault(t *testing.T) {
	vault, err := NewTokenVault("session-secret")
	require.NoError(t, err)

	sealed, err := vault.Seal("gho_abc123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "gho_abc123")

	plain, err := vault.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "gho_abc123", plain)

	// 每次加密使用新的 nonce
	again, _ := vault.Seal("gho_abc123")
	assert.NotEqual(t, sealed, again)

	empty, err := vault.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTokenVault_RejectsForeignOrTampered(t *testing.T) {
	a, _ := NewTokenVault("secret-a")
	b, _ := NewTokenVault("secret-b")

	sealed, err := a.Seal("gho_abc123")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrTokenCorrupt)

	_, err = a.Open("not-base64!!")
	assert.ErrorIs(t, err, ErrTokenCorrupt)

	_, err = NewTokenVault("")
	assert.Error(t, err)
}
