package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenSealer_RoundTrip(t *testing.T) {
	sealer, err := newTokenSealer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sealed, err := sealer.seal("refresh-token")
	require.NoError(t, err)
	require.NotContains(t, sealed, "refresh-token")

	opened, err := sealer.open(sealed)
	require.NoError(t, err)
	require.Equal(t, "refresh-token", opened)

	other, err := newTokenSealer("fedcba9876543210")
	require.NoError(t, err)
	_, err = other.open(sealed)
	require.Error(t, err)
}

func TestTokenSealer_RejectsBadKeys(t *testing.T) {
	_, err := newTokenSealer("short")
	require.Error(t, err)
}
