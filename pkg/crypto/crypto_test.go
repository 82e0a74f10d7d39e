package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte{0x2}, 32), "session")
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("upstream-jwt"))
	require.NoError(t, err)
	require.NotContains(t, sealed, "upstream-jwt")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "upstream-jwt", string(plain))
}

func TestOpenRejectsForeignKeysAndGarbage(t *testing.T) {
	secret := bytes.Repeat([]byte{0x3}, 32)
	a, err := NewSealer(secret, "session")
	require.NoError(t, err)
	b, err := NewSealer(secret, "other-purpose")
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("value"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.ErrorIs(t, err, ErrSealedPayload)

	_, err = a.Open("!!not-base64!!")
	require.ErrorIs(t, err, ErrSealedPayload)

	_, err = a.Open("AAAA")
	require.ErrorIs(t, err, ErrSealedPayload)
}

func TestNewSealerRequiresSecret(t *testing.T) {
	_, err := NewSealer([]byte("short"), "session")
	require.Error(t, err)
}

func TestGenerateTokenIsRandom(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Len(t, a, 43)
}
