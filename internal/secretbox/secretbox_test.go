package secretbox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/paperledger/link-service/internal/secretbox"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s, err := secretbox.New(testKey(t))
	require.NoError(t, err)
	require.True(t, s.Ready())

	msg := "access-token-✓-secret"
	sealed, err := s.Seal(msg)
	require.NoError(t, err)
	require.NotEqual(t, msg, sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, msg, opened)
}

func TestOpen_DetectsTamper(t *testing.T) {
	s, err := secretbox.New(testKey(t))
	require.NoError(t, err)

	sealed, err := s.Seal("top secret")
	require.NoError(t, err)

	parts := strings.SplitN(sealed, "|", 2)
	require.Len(t, parts, 2)

	box, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	box[0] ^= 0x01
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(box)

	_, err = s.Open(corrupted)
	require.ErrorIs(t, err, secretbox.ErrOpenFailed)
}

func TestNew_RejectsShortKey(t *testing.T) {
	_, err := secretbox.New(base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, secretbox.ErrBadKey)
}

func TestSeal_ErrorWhenNoKey(t *testing.T) {
	s, err := secretbox.New("")
	require.NoError(t, err)
	require.False(t, s.Ready())

	_, err = s.Seal("x")
	require.ErrorIs(t, err, secretbox.ErrNoKey)
}
