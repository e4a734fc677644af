package identity_test

import (
	"context"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/paperledger/link-service/identity"
	svcerrors "github.com/paperledger/link-service/internal/errors"
)

func unsignedToken(t *testing.T, claims jwtv5.MapClaims) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("local-dev-secret"))
	require.NoError(t, err)
	return signed
}

func TestLocalVerifier_DecodesClaims(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := identity.NewLocalVerifier().WithNowTime(func() time.Time { return now })

	token := unsignedToken(t, jwtv5.MapClaims{
		"sub":   "user-1",
		"email": "owner@example.com",
		"exp":   now.Add(time.Hour).Unix(),
	})

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.SubjectID)
	require.Equal(t, "owner@example.com", id.Email)
	require.Equal(t, token, id.RawToken)
}

func TestLocalVerifier_RejectsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := identity.NewLocalVerifier().WithNowTime(func() time.Time { return now })

	token := unsignedToken(t, jwtv5.MapClaims{
		"sub": "user-1",
		"exp": now.Add(-time.Minute).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, svcerrors.ErrUnauthenticated)
}

func TestLocalVerifier_RejectsGarbage(t *testing.T) {
	v := identity.NewLocalVerifier()

	for _, token := range []string{"", "   ", "not-a-jwt", "a.b", "a.b.c"} {
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, svcerrors.ErrUnauthenticated, "token %q", token)
	}
}

func TestLocalVerifier_RejectsMissingSub(t *testing.T) {
	v := identity.NewLocalVerifier()

	token := unsignedToken(t, jwtv5.MapClaims{
		"email": "owner@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, svcerrors.ErrUnauthenticated)
}
