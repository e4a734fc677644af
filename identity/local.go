package identity

import (
	"context"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	svcerrors "github.com/paperledger/link-service/internal/errors"
)

// LocalVerifier decodes the token's claims without any signature check.
// It exists for local development against an emulated identity provider,
// where tokens are unsigned. Malformed and expired tokens still fail.
type LocalVerifier struct {
	nowTime func() time.Time
}

var _ Verifier = (*LocalVerifier)(nil)

func NewLocalVerifier() *LocalVerifier {
	return &LocalVerifier{nowTime: time.Now}
}

// WithNowTime sets the now time function (primarily for testing)
func (v *LocalVerifier) WithNowTime(nowFunc func() time.Time) *LocalVerifier {
	v.nowTime = nowFunc
	return v
}

func (v *LocalVerifier) Verify(_ context.Context, bearerToken string) (Identity, error) {
	bearerToken = strings.TrimSpace(bearerToken)
	if bearerToken == "" {
		return Identity{}, svcerrors.ErrUnauthenticated
	}

	parser := jwtv5.NewParser()
	claims := jwtv5.MapClaims{}
	if _, _, err := parser.ParseUnverified(bearerToken, claims); err != nil {
		return Identity{}, svcerrors.Wrapf(svcerrors.ErrUnauthenticated, "parse token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, svcerrors.Wrapf(svcerrors.ErrUnauthenticated, "missing sub claim")
	}

	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return Identity{}, svcerrors.Wrapf(svcerrors.ErrUnauthenticated, "missing exp claim")
	} else if exp.Before(v.nowTime()) {
		return Identity{}, svcerrors.Wrapf(svcerrors.ErrUnauthenticated, "token expired")
	}

	email, _ := claims["email"].(string)

	return Identity{
		SubjectID: sub,
		Email:     email,
		RawToken:  bearerToken,
	}, nil
}
