package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	svcerrors "github.com/paperledger/link-service/internal/errors"
)

// OIDCVerifier performs strict verification against the identity provider:
// signature via the provider's published keys, issuer, audience and expiry.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the issuer's configuration and builds a verifier
// bound to the given audience. Discovery failure is a startup error.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, bearerToken string) (Identity, error) {
	bearerToken = strings.TrimSpace(bearerToken)
	if bearerToken == "" {
		return Identity{}, svcerrors.ErrUnauthenticated
	}

	idToken, err := v.verifier.Verify(ctx, bearerToken)
	if err != nil {
		return Identity{}, svcerrors.Wrapf(svcerrors.ErrUnauthenticated, "verify token")
	}

	var claims struct {
		Email string `json:"email"`
	}
	// Email is optional; a claims decode failure must not reject a token
	// that already passed signature verification.
	_ = idToken.Claims(&claims)

	return Identity{
		SubjectID: idToken.Subject,
		Email:     claims.Email,
		RawToken:  bearerToken,
	}, nil
}
