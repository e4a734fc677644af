// Package identity turns opaque bearer credentials into verified identity
// claims. Verification mode is fixed at construction time; the rest of the
// service only ever sees the Verifier interface.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/paperledger/link-service/internal/config"
)

// Identity is the result of verifying a bearer credential. It lives for one
// request and is never persisted by this service.
type Identity struct {
	SubjectID string // stable external identity key ("sub" claim)
	Email     string // optional
	RawToken  string // retained only to re-attach to outgoing backend calls
}

// Verifier validates a bearer token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, bearerToken string) (Identity, error)
}

// NewFromConfig selects the verifier implementation from deployment config.
// The local no-signature mode is refused outside DEV so a mis-set flag
// cannot silently disable verification in production.
func NewFromConfig(ctx context.Context, cfg config.Config) (Verifier, error) {
	switch cfg.GetVerifyMode() {
	case config.VerifyModeLocal:
		if cfg.GetEnv() != "DEV" {
			return nil, errors.New("local verify mode is only permitted when ENV=DEV")
		}
		return NewLocalVerifier(), nil
	case config.VerifyModeStrict:
		return NewOIDCVerifier(ctx, cfg.GetIdentityIssuer(), cfg.GetIdentityAudience())
	}
	return nil, fmt.Errorf("unknown verify mode %q", cfg.GetVerifyMode())
}
