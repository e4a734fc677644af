package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/internal/backend"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the verified caller identity
const ContextKeyIdentity ContextKey = "identity"

// RequireBearerAuth validates the Authorization header and rejects the
// request with a 401 when no valid identity can be established.
func (s *Server) RequireBearerAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ident, token, err := s.resolveIdentity(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			next(w, r.WithContext(withIdentity(r.Context(), ident, token)))
		}
	}
}

// OptionalBearerAuth resolves the caller identity when a bearer token
// is present but lets the request through either way. Used on the
// provider callback, which must end in a redirect, not a 401.
func (s *Server) OptionalBearerAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ident, token, err := s.resolveIdentity(r)
			if err != nil {
				log.Debug().Str("path", r.URL.Path).Msg("callback without verifiable identity")
				next(w, r)
				return
			}
			next(w, r.WithContext(withIdentity(r.Context(), ident, token)))
		}
	}
}

func (s *Server) resolveIdentity(r *http.Request) (identity.Identity, string, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		token = ""
	}
	ident, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		return identity.Identity{}, "", err
	}
	return ident, token, nil
}

// withIdentity stashes the identity for handlers and the raw bearer
// for repositories that forward it to the backend.
func withIdentity(ctx context.Context, ident identity.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyIdentity, ident)
	return backend.WithBearer(ctx, token)
}

func identityFromContext(ctx context.Context) identity.Identity {
	ident, _ := ctx.Value(ContextKeyIdentity).(identity.Identity)
	return ident
}
