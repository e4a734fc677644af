package backend

import "context"

type bearerKey struct{}

// WithBearer attaches the caller's bearer credential to the context so
// backend repos can forward it on outgoing calls.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFromContext returns the attached credential, or "".
func BearerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(bearerKey{}).(string); ok {
		return v
	}
	return ""
}
