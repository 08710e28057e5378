package auth

import (
	"context"

	"github.com/google/uuid"
)

type claimsKey struct{}

// WithClaims attaches the authenticated caller to ctx.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// UserIDFromContext returns the caller's id. Most handlers need nothing else.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFromContext(ctx)
	return c.UserID, ok
}
