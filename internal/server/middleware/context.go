package middleware

import (
	"context"

	"givebridge/backend/internal/security"
	"givebridge/backend/internal/user/domain"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	claimKey    = contextKey{"claim"}
)

// WithIdentity returns a context carrying the authenticated directory record.
func WithIdentity(ctx context.Context, rec *domain.IdentityRecord) context.Context {
	return context.WithValue(ctx, identityKey, rec)
}

// IdentityFromContext returns the authenticated record, or nil and false for anonymous requests.
func IdentityFromContext(ctx context.Context) (*domain.IdentityRecord, bool) {
	rec, ok := ctx.Value(identityKey).(*domain.IdentityRecord)
	return rec, ok && rec != nil
}

// WithClaim returns a context carrying a verified credential claim.
func WithClaim(ctx context.Context, claim security.Claim) context.Context {
	return context.WithValue(ctx, claimKey, claim)
}

// ClaimFromContext returns the verified claim set by RequireCredential or RequireAuth.
func ClaimFromContext(ctx context.Context) (security.Claim, bool) {
	c, ok := ctx.Value(claimKey).(security.Claim)
	return c, ok
}
