package middleware

import (
	"context"

	"github.com/bluewud/storefront-backend/pkg/types"
)

type contextKey string

const (
	ctxOwner     contextKey = "owner"
	ctxUserEmail contextKey = "user_email"
)

// OwnerFromContext returns the request owner seeded by Identity, or a zero
// key when the request carried no identity.
func OwnerFromContext(ctx context.Context) types.OwnerKey {
	if owner, ok := ctx.Value(ctxOwner).(types.OwnerKey); ok {
		return owner
	}
	return types.OwnerKey{}
}

// UserEmailFromContext returns the authenticated user's email, if any.
func UserEmailFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(ctxUserEmail).(string); ok {
		return email
	}
	return ""
}
