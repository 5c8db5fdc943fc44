package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bluewud/storefront-backend/api/responses"
	pkgAuth "github.com/bluewud/storefront-backend/pkg/auth"
	"github.com/bluewud/storefront-backend/pkg/config"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/types"
)

const guestSessionHeader = "X-Guest-Session"

// Identity resolves the request owner. A valid bearer token wins and maps
// to a user owner; otherwise the guest session header maps to a guest owner.
// Requests carrying neither are rejected, since every cart and order is
// scoped to exactly one owner.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, email, err := resolveOwner(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxOwner, owner)
			if email != "" {
				ctx = context.WithValue(ctx, ctxUserEmail, email)
			}
			if logg != nil {
				ctx = logg.WithOwnerKey(ctx, owner.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveOwner(cfg config.JWTConfig, r *http.Request) (types.OwnerKey, string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			return types.OwnerKey{}, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
		}
		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			return types.OwnerKey{}, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		return types.OwnerForUser(claims.UserID), claims.Email, nil
	}

	session := strings.TrimSpace(r.Header.Get(guestSessionHeader))
	if session != "" {
		return types.OwnerForGuest(session), "", nil
	}

	return types.OwnerKey{}, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
}
