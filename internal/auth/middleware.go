package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tripforge/tripforge/internal/api"
	"github.com/tripforge/tripforge/internal/security"
)

type contextKey string

const claimsKey contextKey = "session_claims"

// Middleware validates the Bearer token and stores the session claims in
// the request context.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the session claims stored by Middleware, or nil.
func ClaimsFrom(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(claimsKey).(*SessionClaims)
	return claims
}

// RequirePermission rejects requests whose session role does not hold the
// permission under the loaded RBAC policies.
func RequirePermission(sec *security.Service, perm security.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}
			if !sec.HasPermission(security.Role(claims.Role), perm) {
				api.HandleError(w, api.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
