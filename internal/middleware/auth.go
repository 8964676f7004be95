package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"prepforge/interview/internal/models"
	"prepforge/interview/internal/utils"
)

const principalKey contextKey = "principal"

// Authenticate verifies the bearer token (or ?token= for WebSocket upgrades) and
// stores the caller's Principal in the request context.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if err != nil {
				logger.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
				return
			}
			principal, err := utils.PrincipalFromClaims(claims)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// CurrentUser returns the authenticated caller. ok is false outside Authenticate.
func CurrentUser(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(models.Principal)
	return p, ok
}
