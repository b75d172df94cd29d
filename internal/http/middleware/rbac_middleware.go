package middleware

import (
	"net/http"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
)

// RequireRole gates a route group on the token's role. Services repeat the
// admin check, so this only short-circuits the request early.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if claims.Role != role {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", map[string]string{"required": string(role)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
