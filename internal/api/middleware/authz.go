package middleware

import (
	"net/http"

	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/rbac"
)

// RequireScope returns middleware that rejects identities whose global role
// does not grant scope.
func RequireScope(scope rbac.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			if !identity.HasScope(scope) {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
