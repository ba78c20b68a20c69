package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/auth"
)

const identityKey contextKey = "identity"

// Authenticator resolves a raw API key to an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error)
}

// Auth is middleware that extracts the X-API-Key header and resolves it
// to an Identity via the auth service. Missing or invalid keys return 401.
func Auth(authService Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			identity, err := authService.Authenticate(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidKey) {
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or revoked API key", requestID)
					return
				}
				Logger(r.Context()).Error("authentication failed", "error", err)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a copy of ctx carrying identity. The request logger
// gains the actor's ID.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	ctx = withLogger(ctx, "actorId", identity.UserID)
	return context.WithValue(ctx, identityKey, identity)
}
