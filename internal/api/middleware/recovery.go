package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/daap14/useradmin/internal/api/response"
)

// Recovery turns a panic in a handler into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can abort the response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			Logger(r.Context()).Error("panic recovered", "panic", rec, "stack", string(debug.Stack()))
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", GetRequestID(r.Context()))
		}()
		next.ServeHTTP(w, r)
	})
}
