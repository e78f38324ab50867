package middleware

import (
	"net/http"

	"github.com/schoolbell/schoolbell-auth/internal/httputil"
)

// RequireAuth creates middleware that rejects requests whose session is
// absent or not yet bound to a user.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			if !ok || !session.IsAuthenticated() {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
