package middleware

import (
	"log/slog"
	"net/http"

	"github.com/schoolbell/schoolbell-auth/internal/httputil"
)

// Recover creates middleware that converts panics into a generic 500.
// Internal detail is logged, never surfaced to the client.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"method", r.Method,
					)
					httputil.Error(w, http.StatusInternalServerError, "something went wrong, please try again later")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
