package middleware

import (
	"context"
	"net/http"

	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionLoad creates middleware that resolves the session cookie to its
// server-side session and stores it in the request context. Requests with
// no cookie, an unknown token or an expired session pass through without a
// session; handlers decide whether that matters.
func SessionLoad(sessions *auth.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httputil.GetSessionTokenFromCookie(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessions.Load(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session from the request context.
func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*domain.Session)
	return session, ok
}

// WithSession returns a context carrying the given session. Test helper
// and composition point for handlers that create a session mid-request.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
