package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/device"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// SessionPolicy re-evaluates the client classification on every
// authenticated request and keeps the session's lifetime in line with it.
// Unchanged classifications perform no session write. It also records the
// owner's last activity, throttled so at most one write lands per user per
// interval.
type SessionPolicy struct {
	sessions   *auth.SessionService
	users      auth.UserStore
	touchEvery time.Duration
	logger     *slog.Logger

	now func() time.Time

	mu        sync.Mutex
	lastTouch map[uuid.UUID]time.Time
}

// NewSessionPolicy creates the session policy middleware.
func NewSessionPolicy(sessions *auth.SessionService, users auth.UserStore, touchEvery time.Duration, logger *slog.Logger) *SessionPolicy {
	if touchEvery == 0 {
		touchEvery = 5 * time.Minute
	}
	return &SessionPolicy{
		sessions:   sessions,
		users:      users,
		touchEvery: touchEvery,
		logger:     logger,
		now:        time.Now,
		lastTouch:  make(map[uuid.UUID]time.Time),
	}
}

// Handler applies the policy. Unauthenticated requests pass through
// untouched. Classification or persistence failures never fail the
// request.
func (p *SessionPolicy) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := GetSession(r.Context())
		if !ok || !session.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}

		cls := device.Classify(r)
		if needsReclassify(session, cls) {
			if err := p.sessions.Reclassify(r.Context(), session, cls.IsPWA, cls.Duration); err != nil {
				p.logger.Warn("session reclassify failed",
					"session_id", session.ID,
					"error", err,
				)
			}
		}

		if p.shouldTouch(*session.UserID) {
			if err := p.users.TouchLastActivity(r.Context(), *session.UserID, p.now()); err != nil {
				p.logger.Warn("activity touch failed",
					"user_id", session.UserID,
					"error", err,
				)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// needsReclassify reports whether the stored classification disagrees with
// the fresh one. A session that was never classified always needs a write.
func needsReclassify(session *domain.Session, cls device.Classification) bool {
	d := session.Data
	if d.IsPWA == nil {
		return true
	}
	if *d.IsPWA != cls.IsPWA {
		return true
	}
	return d.DurationSeconds != int(cls.Duration.Seconds())
}

// shouldTouch claims a touch slot for the user, allowing at most one per
// interval per process.
func (p *SessionPolicy) shouldTouch(userID uuid.UUID) bool {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if last, ok := p.lastTouch[userID]; ok && now.Sub(last) < p.touchEvery {
		return false
	}
	p.lastTouch[userID] = now
	return true
}
