package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

const sessionTokenLen = 32

// SessionConfig holds session policy.
type SessionConfig struct {
	// AnonymousTTL bounds sessions created before any sign-in completes
	// (the entry point creates one to carry the continuation target).
	AnonymousTTL time.Duration
}

// SessionService manages server-side sessions addressed by an opaque
// cookie token. The token is stored hashed; possession of the cookie value
// is the only credential.
type SessionService struct {
	config   SessionConfig
	sessions SessionStore

	now func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, sessions SessionStore) *SessionService {
	if config.AnonymousTTL == 0 {
		config.AnonymousTTL = domain.WebSessionDuration
	}
	return &SessionService{
		config:   config,
		sessions: sessions,
		now:      time.Now,
	}
}

// Start creates a new anonymous session and returns it with the raw cookie
// token.
func (s *SessionService) Start(ctx context.Context) (*domain.Session, string, error) {
	rawToken, err := GenerateToken(sessionTokenLen)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.New(),
		TokenHash: HashToken(rawToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.AnonymousTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, rawToken, nil
}

// Load resolves a raw cookie token to its session, rejecting expired ones.
func (s *SessionService) Load(ctx context.Context, rawToken string) (*domain.Session, error) {
	session, err := s.sessions.GetByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if !session.IsValid(s.now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Save persists the session's key/value data.
func (s *SessionService) Save(ctx context.Context, session *domain.Session) error {
	return s.sessions.UpdateData(ctx, session.ID, session.Data)
}

// Authenticate binds the session to a user after a completed sign-in. The
// cookie token is rotated at the trust boundary; the returned raw token
// replaces the caller's cookie. Expiry is set from the client-class
// duration.
func (s *SessionService) Authenticate(ctx context.Context, session *domain.Session, userID uuid.UUID, duration time.Duration) (string, error) {
	rawToken, err := GenerateToken(sessionTokenLen)
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(duration)
	if err := s.sessions.BindUser(ctx, session.ID, userID, HashToken(rawToken), expiresAt, session.Data); err != nil {
		return "", err
	}

	session.UserID = &userID
	session.TokenHash = HashToken(rawToken)
	session.ExpiresAt = expiresAt
	return rawToken, nil
}

// Reclassify records a fresh client classification and stretches or
// shrinks the session's lifetime to match. Callers only invoke this when
// the classification actually changed; an unchanged classification
// performs no write.
func (s *SessionService) Reclassify(ctx context.Context, session *domain.Session, isPWA bool, duration time.Duration) error {
	now := s.now()
	session.Data.IsPWA = &isPWA
	session.Data.DurationSeconds = int(duration.Seconds())
	session.Data.ClassifiedAt = &now
	session.ExpiresAt = now.Add(duration)
	return s.sessions.UpdateExpiry(ctx, session.ID, session.ExpiresAt, session.Data)
}

// Revoke deletes the session.
func (s *SessionService) Revoke(ctx context.Context, session *domain.Session) error {
	return s.sessions.Delete(ctx, session.ID)
}

// CleanupExpired batch-deletes expired sessions.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
