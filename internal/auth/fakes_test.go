package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// In-memory stores standing in for the Postgres repositories. Maps are not
// guarded: tests drive them from one goroutine.

type memTokenStore struct {
	tokens map[uuid.UUID]*domain.VerificationToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[uuid.UUID]*domain.VerificationToken)}
}

func (m *memTokenStore) Create(_ context.Context, token *domain.VerificationToken) error {
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memTokenStore) GetOutstanding(_ context.Context, id uuid.UUID, kind domain.TokenKind) (*domain.VerificationToken, error) {
	t, ok := m.tokens[id]
	if !ok || t.Kind != kind || t.UsedAt != nil {
		return nil, domain.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenStore) GetOutstandingByHash(_ context.Context, hashedValue string, kind domain.TokenKind) (*domain.VerificationToken, error) {
	for _, t := range m.tokens {
		if t.HashedValue == hashedValue && t.Kind == kind && t.UsedAt == nil {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (m *memTokenStore) DeleteUnused(_ context.Context, ownerID uuid.UUID, kind domain.TokenKind) error {
	for id, t := range m.tokens {
		if t.OwnerID == ownerID && t.Kind == kind && t.UsedAt == nil {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memTokenStore) UpdateAttempts(_ context.Context, id uuid.UUID, attempts int) error {
	if t, ok := m.tokens[id]; ok {
		t.Attempts = attempts
	}
	return nil
}

func (m *memTokenStore) MarkUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	t, ok := m.tokens[id]
	if !ok || t.UsedAt != nil {
		return domain.ErrTokenNotFound
	}
	t.UsedAt = &at
	return nil
}

func (m *memTokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

// countUnused returns how many unused tokens of a kind exist for an owner.
func (m *memTokenStore) countUnused(ownerID uuid.UUID, kind domain.TokenKind) int {
	n := 0
	for _, t := range m.tokens {
		if t.OwnerID == ownerID && t.Kind == kind && t.UsedAt == nil {
			n++
		}
	}
	return n
}

type memUserStore struct {
	users   map[uuid.UUID]*domain.User
	touches int
}

func newMemUserStore(users ...*domain.User) *memUserStore {
	m := &memUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Phone != nil && *u.Phone == phone {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserStore) UpdatePreferredDelivery(_ context.Context, id uuid.UUID, method domain.DeliveryMethod) error {
	if u, ok := m.users[id]; ok {
		u.PreferredDelivery = &method
	}
	return nil
}

func (m *memUserStore) TouchLastActivity(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastActivityAt = &at
		m.touches++
	}
	return nil
}

func (m *memUserStore) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	if u, ok := m.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (m *memUserStore) MarkPhoneVerified(_ context.Context, id uuid.UUID) error {
	if u, ok := m.users[id]; ok {
		u.PhoneVerified = true
	}
	return nil
}

type memSessionStore struct {
	sessions map[uuid.UUID]*domain.Session
	writes   int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (m *memSessionStore) Create(_ context.Context, session *domain.Session) error {
	cp := *session
	m.sessions[session.ID] = &cp
	m.writes++
	return nil
}

func (m *memSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	for _, s := range m.sessions {
		if s.TokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memSessionStore) UpdateData(_ context.Context, id uuid.UUID, data domain.SessionData) error {
	if s, ok := m.sessions[id]; ok {
		s.Data = data
		m.writes++
	}
	return nil
}

func (m *memSessionStore) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt time.Time, data domain.SessionData) error {
	if s, ok := m.sessions[id]; ok {
		s.ExpiresAt = expiresAt
		s.Data = data
		m.writes++
	}
	return nil
}

func (m *memSessionStore) BindUser(_ context.Context, id, userID uuid.UUID, tokenHash string, expiresAt time.Time, data domain.SessionData) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.UserID = &userID
	s.TokenHash = tokenHash
	s.ExpiresAt = expiresAt
	s.Data = data
	m.writes++
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
