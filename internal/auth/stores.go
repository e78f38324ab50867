package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// TokenStore is the verification-token persistence the auth services need.
// *repository.TokensRepository satisfies it; tests substitute in-memory
// fakes.
type TokenStore interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	GetOutstanding(ctx context.Context, id uuid.UUID, kind domain.TokenKind) (*domain.VerificationToken, error)
	GetOutstandingByHash(ctx context.Context, hashedValue string, kind domain.TokenKind) (*domain.VerificationToken, error)
	DeleteUnused(ctx context.Context, ownerID uuid.UUID, kind domain.TokenKind) error
	UpdateAttempts(ctx context.Context, id uuid.UUID, attempts int) error
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// UserStore is the account access the auth services need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	UpdatePreferredDelivery(ctx context.Context, id uuid.UUID, method domain.DeliveryMethod) error
	TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	MarkPhoneVerified(ctx context.Context, id uuid.UUID) error
}

// SessionStore is the session persistence the session service needs.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateData(ctx context.Context, id uuid.UUID, data domain.SessionData) error
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time, data domain.SessionData) error
	BindUser(ctx context.Context, id, userID uuid.UUID, tokenHash string, expiresAt time.Time, data domain.SessionData) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
