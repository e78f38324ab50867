package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind identifies what a verification token authenticates.
type TokenKind string

const (
	KindEmailVerify TokenKind = "email_verify"
	KindPhoneVerify TokenKind = "phone_verify"
	KindSigninOTP   TokenKind = "signin_otp"
)

// DeliveryMethod is the channel a sign-in code is sent over.
type DeliveryMethod string

const (
	DeliveryEmail DeliveryMethod = "email"
	DeliverySMS   DeliveryMethod = "sms"
)

// ValidDeliveryMethod reports whether m is a known delivery method.
func ValidDeliveryMethod(m DeliveryMethod) bool {
	return m == DeliveryEmail || m == DeliverySMS
}

// DefaultMaxAttempts is the guess ceiling for newly issued tokens.
const DefaultMaxAttempts = 5

// VerificationToken is one issued credential: a sign-in code or a
// verification link. Only the SHA-256 digest of the secret is stored.
type VerificationToken struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Kind        TokenKind
	HashedValue string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	Attempts    int
	MaxAttempts int
}

// TokenState is the lifecycle state of a verification token.
// Used, Expired, and Locked are terminal: no verification attempt against
// a token in one of those states can ever succeed, and no transition
// leaves them.
type TokenState string

const (
	StateValid   TokenState = "valid"
	StateUsed    TokenState = "used"
	StateExpired TokenState = "expired"
	StateLocked  TokenState = "locked"
)

// State derives the token's lifecycle state at the given instant.
// Used is explicit via UsedAt; Expired and Locked are computed at read time.
func (t *VerificationToken) State(now time.Time) TokenState {
	if t.UsedAt != nil {
		return StateUsed
	}
	if now.After(t.ExpiresAt) {
		return StateExpired
	}
	if t.Attempts >= t.MaxAttempts {
		return StateLocked
	}
	return StateValid
}

// RemainingAttempts returns how many wrong guesses are left before lockout.
func (t *VerificationToken) RemainingAttempts() int {
	remaining := t.MaxAttempts - t.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
