package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// Code space: 6 digits, uniform over [100000, 999999].
const (
	otpMin  = 100000
	otpSpan = 900000
)

// OTPConfig holds one-time-code policy.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

// OTPService issues and verifies one-time sign-in codes.
type OTPService struct {
	config OTPConfig
	tokens TokenStore
	users  UserStore

	// Injected for deterministic tests; default to time.Now and crypto/rand.
	now  func() time.Time
	rand io.Reader
}

// NewOTPService creates a new OTP service.
func NewOTPService(config OTPConfig, tokens TokenStore, users UserStore) *OTPService {
	if config.TTL == 0 {
		config.TTL = 10 * time.Minute
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = domain.DefaultMaxAttempts
	}
	return &OTPService{
		config: config,
		tokens: tokens,
		users:  users,
		now:    time.Now,
		rand:   rand.Reader,
	}
}

// Generate issues a fresh sign-in code for the owner, invalidating any
// outstanding ones first so at most one unused signin_otp token exists per
// owner. The plaintext code is returned for the delivery channel and never
// stored.
//
// The invalidate-then-create sequence is not guarded by a lock; two
// concurrent calls for one owner can briefly leave two outstanding tokens.
// Accepted: one active requester per owner in practice.
func (s *OTPService) Generate(ctx context.Context, ownerID uuid.UUID, delivery domain.DeliveryMethod) (string, uuid.UUID, error) {
	if err := s.tokens.DeleteUnused(ctx, ownerID, domain.KindSigninOTP); err != nil {
		return "", uuid.Nil, fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	code, err := s.generateCode()
	if err != nil {
		return "", uuid.Nil, err
	}

	now := s.now()
	token := &domain.VerificationToken{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Kind:        domain.KindSigninOTP,
		HashedValue: HashToken(code),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.TTL),
		Attempts:    0,
		MaxAttempts: s.config.MaxAttempts,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", uuid.Nil, fmt.Errorf("failed to create sign-in code: %w", err)
	}

	// Remember the chosen channel. Best effort, not security-critical.
	_ = s.users.UpdatePreferredDelivery(ctx, ownerID, delivery)

	return code, token.ID, nil
}

// Verify checks a submitted code against the token. Expected outcomes are
// returned as domain errors: ErrTokenNotFound (missing or already used),
// ErrTokenExpired, ErrTokenLocked, or *OTPMismatchError with the remaining
// attempt count. On success the token is consumed and the owner returned.
func (s *OTPService) Verify(ctx context.Context, tokenID uuid.UUID, submitted string) (uuid.UUID, error) {
	token, err := s.tokens.GetOutstanding(ctx, tokenID, domain.KindSigninOTP)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.now()
	switch token.State(now) {
	case domain.StateExpired:
		return uuid.Nil, domain.ErrTokenExpired
	case domain.StateLocked:
		return uuid.Nil, domain.ErrTokenLocked
	}

	if !digestsEqual(token.HashedValue, HashToken(submitted)) {
		// Read-modify-write on purpose: a concurrent wrong guess can
		// overshoot the ceiling by one, which only makes lockout stricter.
		token.Attempts++
		if err := s.tokens.UpdateAttempts(ctx, token.ID, token.Attempts); err != nil {
			return uuid.Nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if token.Attempts >= token.MaxAttempts {
			return uuid.Nil, domain.ErrTokenLocked
		}
		return uuid.Nil, &domain.OTPMismatchError{Remaining: token.RemainingAttempts()}
	}

	if err := s.tokens.MarkUsed(ctx, token.ID, now); err != nil {
		return uuid.Nil, err
	}
	return token.OwnerID, nil
}

// CleanupExpired batch-deletes expired tokens. Maintenance only, not part
// of the request path.
func (s *OTPService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now())
}

// generateCode draws a 6-digit code from a cryptographically secure
// uniform distribution.
func (s *OTPService) generateCode() (string, error) {
	n, err := rand.Int(s.rand, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// digestsEqual compares two hex digests without early exit, so comparison
// time does not leak where the first differing byte is.
func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
