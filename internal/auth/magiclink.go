package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

const linkTokenLen = 32

// VerificationConfig holds magic-link policy.
type VerificationConfig struct {
	EmailLinkTTL time.Duration
	PhoneLinkTTL time.Duration
	SigningKey   []byte
	Issuer       string
	AppBaseURL   string
}

// VerificationService issues and consumes magic links for email and phone
// verification. The link parameter is an HS256 JWT wrapping a random
// secret; the secret's digest is what the store knows. The signature check
// rejects forged or truncated links before any store lookup.
type VerificationService struct {
	config VerificationConfig
	tokens TokenStore
	users  UserStore

	now func() time.Time
}

// NewVerificationService creates a new verification service.
func NewVerificationService(config VerificationConfig, tokens TokenStore, users UserStore) *VerificationService {
	if config.EmailLinkTTL == 0 {
		config.EmailLinkTTL = 24 * time.Hour
	}
	if config.PhoneLinkTTL == 0 {
		config.PhoneLinkTTL = time.Hour
	}
	return &VerificationService{
		config: config,
		tokens: tokens,
		users:  users,
		now:    time.Now,
	}
}

type linkClaims struct {
	jwt.RegisteredClaims
	Kind  string `json:"kind"`
	Token string `json:"tok"`
}

// CreateEmailVerificationLink issues an email_verify token for the user
// and returns the full verification URL. Prior unused links for the user
// are invalidated.
func (s *VerificationService) CreateEmailVerificationLink(ctx context.Context, userID uuid.UUID) (string, error) {
	signed, err := s.createLink(ctx, userID, domain.KindEmailVerify, s.config.EmailLinkTTL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/auth/verify-email?token=%s", s.config.AppBaseURL, url.QueryEscape(signed)), nil
}

// CreatePhoneVerificationLink issues a phone_verify token and returns the
// verification URL, short enough for an SMS.
func (s *VerificationService) CreatePhoneVerificationLink(ctx context.Context, userID uuid.UUID) (string, error) {
	signed, err := s.createLink(ctx, userID, domain.KindPhoneVerify, s.config.PhoneLinkTTL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/auth/verify-phone?token=%s", s.config.AppBaseURL, url.QueryEscape(signed)), nil
}

func (s *VerificationService) createLink(ctx context.Context, userID uuid.UUID, kind domain.TokenKind, ttl time.Duration) (string, error) {
	raw, err := GenerateToken(linkTokenLen)
	if err != nil {
		return "", err
	}

	if err := s.tokens.DeleteUnused(ctx, userID, kind); err != nil {
		return "", fmt.Errorf("failed to invalidate previous links: %w", err)
	}

	now := s.now()
	token := &domain.VerificationToken{
		ID:          uuid.New(),
		OwnerID:     userID,
		Kind:        kind,
		HashedValue: HashToken(raw),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		MaxAttempts: domain.DefaultMaxAttempts,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to create verification link: %w", err)
	}

	claims := linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
			Issuer:    s.config.Issuer,
			ID:        token.ID.String(),
		},
		Kind:  string(kind),
		Token: raw,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification link: %w", err)
	}
	return signed, nil
}

// VerifyEmailLink consumes an email verification link and marks the
// owner's email as verified.
func (s *VerificationService) VerifyEmailLink(ctx context.Context, signed string) (uuid.UUID, error) {
	userID, err := s.verifyLink(ctx, signed, domain.KindEmailVerify)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	return userID, nil
}

// VerifyPhoneLink consumes a phone verification link and marks the
// owner's phone as verified.
func (s *VerificationService) VerifyPhoneLink(ctx context.Context, signed string) (uuid.UUID, error) {
	userID, err := s.verifyLink(ctx, signed, domain.KindPhoneVerify)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.users.MarkPhoneVerified(ctx, userID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to mark phone verified: %w", err)
	}
	return userID, nil
}

func (s *VerificationService) verifyLink(ctx context.Context, signed string, kind domain.TokenKind) (uuid.UUID, error) {
	claims := &linkClaims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidLink
		}
		return s.config.SigningKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Kind != string(kind) {
		return uuid.Nil, domain.ErrInvalidLink
	}

	token, err := s.tokens.GetOutstandingByHash(ctx, HashToken(claims.Token), kind)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidLink
	}

	now := s.now()
	if token.State(now) != domain.StateValid {
		// Expired vs consumed is not distinguished for link holders.
		return uuid.Nil, domain.ErrInvalidLink
	}
	if err := s.tokens.MarkUsed(ctx, token.ID, now); err != nil {
		return uuid.Nil, domain.ErrInvalidLink
	}
	return token.OwnerID, nil
}
