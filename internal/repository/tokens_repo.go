package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// TokensRepository handles verification token persistence.
type TokensRepository struct {
	db Querier
}

// NewTokensRepository creates a new verification tokens repository.
func NewTokensRepository(db Querier) *TokensRepository {
	return &TokensRepository{db: db}
}

// Create inserts a new verification token. CreatedAt is set here, once.
func (r *TokensRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, owner_id, kind, hashed_value, created_at, expires_at, attempts, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.OwnerID, token.Kind, token.HashedValue,
		token.CreatedAt, token.ExpiresAt, token.Attempts, token.MaxAttempts,
	)
	return err
}

// GetOutstanding retrieves an unused token by id scoped to a kind.
// Consumed tokens are indistinguishable from missing ones by design.
func (r *TokensRepository) GetOutstanding(ctx context.Context, id uuid.UUID, kind domain.TokenKind) (*domain.VerificationToken, error) {
	query := `
		SELECT id, owner_id, kind, hashed_value, created_at, expires_at, used_at, attempts, max_attempts
		FROM verification_tokens
		WHERE id = $1 AND kind = $2 AND used_at IS NULL
	`
	token := &domain.VerificationToken{}
	err := r.db.QueryRowContext(ctx, query, id, kind).Scan(
		&token.ID, &token.OwnerID, &token.Kind, &token.HashedValue,
		&token.CreatedAt, &token.ExpiresAt, &token.UsedAt,
		&token.Attempts, &token.MaxAttempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetOutstandingByHash retrieves an unused token by secret digest and kind.
// Used by link verification, where the caller holds the secret rather than
// the token id.
func (r *TokensRepository) GetOutstandingByHash(ctx context.Context, hashedValue string, kind domain.TokenKind) (*domain.VerificationToken, error) {
	query := `
		SELECT id, owner_id, kind, hashed_value, created_at, expires_at, used_at, attempts, max_attempts
		FROM verification_tokens
		WHERE hashed_value = $1 AND kind = $2 AND used_at IS NULL
	`
	token := &domain.VerificationToken{}
	err := r.db.QueryRowContext(ctx, query, hashedValue, kind).Scan(
		&token.ID, &token.OwnerID, &token.Kind, &token.HashedValue,
		&token.CreatedAt, &token.ExpiresAt, &token.UsedAt,
		&token.Attempts, &token.MaxAttempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// DeleteUnused removes all unused tokens of a kind for an owner. Issuing a
// new token calls this first so at most one outstanding token exists per
// (owner, kind) afterward.
func (r *TokensRepository) DeleteUnused(ctx context.Context, ownerID uuid.UUID, kind domain.TokenKind) error {
	query := `
		DELETE FROM verification_tokens
		WHERE owner_id = $1 AND kind = $2 AND used_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, ownerID, kind)
	return err
}

// UpdateAttempts stores a new guess count for a token.
func (r *TokensRepository) UpdateAttempts(ctx context.Context, id uuid.UUID, attempts int) error {
	query := `
		UPDATE verification_tokens
		SET attempts = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, attempts)
	return err
}

// MarkUsed consumes a token. The used_at guard makes consumption
// first-wins under concurrent verification of the same token.
func (r *TokensRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE verification_tokens
		SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// DeleteExpired batch-deletes tokens past their expiry. Idempotent and safe
// to run concurrently with issuance and verification.
func (r *TokensRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE expires_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
