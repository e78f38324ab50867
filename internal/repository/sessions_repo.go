package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// SessionsRepository handles server-side session persistence. The session's
// key/value data lives in a JSON column; classification and sign-in keys
// are disjoint from the row's identity fields, so unguarded concurrent
// writes to different fields are acceptable.
type SessionsRepository struct {
	db Querier
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db Querier) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Create inserts a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	query := `
		INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TokenHash,
		session.CreatedAt, session.ExpiresAt, data,
	)
	return err
}

// GetByTokenHash retrieves a session by cookie token digest.
func (r *SessionsRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token_hash, created_at, expires_at, data
		FROM sessions
		WHERE token_hash = $1
	`
	session := &domain.Session{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&session.CreatedAt, &session.ExpiresAt, &raw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &session.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
		}
	}
	return session, nil
}

// UpdateData replaces the session's key/value data.
func (r *SessionsRepository) UpdateData(ctx context.Context, id uuid.UUID, data domain.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	query := `
		UPDATE sessions
		SET data = $2
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, id, raw)
	return err
}

// UpdateExpiry sets a new expiry and data in one write; used when the
// client classification changes.
func (r *SessionsRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time, data domain.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	query := `
		UPDATE sessions
		SET expires_at = $2, data = $3
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, id, expiresAt, raw)
	return err
}

// BindUser attaches a user to the session with a rotated token and fresh
// expiry. The session survives the authentication boundary; its identity
// does not.
func (r *SessionsRepository) BindUser(ctx context.Context, id, userID uuid.UUID, tokenHash string, expiresAt time.Time, data domain.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	query := `
		UPDATE sessions
		SET user_id = $2, token_hash = $3, expires_at = $4, data = $5
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, userID, tokenHash, expiresAt, raw)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session.
func (r *SessionsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpired batch-deletes sessions past their expiry.
func (r *SessionsRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
