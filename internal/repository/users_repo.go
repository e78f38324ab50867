package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

const userColumns = `id, email, email_verified, phone, phone_verified, name, preferred_delivery, last_activity_at, created_at, updated_at`

// UsersRepository reads accounts and writes the few fields this service
// owns: verification flags, delivery preference, activity timestamps.
type UsersRepository struct {
	db Querier
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db Querier) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var delivery sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.EmailVerified, &user.Phone, &user.PhoneVerified,
		&user.Name, &delivery, &user.LastActivityAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if delivery.Valid {
		m := domain.DeliveryMethod(delivery.String)
		user.PreferredDelivery = &m
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email address (case-insensitive).
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByPhone retrieves a user by E.164 phone number.
func (r *UsersRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, phone))
}

// UpdatePreferredDelivery records the user's latest chosen delivery channel.
func (r *UsersRepository) UpdatePreferredDelivery(ctx context.Context, id uuid.UUID, method domain.DeliveryMethod) error {
	query := `
		UPDATE users
		SET preferred_delivery = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, method)
	return err
}

// TouchLastActivity records user activity at the given instant.
func (r *UsersRepository) TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_activity_at = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

// MarkEmailVerified flags the user's email address as verified.
func (r *UsersRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// MarkPhoneVerified flags the user's phone number as verified.
func (r *UsersRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET phone_verified = TRUE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
