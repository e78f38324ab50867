package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the account a credential authenticates. Account CRUD is owned by
// the main platform; this service only reads accounts and updates
// verification flags, delivery preference, and activity bookkeeping.
type User struct {
	ID                uuid.UUID
	Email             string
	EmailVerified     bool
	Phone             *string
	PhoneVerified     bool
	Name              *string
	PreferredDelivery *DeliveryMethod
	LastActivityAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
