package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session durations by client class.
const (
	WebSessionDuration = 24 * time.Hour
	PWASessionDuration = 7 * 24 * time.Hour
)

// SessionData is the closed set of keys the service keeps in a session.
// Sign-in state (OTPTokenID, DeliveryMethod, PendingUserID, PendingRedirect)
// lives here between the steps of the multi-step flow and is cleared as a
// unit when the flow completes.
type SessionData struct {
	IsPWA           *bool      `json:"is_pwa,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	ClassifiedAt    *time.Time `json:"classified_at,omitempty"`
	PendingRedirect string     `json:"pending_redirect,omitempty"`
	OTPTokenID      string     `json:"otp_token_id,omitempty"`
	DeliveryMethod  string     `json:"delivery_method,omitempty"`
	PendingUserID   string     `json:"pending_user_id,omitempty"`
}

// ClearSigninState removes all sign-in-scoped keys.
func (d *SessionData) ClearSigninState() {
	d.PendingRedirect = ""
	d.OTPTokenID = ""
	d.DeliveryMethod = ""
	d.PendingUserID = ""
}

// Session is a server-side session addressed by an opaque cookie token
// (stored hashed). Sessions exist before authentication; UserID is nil
// until a sign-in completes.
type Session struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Data      SessionData
}

// IsAuthenticated reports whether the session is bound to a user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != nil
}

// IsValid reports whether the session has not expired at the given instant.
func (s *Session) IsValid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
