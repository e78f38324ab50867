package auth

import (
	"context"

	"github.com/schoolbell/schoolbell-auth/internal/domain"
)

// DefaultRedirectPath is where a completed sign-in lands when no
// continuation target was recorded.
const DefaultRedirectPath = "/dashboard/"

// Continuation tracks where a user was originally headed before being
// routed through sign-in. The target lives in the session and survives
// every intermediate step of the flow untouched.
type Continuation struct {
	sessions    SessionStore
	defaultPath string
}

// NewContinuation creates a continuation tracker. defaultPath falls back
// to DefaultRedirectPath when empty.
func NewContinuation(sessions SessionStore, defaultPath string) *Continuation {
	if defaultPath == "" {
		defaultPath = DefaultRedirectPath
	}
	return &Continuation{sessions: sessions, defaultPath: defaultPath}
}

// Begin records the requested destination. An empty next leaves any
// previously stored target alone; a non-empty one overwrites it,
// last-write-wins.
func (c *Continuation) Begin(ctx context.Context, session *domain.Session, next string) error {
	if next == "" {
		return nil
	}
	session.Data.PendingRedirect = next
	return c.sessions.UpdateData(ctx, session.ID, session.Data)
}

// Resolve consumes the continuation at the end of a successful sign-in:
// it returns the stored target (or the default path), and clears every
// sign-in-scoped session key in the same write.
func (c *Continuation) Resolve(ctx context.Context, session *domain.Session) (string, error) {
	target := session.Data.PendingRedirect
	if target == "" {
		target = c.defaultPath
	}

	session.Data.ClearSigninState()
	if err := c.sessions.UpdateData(ctx, session.ID, session.Data); err != nil {
		return "", err
	}
	return target, nil
}
