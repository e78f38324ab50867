package domain

import (
	"errors"
	"fmt"
)

// Verification errors. ErrTokenNotFound deliberately covers "no such
// token", "wrong kind", and "already used": callers must not be able to
// enumerate which condition applied.
var (
	ErrTokenNotFound = errors.New("invalid verification session")
	ErrTokenExpired  = errors.New("verification code expired")
	ErrTokenLocked   = errors.New("too many incorrect attempts")
	ErrInvalidLink   = errors.New("invalid verification link")
)

// Account and session errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Delivery errors
var (
	ErrDeliveryFailed = errors.New("delivery failed")
)

// OTPMismatchError is returned for a wrong code that has not yet exhausted
// the attempt ceiling. It is the only failure that reports detail: the
// remaining-attempt count does not reveal account existence.
type OTPMismatchError struct {
	Remaining int
}

func (e *OTPMismatchError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.Remaining)
}

// AsMismatch unwraps err as an OTPMismatchError if it is one.
func AsMismatch(err error) (*OTPMismatchError, bool) {
	var m *OTPMismatchError
	if errors.As(err, &m) {
		return m, true
	}
	return nil, false
}
