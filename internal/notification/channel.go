// Package notification delivers sign-in codes and verification links over
// email and SMS. Delivery is fire-and-forget from the core's point of
// view: failures are reported to the caller, never retried here.
package notification

import "context"

// Channel is a delivery channel for short user-facing payloads.
type Channel interface {
	// SendSigninCode delivers a one-time sign-in code.
	SendSigninCode(ctx context.Context, destination, code string) error
	// SendVerificationLink delivers a verification URL.
	SendVerificationLink(ctx context.Context, destination, link string) error
}
