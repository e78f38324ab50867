package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestVerificationToken_State(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token VerificationToken
		want  TokenState
	}{
		{
			name: "fresh token is valid",
			token: VerificationToken{
				ExpiresAt:   now.Add(10 * time.Minute),
				MaxAttempts: DefaultMaxAttempts,
			},
			want: StateValid,
		},
		{
			name: "consumed token is used",
			token: VerificationToken{
				ExpiresAt:   now.Add(10 * time.Minute),
				UsedAt:      &used,
				MaxAttempts: DefaultMaxAttempts,
			},
			want: StateUsed,
		},
		{
			name: "past expiry is expired",
			token: VerificationToken{
				ExpiresAt:   now.Add(-time.Second),
				MaxAttempts: DefaultMaxAttempts,
			},
			want: StateExpired,
		},
		{
			name: "attempts at ceiling is locked",
			token: VerificationToken{
				ExpiresAt:   now.Add(10 * time.Minute),
				Attempts:    5,
				MaxAttempts: 5,
			},
			want: StateLocked,
		},
		{
			name: "attempts over ceiling is locked",
			token: VerificationToken{
				ExpiresAt:   now.Add(10 * time.Minute),
				Attempts:    6,
				MaxAttempts: 5,
			},
			want: StateLocked,
		},
		{
			name: "used wins over expired",
			token: VerificationToken{
				ExpiresAt:   now.Add(-time.Hour),
				UsedAt:      &used,
				MaxAttempts: DefaultMaxAttempts,
			},
			want: StateUsed,
		},
		{
			name: "expired wins over locked",
			token: VerificationToken{
				ExpiresAt:   now.Add(-time.Hour),
				Attempts:    5,
				MaxAttempts: 5,
			},
			want: StateExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.State(now); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationToken_RemainingAttempts(t *testing.T) {
	tok := VerificationToken{ID: uuid.New(), Attempts: 3, MaxAttempts: 5}
	if got := tok.RemainingAttempts(); got != 2 {
		t.Errorf("RemainingAttempts() = %d, want 2", got)
	}

	// Concurrency slack can overshoot the ceiling; remaining never goes negative.
	tok.Attempts = 6
	if got := tok.RemainingAttempts(); got != 0 {
		t.Errorf("RemainingAttempts() = %d, want 0", got)
	}
}

func TestValidDeliveryMethod(t *testing.T) {
	if !ValidDeliveryMethod(DeliveryEmail) || !ValidDeliveryMethod(DeliverySMS) {
		t.Error("known delivery methods should validate")
	}
	if ValidDeliveryMethod("carrier_pigeon") {
		t.Error("unknown delivery method should not validate")
	}
}

func TestSessionData_ClearSigninState(t *testing.T) {
	pwa := true
	at := time.Now()
	data := SessionData{
		IsPWA:           &pwa,
		DurationSeconds: 86400,
		ClassifiedAt:    &at,
		PendingRedirect: "/profile/",
		OTPTokenID:      uuid.NewString(),
		DeliveryMethod:  "email",
		PendingUserID:   uuid.NewString(),
	}

	data.ClearSigninState()

	if data.PendingRedirect != "" || data.OTPTokenID != "" || data.DeliveryMethod != "" || data.PendingUserID != "" {
		t.Error("sign-in keys should be cleared")
	}
	// Classification metadata is not sign-in state and must survive.
	if data.IsPWA == nil || data.DurationSeconds != 86400 || data.ClassifiedAt == nil {
		t.Error("classification metadata should be untouched")
	}
}
