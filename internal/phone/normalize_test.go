package phone

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "portuguese mobile without country code",
			input: "912345678",
			want:  "+351912345678",
		},
		{
			name:  "portuguese landline without country code",
			input: "212345678",
			want:  "+351212345678",
		},
		{
			name:  "international 00 prefix",
			input: "00351912345678",
			want:  "+351912345678",
		},
		{
			name:  "already e164",
			input: "+351912345678",
			want:  "+351912345678",
		},
		{
			name:  "formatted with spaces and dashes",
			input: "+351 912-345-678",
			want:  "+351912345678",
		},
		{
			name:  "formatted with parentheses",
			input: "(91) 234 5678",
			want:  "+351912345678",
		},
		{
			name:  "us number without country code",
			input: "2025550123",
			want:  "+12025550123",
		},
		{
			name:  "spanish mobile without country code",
			input: "612345678",
			want:  "+34612345678",
		},
		{
			name:  "spanish mobile newer range",
			input: "712345678",
			want:  "+34712345678",
		},
		{
			name:  "national leading zero dropped",
			input: "0912345678",
			want:  "+351912345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMessage string // substring of the validation message
	}{
		{
			name:        "empty input",
			input:       "",
			wantMessage: "enter a phone number",
		},
		{
			name:        "formatting only",
			input:       "() - ",
			wantMessage: "enter a phone number",
		},
		{
			name:        "eight digits with no inferable country",
			input:       "12345678",
			wantMessage: "country code",
		},
		{
			name:        "long number with no inferable country",
			input:       "11234567890123",
			wantMessage: "country code",
		},
		{
			name:        "too short to be a number",
			input:       "12345",
			wantMessage: "valid phone number",
		},
		{
			name:        "plus with zero country code",
			input:       "+0123456789",
			wantMessage: "valid phone number",
		},
		{
			name:        "exceeds e164 length",
			input:       "+3519123456789012345",
			wantMessage: "valid phone number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			if err == nil {
				t.Fatalf("Normalize(%q) expected failure", tt.input)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Normalize(%q) error type = %T, want *ValidationError", tt.input, err)
			}
			if !strings.Contains(verr.Message, tt.wantMessage) {
				t.Errorf("message %q does not mention %q", verr.Message, tt.wantMessage)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	inputs := []string{"912345678", "bogus", "+351912345678", "12345678"}
	for _, input := range inputs {
		first, firstErr := Normalize(input)
		for i := 0; i < 5; i++ {
			got, err := Normalize(input)
			if got != first || (err == nil) != (firstErr == nil) {
				t.Errorf("Normalize(%q) not deterministic", input)
			}
		}
	}
}

func TestNormalize_PlusOnlyLeading(t *testing.T) {
	// A + anywhere but the front is formatting noise, not a prefix.
	got, err := Normalize("912+345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+351912345678" {
		t.Errorf("got %q, want +351912345678", got)
	}
}
