// Package messaging provides pluggable outbound message delivery for
// Rallypoint. The flow engine sends share forwards and welcome notices
// through a Service without knowing which transport carries them.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

// ErrServiceStopped is returned when a send is attempted after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// phoneNumberRegex matches everything that is not a digit; used to
// canonicalize recipient numbers.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// MinimumPhoneDigits is the shortest recipient number accepted after
// canonicalization.
const MinimumPhoneDigits = 6

// Service defines a message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier. Each transport applies its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error
}

// canonicalizePhone strips non-digit characters and validates the remaining
// number length. Shared by the transports that address by phone number.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}

	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinimumPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinimumPhoneDigits)
	}

	if canonical != recipient {
		slog.Debug("canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
