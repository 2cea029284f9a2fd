package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSOpts holds configuration options for the Twilio SMS service.
type SMSOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SMSOption defines a configuration option for the Twilio SMS service.
type SMSOption func(*SMSOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) SMSOption {
	return func(o *SMSOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) SMSOption {
	return func(o *SMSOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 format.
func WithFromNumber(from string) SMSOption {
	return func(o *SMSOpts) { o.FromNumber = from }
}

// SMSService implements Service using the Twilio REST API. Campaign welcome
// notices go out over SMS so they reach users regardless of chat transport.
type SMSService struct {
	client  *twilio.RestClient
	from    string
	mu      sync.RWMutex
	stopped bool
}

// NewSMSService creates a Twilio-backed SMS service. Credentials fall back to
// the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER
// environment variables when not set via options.
func NewSMSService(opts ...SMSOption) (*SMSService, error) {
	var cfg SMSOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio SMS config loaded",
		"account_sid_set", cfg.AccountSID != "",
		"auth_token_set", cfg.AuthToken != "",
		"from_number_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &SMSService{client: client, from: cfg.FromNumber}, nil
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *SMSService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; Twilio is a stateless REST API.
func (s *SMSService) Start(ctx context.Context) error {
	return nil
}

// Stop marks the service stopped.
func (s *SMSService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	slog.Info("SMSService stopped")
	return nil
}

// SendMessage sends an SMS via the Twilio API.
func (s *SMSService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("SMSService SendMessage validation error", "error", err, "to", to)
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("+" + canonicalTo)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("SMSService SendMessage failed", "error", err, "to", canonicalTo)
		return fmt.Errorf("failed to send SMS to %s: %w", canonicalTo, err)
	}
	slog.Debug("SMS sent", "to", canonicalTo)
	return nil
}
