package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rallypointza/rallypoint/internal/whatsapp"
)

// WhatsAppService implements Service using the Whatsmeow-based client.
type WhatsAppService struct {
	client  whatsapp.Sender
	mu      sync.RWMutex
	stopped bool
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given Sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	slog.Debug("WhatsAppService created")
	return &WhatsAppService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; the underlying client connects during construction.
func (s *WhatsAppService) Start(ctx context.Context) error {
	slog.Debug("WhatsAppService Start invoked")
	return nil
}

// Stop marks the service stopped.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	slog.Info("WhatsAppService stopped")
	return nil
}

// SendMessage sends a message to the recipient over WhatsApp.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}

	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("WhatsAppService SendMessage error", "error", err, "to", canonicalTo)
		return err
	}
	slog.Info("WhatsAppService message sent", "to", canonicalTo, "body_length", len(body))
	return nil
}
