package messaging

import (
	"context"
	"sync"
)

// SentMessage captures one SendMessage call on a RecorderService.
type SentMessage struct {
	To   string
	Body string
}

// RecorderService implements Service by recording sends in memory. Tests use
// it to assert on outbound traffic; it can also stand in for a transport in
// local development.
type RecorderService struct {
	mu       sync.Mutex
	messages []SentMessage

	// SendErr, when set, is returned from every SendMessage call.
	SendErr error
}

// NewRecorderService creates an empty recorder.
func NewRecorderService() *RecorderService {
	return &RecorderService{}
}

func (s *RecorderService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *RecorderService) Start(ctx context.Context) error { return nil }

func (s *RecorderService) Stop() error { return nil }

func (s *RecorderService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return s.SendErr
	}
	s.messages = append(s.messages, SentMessage{To: to, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (s *RecorderService) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
