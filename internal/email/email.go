package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Message is one transactional email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender is the placeholder sender: it logs the message instead of delivering it.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email (placeholder sender)")
	return nil
}

// RecordingSender keeps every message in memory. Err, when set, fails every send.
type RecordingSender struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (s *RecordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.Sent...)
}
