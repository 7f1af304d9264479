package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSender writes emails to the logger instead of delivering them and keeps
// them in memory for inspection. Used in development and tests.
type LogSender struct {
	*dispatcher
	log zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender creates a sender that logs every rendered email.
func NewLogSender(baseURL, support string, log zerolog.Logger) *LogSender {
	s := &LogSender{log: log}
	s.dispatcher = &dispatcher{
		renderer: renderer{baseURL: baseURL, support: support},
		deliver:  s.record,
	}
	return s
}

func (s *LogSender) record(_ context.Context, msg Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	s.log.Info().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email (log driver)")
	s.log.Debug().Str("body", msg.Body).Msg("email body")
	return nil
}

// Sent returns a copy of every recorded message.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last returns the most recent message of kind sent to addr.
func (s *LogSender) Last(kind Kind, addr string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Kind == kind && s.sent[i].To == addr {
			return s.sent[i], true
		}
	}
	return Message{}, false
}
