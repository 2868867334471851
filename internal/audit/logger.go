package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Status       string            `json:"status"`
	Details      map[string]string `json:"details,omitempty"`
}

// Publisher forwards encoded entries to a message bus. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Logger provides structured audit logging for admin operations
type Logger struct {
	logger    zerolog.Logger
	publisher Publisher
	subject   string
}

type Option func(*Logger)

// WithPublisher mirrors every entry to subject.
func WithPublisher(p Publisher, subject string) Option {
	return func(l *Logger) {
		l.publisher = p
		l.subject = subject
	}
}

func NewLogger(logger zerolog.Logger, opts ...Option) *Logger {
	l := &Logger{logger: logger.With().Str("component", "audit").Logger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes entry to the audit log and, when configured, publishes it.
// Publish failures are logged and never surface to the caller.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	event := l.logger.Info()
	if entry.Status == StatusFailure {
		event = l.logger.Warn()
	}
	event.Ctx(ctx).Interface("audit", entry).Msg(entry.Action)

	if l.publisher == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to marshal audit entry")
		return
	}
	if err := l.publisher.Publish(l.subject, data); err != nil {
		l.logger.Error().Err(err).Str("action", entry.Action).Str("subject", l.subject).Msg("failed to publish audit entry")
	}
}

// ConnectNATS dials url for audit publishing. The caller owns the connection.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("eventdesk-audit"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("audit bus disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("audit bus reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect audit bus: %w", err)
	}
	return conn, nil
}
