// Package notify announces finished builds on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "foliobuilder.published"

// Event describes a finished build.
type Event struct {
	BuildID      string    `json:"build_id"`
	Outcome      string    `json:"outcome"`
	Projects     int       `json:"projects"`
	ManifestHash string    `json:"manifest_hash,omitempty"`
	Hostnames    []string  `json:"hostnames,omitempty"`
	Revision     string    `json:"revision,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// NATSPublisher publishes events as JSON on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("foliobuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Debug("NATS publisher connected", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// Publish sends e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	p.logger.Debug("Published build event",
		"subject", p.subject,
		"build_id", e.BuildID,
		"outcome", e.Outcome)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATSPublisher)(nil)
)
