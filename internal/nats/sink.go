package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ahrdadan/i18ncheck/internal/events"
)

// Conn is the part of *nats.Conn the sink uses.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Sink publishes run events as JSON to "<prefix>.<run id>".
type Sink struct {
	conn   Conn
	prefix string
	logger *zap.Logger
}

// NewSink creates a sink over conn. The sink owns conn and closes it.
func NewSink(conn Conn, prefix string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger.Named("nats"),
	}
}

// Subject returns the subject events of runID are published to.
func (s *Sink) Subject(runID string) string {
	return s.prefix + "." + runID
}

// Handle implements events.Sink. Failures are logged and never propagated.
func (s *Sink) Handle(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("failed to encode event", zap.Error(err))
		return
	}

	if err := s.conn.Publish(s.Subject(e.RunID), data); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("subject", s.Subject(e.RunID)),
			zap.Error(err),
		)
	}
}

// Close flushes pending messages and closes the connection.
func (s *Sink) Close() error {
	defer s.conn.Close()
	if err := s.conn.FlushTimeout(2 * time.Second); err != nil {
		return fmt.Errorf("failed to flush NATS events: %w", err)
	}
	return nil
}
