package audit

import (
	"context"
	"log/slog"

	"github.com/shopmate/sentinel/internal/security"
)

// Sink is a downstream destination for flushed event batches. A sink
// acknowledges or rejects a batch as a whole; partial acknowledgment is
// not part of the contract.
type Sink interface {
	Name() string
	WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error
}

// ConsoleSink writes each event through the process logger.
type ConsoleSink struct {
	logger *slog.Logger
}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{logger: slog.Default()}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error {
	for _, event := range batch {
		s.logger.Info("security event",
			"id", event.ID,
			"type", event.Type,
			"severity", event.Severity,
			"risk", event.RiskScore,
			"ip", event.IPAddress,
			"endpoint", event.Endpoint,
			"message", event.Message,
		)
	}
	return nil
}
