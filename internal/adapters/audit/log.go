package audit

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to the structured log. It never fails.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogPublisher{
		logger: logger.With(slog.String("component", "audit"), slog.String("sink", "log")),
	}
}

// Publish implements ports.EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event ports.Event) error {
	attrs := []any{
		slog.String("event_type", event.EventType()),
		slog.Any("payload", event.Payload()),
	}

	if scoped, ok := event.(ports.ScopedEvent); ok {
		attrs = append(attrs,
			slog.String("tenant_id", scoped.Tenant()),
			slog.String("subject", scoped.Subject()),
		)
	}

	logging.FromContextOr(ctx, p.logger).InfoContext(ctx, "audit event", attrs...)

	return nil
}
