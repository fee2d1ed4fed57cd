package notification

import (
	"context"

	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/types"
)

// LogSink writes every lifecycle event to the structured log.
// Always registered so events remain observable even with delivery disabled.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(logger *logger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Deliver(ctx context.Context, event *types.NotificationEvent) error {
	s.logger.Infow("lifecycle event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"timestamp", event.Timestamp,
		"payload", string(event.Payload),
	)
	return nil
}
