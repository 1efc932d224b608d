package audit

import (
	"context"
	"log/slog"
)

// Sink delivers batches of audit events to one destination. Implementations
// must tolerate redelivery: the worker retries nothing, but cmd wiring may
// point two gateways at the same Kafka topic or Postgres table.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []Event) error
	Close() error
}

// LogSink writes audit events to the structured log. It is always configured
// so decisions remain observable with no external infrastructure.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, event := range events {
		s.logger.InfoContext(ctx, "gate decision",
			"audit_id", event.ID,
			"time", event.Time,
			"request_id", event.RequestID,
			"path", event.Path,
			"decision", event.Decision,
			"reason", event.Reason,
			"subject", event.Subject,
			"client_ip", event.ClientIP,
			"device", event.Device,
			"device_fp", event.DeviceFP,
		)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
