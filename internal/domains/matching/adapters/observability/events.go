package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// EventLogger writes every lifecycle event as a structured log line.
type EventLogger struct {
	logger *slog.Logger
}

func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = defaultLogger()
	}
	return &EventLogger{logger: logger}
}

func (l *EventLogger) Publish(ctx context.Context, events ...domain.Event) error {
	for _, e := range events {
		if e == nil {
			continue
		}
		l.logger.LogAttrs(ctx, slog.LevelInfo, "matching event",
			slog.String("event", e.EventName()),
			slog.Time("occurred_at", e.OccurredAt()),
			slog.Any("payload", e))
	}
	return nil
}

// FanOut delivers events to every publisher and joins their errors.
type FanOut []ports.EventPublisher

func (f FanOut) Publish(ctx context.Context, events ...domain.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.EventPublisher = (*EventLogger)(nil)
	_ ports.EventPublisher = FanOut(nil)
)
