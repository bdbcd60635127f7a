package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var (
	_ ports.EventPublisher = (*EventLog)(nil)
	_ ports.EventFeed      = (*EventLog)(nil)
)

// DefaultEventLogSize bounds the number of retained events.
const DefaultEventLogSize = 512

// EventLog keeps the most recent lifecycle events in a ring buffer.
type EventLog struct {
	mu     sync.RWMutex
	events []domain.Event
	next   int
	full   bool
}

// NewEventLog creates a log retaining at most size events.
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{events: make([]domain.Event, size)}
}

func (l *EventLog) Publish(_ context.Context, events ...domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		if e == nil {
			continue
		}
		l.events[l.next] = e
		l.next = (l.next + 1) % len(l.events)
		if l.next == 0 {
			l.full = true
		}
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := l.next
	if l.full {
		count = len(l.events)
	}
	if limit <= 0 || limit > count {
		limit = count
	}
	out := make([]domain.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out, nil
}
