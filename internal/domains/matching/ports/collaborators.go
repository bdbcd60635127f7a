package ports

import (
	"context"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

// SimilarityOracle returns a semantic similarity in [0,1] for two descriptions.
// Implementations may fail; callers must tolerate errors and odd values.
type SimilarityOracle interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// EventPublisher receives lifecycle events after the corresponding write committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// EventFeed exposes recently published events to read-only consumers.
type EventFeed interface {
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
}

// SweepRequest configures one stale-claim sweep.
type SweepRequest struct {
	MaxAge time.Duration
	Limit  int
	// Key names the run; a sweep started with a key already in flight joins that run.
	Key string
}

// SweepReport summarizes a sweep run.
type SweepReport struct {
	Examined   int
	Released   []string
	Skipped    int
	Failed     map[string]string
	StartedAt  time.Time
	FinishedAt time.Time
}

// SweepOrchestrator runs stale-claim sweeps, inline or on a durable engine.
type SweepOrchestrator interface {
	Sweep(ctx context.Context, req SweepRequest) (*SweepReport, error)
}
