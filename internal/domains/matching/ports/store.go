package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

var (
	// ErrNotFound is returned when no record exists for the id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the stored version differs from the expected one,
	// or when a create collides with an existing record.
	ErrConflict = errors.New("version conflict")
	// ErrStoreUnavailable wraps I/O failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Mutator edits a private copy of a record. Returning an error aborts the write.
type Mutator[T any] func(T) error

// Table is a keyed collection of versioned records.
type Table[T any, Q any] interface {
	Get(ctx context.Context, id string) (*projection.Projection[T], error)
	// Create assigns an id when the record has none and stores it at version 1.
	Create(ctx context.Context, record T) (*projection.Projection[T], error)
	// CompareAndUpdate applies mutate only if the stored version equals expectedVersion.
	CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate Mutator[T]) (*projection.Projection[T], error)
	// Query returns a snapshot ordered oldest first.
	Query(ctx context.Context, q Q) ([]*projection.Projection[T], error)
}

type (
	DonationProjection = projection.Projection[*domain.Donation]
	RequestProjection  = projection.Projection[*domain.Request]
	MatchProjection    = projection.Projection[*domain.Match]
)

// DonationQuery filters donations. Zero values match everything.
type DonationQuery struct {
	Statuses   []domain.DonationStatus
	DonorOrgID string
	City       string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// RequestQuery filters requests.
type RequestQuery struct {
	Fulfilled       *bool
	RequestingOrgID string
	City            string
	Limit           int
}

// MatchQuery filters matches.
type MatchQuery struct {
	DonationID    string
	RequestID     string
	ClaimantOrgID string
	Statuses      []domain.MatchStatus
	CreatedBefore time.Time
	Limit         int
}

// Store groups the three tables the engine operates on.
type Store interface {
	Donations() Table[*domain.Donation, DonationQuery]
	Requests() Table[*domain.Request, RequestQuery]
	Matches() Table[*domain.Match, MatchQuery]
}
