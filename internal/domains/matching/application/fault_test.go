package application

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// faultyTable injects version conflicts and create failures in front of a real table.
type faultyTable[T any, Q any] struct {
	inner ports.Table[T, Q]

	mu          sync.Mutex
	casFailures int
	createErr   error
}

func (f *faultyTable[T, Q]) failNextCAS(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casFailures = n
}

func (f *faultyTable[T, Q]) failCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *faultyTable[T, Q]) Get(ctx context.Context, id string) (*projection.Projection[T], error) {
	return f.inner.Get(ctx, id)
}

func (f *faultyTable[T, Q]) Create(ctx context.Context, record T) (*projection.Projection[T], error) {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.Create(ctx, record)
}

func (f *faultyTable[T, Q]) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	f.mu.Lock()
	if f.casFailures > 0 {
		f.casFailures--
		f.mu.Unlock()
		return nil, ports.ErrConflict
	}
	f.mu.Unlock()
	return f.inner.CompareAndUpdate(ctx, id, expectedVersion, mutate)
}

func (f *faultyTable[T, Q]) Query(ctx context.Context, q Q) ([]*projection.Projection[T], error) {
	return f.inner.Query(ctx, q)
}

type faultyStore struct {
	donations *faultyTable[*domain.Donation, ports.DonationQuery]
	requests  *faultyTable[*domain.Request, ports.RequestQuery]
	matches   *faultyTable[*domain.Match, ports.MatchQuery]
}

func newFaultyStore(inner ports.Store) *faultyStore {
	return &faultyStore{
		donations: &faultyTable[*domain.Donation, ports.DonationQuery]{inner: inner.Donations()},
		requests:  &faultyTable[*domain.Request, ports.RequestQuery]{inner: inner.Requests()},
		matches:   &faultyTable[*domain.Match, ports.MatchQuery]{inner: inner.Matches()},
	}
}

func (s *faultyStore) Donations() ports.Table[*domain.Donation, ports.DonationQuery] {
	return s.donations
}

func (s *faultyStore) Requests() ports.Table[*domain.Request, ports.RequestQuery] {
	return s.requests
}

func (s *faultyStore) Matches() ports.Table[*domain.Match, ports.MatchQuery] {
	return s.matches
}

// failingPublisher rejects every event.
type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, ...domain.Event) error {
	p.calls++
	return context.DeadlineExceeded
}
