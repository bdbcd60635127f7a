package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

var _ ports.Store = (*Store)(nil)

// Store is an in-memory adapter for the three matching tables.
type Store struct {
	env       *environment
	donations *Table[*domain.Donation, ports.DonationQuery]
	requests  *Table[*domain.Request, ports.RequestQuery]
	matches   *Table[*domain.Match, ports.MatchQuery]
}

// NewStore builds an empty store with a UTC wall clock and UUIDv7 identifiers.
func NewStore() *Store {
	env := &environment{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	return &Store{
		env:       env,
		donations: newTable(env, donationOps()),
		requests:  newTable(env, requestOps()),
		matches:   newTable(env, matchOps()),
	}
}

// WithClock overrides the clock used for metadata timestamps (useful for tests).
func (s *Store) WithClock(now func() time.Time) {
	if now != nil {
		s.env.now = now
	}
}

// WithIDGenerator overrides identifier generation (useful for tests).
func (s *Store) WithIDGenerator(gen func() string) {
	if gen != nil {
		s.env.newID = gen
	}
}

func (s *Store) Donations() ports.Table[*domain.Donation, ports.DonationQuery] { return s.donations }
func (s *Store) Requests() ports.Table[*domain.Request, ports.RequestQuery]    { return s.requests }
func (s *Store) Matches() ports.Table[*domain.Match, ports.MatchQuery]         { return s.matches }

func donationOps() entityOps[*domain.Donation, ports.DonationQuery] {
	return entityOps[*domain.Donation, ports.DonationQuery]{
		clone:    (*domain.Donation).Clone,
		id:       func(d *domain.Donation) string { return d.ID },
		assignID: func(d *domain.Donation, id string) { d.ID = id },
		accepts: func(q ports.DonationQuery, p *projection.Projection[*domain.Donation]) bool {
			return q.Accepts(p.Entity)
		},
		limit: func(q ports.DonationQuery) int { return q.Limit },
	}
}

func requestOps() entityOps[*domain.Request, ports.RequestQuery] {
	return entityOps[*domain.Request, ports.RequestQuery]{
		clone:    (*domain.Request).Clone,
		id:       func(r *domain.Request) string { return r.ID },
		assignID: func(r *domain.Request, id string) { r.ID = id },
		accepts: func(q ports.RequestQuery, p *projection.Projection[*domain.Request]) bool {
			return q.Accepts(p.Entity)
		},
		limit: func(q ports.RequestQuery) int { return q.Limit },
	}
}

func matchOps() entityOps[*domain.Match, ports.MatchQuery] {
	return entityOps[*domain.Match, ports.MatchQuery]{
		clone:    (*domain.Match).Clone,
		id:       func(m *domain.Match) string { return m.ID },
		assignID: func(m *domain.Match, id string) { m.ID = id },
		accepts: func(q ports.MatchQuery, p *projection.Projection[*domain.Match]) bool {
			return q.Accepts(p.Entity) && q.AcceptsCreatedAt(p.Metadata.CreatedAt)
		},
		limit: func(q ports.MatchQuery) int { return q.Limit },
		// at most one live match per donation
		conflicts: func(stored, candidate *domain.Match) bool {
			return stored.DonationID == candidate.DonationID && stored.Status.Live() && candidate.Status.Live()
		},
	}
}
