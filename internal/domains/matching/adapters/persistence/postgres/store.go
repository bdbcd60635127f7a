package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var _ ports.Store = (*Store)(nil)

// Store persists the matching tables in PostgreSQL via GORM.
type Store struct {
	donations *table[*domain.Donation, ports.DonationQuery, donationRecord]
	requests  *table[*domain.Request, ports.RequestQuery, requestRecord]
	matches   *table[*domain.Match, ports.MatchQuery, matchRecord]
}

// Models lists the records backing the store, for schema migration.
func Models() []any {
	return []any{&donationRecord{}, &requestRecord{}, &matchRecord{}}
}

// NewStore builds a Postgres-backed store. Schema is managed by the platform migrations package.
func NewStore(db *gorm.DB) *Store {
	// postgres keeps microsecond precision; truncating keeps returned metadata equal to what a re-read yields
	now := func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	newID := func() string { return uuid.Must(uuid.NewV7()).String() }
	return &Store{
		donations: &table[*domain.Donation, ports.DonationQuery, donationRecord]{db: db, codec: donationCodec(), now: now, newID: newID},
		requests:  &table[*domain.Request, ports.RequestQuery, requestRecord]{db: db, codec: requestCodec(), now: now, newID: newID},
		matches:   &table[*domain.Match, ports.MatchQuery, matchRecord]{db: db, codec: matchCodec(), now: now, newID: newID},
	}
}

func (s *Store) Donations() ports.Table[*domain.Donation, ports.DonationQuery] { return s.donations }
func (s *Store) Requests() ports.Table[*domain.Request, ports.RequestQuery]    { return s.requests }
func (s *Store) Matches() ports.Table[*domain.Match, ports.MatchQuery]         { return s.matches }

func donationCodec() codec[*domain.Donation, ports.DonationQuery, donationRecord] {
	return codec[*domain.Donation, ports.DonationQuery, donationRecord]{
		id:       func(d *domain.Donation) string { return d.ID },
		assignID: func(d *domain.Donation, id string) { d.ID = id },
		toRecord: toDonationRecord,
		toDomain: (*donationRecord).toProjection,
		filter: func(db *gorm.DB, q ports.DonationQuery) *gorm.DB {
			if len(q.Statuses) > 0 {
				statuses := make([]string, 0, len(q.Statuses))
				for _, s := range q.Statuses {
					statuses = append(statuses, string(s))
				}
				db = db.Where("status IN ?", statuses)
			}
			if q.DonorOrgID != "" {
				db = db.Where("donor_org_id = ?", q.DonorOrgID)
			}
			return cityFilter(db, q.City)
		},
		limit: func(q ports.DonationQuery) int { return q.Limit },
	}
}

func requestCodec() codec[*domain.Request, ports.RequestQuery, requestRecord] {
	return codec[*domain.Request, ports.RequestQuery, requestRecord]{
		id:       func(r *domain.Request) string { return r.ID },
		assignID: func(r *domain.Request, id string) { r.ID = id },
		toRecord: toRequestRecord,
		toDomain: (*requestRecord).toProjection,
		filter: func(db *gorm.DB, q ports.RequestQuery) *gorm.DB {
			if q.Fulfilled != nil {
				db = db.Where("fulfilled = ?", *q.Fulfilled)
			}
			if q.RequestingOrgID != "" {
				db = db.Where("requesting_org_id = ?", q.RequestingOrgID)
			}
			return cityFilter(db, q.City)
		},
		limit: func(q ports.RequestQuery) int { return q.Limit },
	}
}

func matchCodec() codec[*domain.Match, ports.MatchQuery, matchRecord] {
	return codec[*domain.Match, ports.MatchQuery, matchRecord]{
		id:       func(m *domain.Match) string { return m.ID },
		assignID: func(m *domain.Match, id string) { m.ID = id },
		toRecord: toMatchRecord,
		toDomain: (*matchRecord).toProjection,
		filter: func(db *gorm.DB, q ports.MatchQuery) *gorm.DB {
			if len(q.Statuses) > 0 {
				statuses := make([]string, 0, len(q.Statuses))
				for _, s := range q.Statuses {
					statuses = append(statuses, string(s))
				}
				db = db.Where("status IN ?", statuses)
			}
			if q.DonationID != "" {
				db = db.Where("donation_id = ?", q.DonationID)
			}
			if q.RequestID != "" {
				db = db.Where("request_id = ?", q.RequestID)
			}
			if q.ClaimantOrgID != "" {
				db = db.Where("claimant_org_id = ?", q.ClaimantOrgID)
			}
			if !q.CreatedBefore.IsZero() {
				db = db.Where("created_at < ?", q.CreatedBefore.UTC())
			}
			return db
		},
		limit: func(q ports.MatchQuery) int { return q.Limit },
	}
}
