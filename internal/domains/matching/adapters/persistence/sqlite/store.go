package sqlite

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var _ ports.Store = (*Store)(nil)

// Store persists the matching tables in SQLite via sqlx. Call Migrate before first use.
type Store struct {
	donations *table[*domain.Donation, ports.DonationQuery, donationRow]
	requests  *table[*domain.Request, ports.RequestQuery, requestRow]
	matches   *table[*domain.Match, ports.MatchQuery, matchRow]
}

// NewStore builds a SQLite-backed store.
func NewStore(db *sqlx.DB) *Store {
	now := func() time.Time { return time.Now().UTC() }
	newID := func() string { return uuid.Must(uuid.NewV7()).String() }
	return &Store{
		donations: &table[*domain.Donation, ports.DonationQuery, donationRow]{db: db, codec: donationCodec(), now: now, newID: newID},
		requests:  &table[*domain.Request, ports.RequestQuery, requestRow]{db: db, codec: requestCodec(), now: now, newID: newID},
		matches:   &table[*domain.Match, ports.MatchQuery, matchRow]{db: db, codec: matchCodec(), now: now, newID: newID},
	}
}

func (s *Store) Donations() ports.Table[*domain.Donation, ports.DonationQuery] { return s.donations }
func (s *Store) Requests() ports.Table[*domain.Request, ports.RequestQuery]    { return s.requests }
func (s *Store) Matches() ports.Table[*domain.Match, ports.MatchQuery]         { return s.matches }

func donationCodec() rowCodec[*domain.Donation, ports.DonationQuery, donationRow] {
	return rowCodec[*domain.Donation, ports.DonationQuery, donationRow]{
		table:    "donations",
		columns:  donationColumns,
		id:       func(d *domain.Donation) string { return d.ID },
		assignID: func(d *domain.Donation, id string) { d.ID = id },
		toRow:    toDonationRow,
		toDomain: (*donationRow).toProjection,
		where: func(q ports.DonationQuery) ([]string, []any) {
			var preds []string
			var args []any
			if len(q.Statuses) > 0 {
				preds = append(preds, inClause("status", len(q.Statuses)))
				for _, s := range q.Statuses {
					args = append(args, string(s))
				}
			}
			if q.DonorOrgID != "" {
				preds = append(preds, "donor_org_id = ?")
				args = append(args, q.DonorOrgID)
			}
			return withCity(preds, args, q.City)
		},
		limit: func(q ports.DonationQuery) int { return q.Limit },
	}
}

func requestCodec() rowCodec[*domain.Request, ports.RequestQuery, requestRow] {
	return rowCodec[*domain.Request, ports.RequestQuery, requestRow]{
		table:    "requests",
		columns:  requestColumns,
		id:       func(r *domain.Request) string { return r.ID },
		assignID: func(r *domain.Request, id string) { r.ID = id },
		toRow:    toRequestRow,
		toDomain: (*requestRow).toProjection,
		where: func(q ports.RequestQuery) ([]string, []any) {
			var preds []string
			var args []any
			if q.Fulfilled != nil {
				preds = append(preds, "fulfilled = ?")
				args = append(args, *q.Fulfilled)
			}
			if q.RequestingOrgID != "" {
				preds = append(preds, "requesting_org_id = ?")
				args = append(args, q.RequestingOrgID)
			}
			return withCity(preds, args, q.City)
		},
		limit: func(q ports.RequestQuery) int { return q.Limit },
	}
}

func matchCodec() rowCodec[*domain.Match, ports.MatchQuery, matchRow] {
	return rowCodec[*domain.Match, ports.MatchQuery, matchRow]{
		table:    "matches",
		columns:  matchColumns,
		id:       func(m *domain.Match) string { return m.ID },
		assignID: func(m *domain.Match, id string) { m.ID = id },
		toRow:    toMatchRow,
		toDomain: (*matchRow).toProjection,
		where: func(q ports.MatchQuery) ([]string, []any) {
			var preds []string
			var args []any
			if len(q.Statuses) > 0 {
				preds = append(preds, inClause("status", len(q.Statuses)))
				for _, s := range q.Statuses {
					args = append(args, string(s))
				}
			}
			for col, val := range map[string]string{
				"donation_id":     q.DonationID,
				"request_id":      q.RequestID,
				"claimant_org_id": q.ClaimantOrgID,
			} {
				if val != "" {
					preds = append(preds, col+" = ?")
					args = append(args, val)
				}
			}
			if !q.CreatedBefore.IsZero() {
				preds = append(preds, "created_at < ?")
				args = append(args, toNanos(q.CreatedBefore))
			}
			return preds, args
		},
		limit: func(q ports.MatchQuery) int { return q.Limit },
	}
}

func withCity(preds []string, args []any, city string) ([]string, []any) {
	city = strings.TrimSpace(city)
	if city == "" {
		return preds, args
	}
	return append(preds, "LOWER(city) = LOWER(?)"), append(args, city)
}
