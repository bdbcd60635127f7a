package ports

import (
	"slices"
	"strings"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

// Accepts reports whether the donation satisfies the query predicates.
func (q DonationQuery) Accepts(d *domain.Donation) bool {
	if d == nil {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, d.Status) {
		return false
	}
	if q.DonorOrgID != "" && d.DonorOrgID != q.DonorOrgID {
		return false
	}
	return sameCity(q.City, d.City)
}

// Accepts reports whether the request satisfies the query predicates.
func (q RequestQuery) Accepts(r *domain.Request) bool {
	if r == nil {
		return false
	}
	if q.Fulfilled != nil && r.Fulfilled != *q.Fulfilled {
		return false
	}
	if q.RequestingOrgID != "" && r.RequestingOrgID != q.RequestingOrgID {
		return false
	}
	return sameCity(q.City, r.City)
}

// Accepts reports whether the match satisfies the query predicates.
// CreatedBefore is evaluated against persistence metadata by the caller.
func (q MatchQuery) Accepts(m *domain.Match) bool {
	if m == nil {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, m.Status) {
		return false
	}
	if q.DonationID != "" && m.DonationID != q.DonationID {
		return false
	}
	if q.RequestID != "" && m.RequestID != q.RequestID {
		return false
	}
	return q.ClaimantOrgID == "" || m.ClaimantOrgID == q.ClaimantOrgID
}

// AcceptsCreatedAt applies the CreatedBefore bound.
func (q MatchQuery) AcceptsCreatedAt(createdAt time.Time) bool {
	return q.CreatedBefore.IsZero() || createdAt.Before(q.CreatedBefore)
}

func sameCity(want, got string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(want), got)
}
