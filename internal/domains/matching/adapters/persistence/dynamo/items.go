package dynamo

import (
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

type locationItem struct {
	Lat float64 `dynamodbav:"lat"`
	Lng float64 `dynamodbav:"lng"`
}

type donationItem struct {
	ID          string        `dynamodbav:"id"`
	DonorOrgID  string        `dynamodbav:"donor_org_id"`
	Category    string        `dynamodbav:"category"`
	Quantity    string        `dynamodbav:"quantity"`
	Condition   string        `dynamodbav:"condition"`
	Description string        `dynamodbav:"description"`
	City        string        `dynamodbav:"city"`
	Origin      *locationItem `dynamodbav:"origin,omitempty"`
	Status      string        `dynamodbav:"status"`
	MatchID     string        `dynamodbav:"match_id"`
	Version     int64         `dynamodbav:"version"`
	CreatedAt   time.Time     `dynamodbav:"created_at"`
	UpdatedAt   time.Time     `dynamodbav:"updated_at"`
}

type requestItem struct {
	ID              string        `dynamodbav:"id"`
	RequestingOrgID string        `dynamodbav:"requesting_org_id"`
	Category        string        `dynamodbav:"category"`
	Quantity        string        `dynamodbav:"quantity"`
	Urgency         string        `dynamodbav:"urgency"`
	Description     string        `dynamodbav:"description"`
	City            string        `dynamodbav:"city"`
	Location        *locationItem `dynamodbav:"location,omitempty"`
	Fulfilled       bool          `dynamodbav:"fulfilled"`
	Version         int64         `dynamodbav:"version"`
	CreatedAt       time.Time     `dynamodbav:"created_at"`
	UpdatedAt       time.Time     `dynamodbav:"updated_at"`
}

type matchItem struct {
	ID               string     `dynamodbav:"id"`
	DonationID       string     `dynamodbav:"donation_id"`
	RequestID        string     `dynamodbav:"request_id"`
	ClaimantOrgID    string     `dynamodbav:"claimant_org_id"`
	Status           string     `dynamodbav:"status"`
	Score            float64    `dynamodbav:"score"`
	Explanation      []string   `dynamodbav:"explanation,omitempty"`
	FulfilledRequest bool       `dynamodbav:"fulfilled_request"`
	CompletedAt      *time.Time `dynamodbav:"completed_at,omitempty"`
	CancelledAt      *time.Time `dynamodbav:"cancelled_at,omitempty"`
	Version          int64      `dynamodbav:"version"`
	CreatedAt        time.Time  `dynamodbav:"created_at"`
	UpdatedAt        time.Time  `dynamodbav:"updated_at"`
}

// liveMatchLock reserves a donation for its single live match.
type liveMatchLock struct {
	DonationID string `dynamodbav:"id"`
	MatchID    string `dynamodbav:"match_id"`
}

func toLocationItem(loc *domain.Location) *locationItem {
	if loc == nil {
		return nil
	}
	return &locationItem{Lat: loc.Lat, Lng: loc.Lng}
}

func (l *locationItem) toDomain() *domain.Location {
	if l == nil {
		return nil
	}
	return &domain.Location{Lat: l.Lat, Lng: l.Lng}
}

func meta(createdAt, updatedAt time.Time, version int64) projection.Metadata {
	return projection.Metadata{CreatedAt: createdAt.UTC(), UpdatedAt: updatedAt.UTC(), Version: version}
}

func toDonationItem(d *domain.Donation, m projection.Metadata) *donationItem {
	return &donationItem{
		ID:          d.ID,
		DonorOrgID:  d.DonorOrgID,
		Category:    string(d.Category),
		Quantity:    d.Quantity,
		Condition:   string(d.Condition),
		Description: d.Description,
		City:        d.City,
		Origin:      toLocationItem(d.Origin),
		Status:      string(d.Status),
		MatchID:     d.MatchID,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (i *donationItem) toProjection() *projection.Projection[*domain.Donation] {
	return &projection.Projection[*domain.Donation]{
		Entity: &domain.Donation{
			ID:          i.ID,
			DonorOrgID:  i.DonorOrgID,
			Category:    domain.Category(i.Category),
			Quantity:    i.Quantity,
			Condition:   domain.Condition(i.Condition),
			Description: i.Description,
			City:        i.City,
			Origin:      i.Origin.toDomain(),
			Status:      domain.DonationStatus(i.Status),
			MatchID:     i.MatchID,
		},
		Metadata: meta(i.CreatedAt, i.UpdatedAt, i.Version),
	}
}

func toRequestItem(r *domain.Request, m projection.Metadata) *requestItem {
	return &requestItem{
		ID:              r.ID,
		RequestingOrgID: r.RequestingOrgID,
		Category:        string(r.Category),
		Quantity:        r.Quantity,
		Urgency:         string(r.Urgency),
		Description:     r.Description,
		City:            r.City,
		Location:        toLocationItem(r.Location),
		Fulfilled:       r.Fulfilled,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (i *requestItem) toProjection() *projection.Projection[*domain.Request] {
	return &projection.Projection[*domain.Request]{
		Entity: &domain.Request{
			ID:              i.ID,
			RequestingOrgID: i.RequestingOrgID,
			Category:        domain.Category(i.Category),
			Quantity:        i.Quantity,
			Urgency:         domain.Urgency(i.Urgency),
			Description:     i.Description,
			City:            i.City,
			Location:        i.Location.toDomain(),
			Fulfilled:       i.Fulfilled,
		},
		Metadata: meta(i.CreatedAt, i.UpdatedAt, i.Version),
	}
}

func toMatchItem(m *domain.Match, md projection.Metadata) *matchItem {
	return &matchItem{
		ID:               m.ID,
		DonationID:       m.DonationID,
		RequestID:        m.RequestID,
		ClaimantOrgID:    m.ClaimantOrgID,
		Status:           string(m.Status),
		Score:            m.Score,
		Explanation:      append([]string(nil), m.Explanation...),
		FulfilledRequest: m.FulfilledRequest,
		CompletedAt:      m.CompletedAt,
		CancelledAt:      m.CancelledAt,
		Version:          md.Version,
		CreatedAt:        md.CreatedAt,
		UpdatedAt:        md.UpdatedAt,
	}
}

func (i *matchItem) toProjection() *projection.Projection[*domain.Match] {
	var explanation []string
	if len(i.Explanation) > 0 {
		explanation = append([]string(nil), i.Explanation...)
	}
	return &projection.Projection[*domain.Match]{
		Entity: &domain.Match{
			ID:               i.ID,
			DonationID:       i.DonationID,
			RequestID:        i.RequestID,
			ClaimantOrgID:    i.ClaimantOrgID,
			Status:           domain.MatchStatus(i.Status),
			Score:            i.Score,
			Explanation:      explanation,
			FulfilledRequest: i.FulfilledRequest,
			CompletedAt:      utc(i.CompletedAt),
			CancelledAt:      utc(i.CancelledAt),
		},
		Metadata: meta(i.CreatedAt, i.UpdatedAt, i.Version),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
