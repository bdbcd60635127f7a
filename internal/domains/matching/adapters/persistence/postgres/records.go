package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// donationRecord maps the donation aggregate to a relational table.
type donationRecord struct {
	ID          string    `gorm:"primaryKey;column:id;size:64"`
	DonorOrgID  string    `gorm:"column:donor_org_id;index"`
	Category    string    `gorm:"column:category;type:varchar(64)"`
	Quantity    string    `gorm:"column:quantity"`
	Condition   string    `gorm:"column:condition;type:varchar(16)"`
	Description string    `gorm:"column:description"`
	City        string    `gorm:"column:city;index"`
	OriginLat   *float64  `gorm:"column:origin_lat"`
	OriginLng   *float64  `gorm:"column:origin_lng"`
	Status      string    `gorm:"column:status;type:varchar(16);index"`
	MatchID     string    `gorm:"column:match_id;size:64"`
	Version     int64     `gorm:"column:version;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;index;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (donationRecord) TableName() string { return "donations" }

// requestRecord maps a recipient organization's need.
type requestRecord struct {
	ID              string    `gorm:"primaryKey;column:id;size:64"`
	RequestingOrgID string    `gorm:"column:requesting_org_id;index"`
	Category        string    `gorm:"column:category;type:varchar(64)"`
	Quantity        string    `gorm:"column:quantity"`
	Urgency         string    `gorm:"column:urgency;type:varchar(16)"`
	Description     string    `gorm:"column:description"`
	City            string    `gorm:"column:city;index"`
	Lat             *float64  `gorm:"column:lat"`
	Lng             *float64  `gorm:"column:lng"`
	Fulfilled       bool      `gorm:"column:fulfilled;index"`
	Version         int64     `gorm:"column:version;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;index;autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (requestRecord) TableName() string { return "requests" }

// matchRecord maps a claim outcome. The partial unique index keeps one live match per donation.
type matchRecord struct {
	ID               string         `gorm:"primaryKey;column:id;size:64"`
	DonationID       string         `gorm:"column:donation_id;size:64;index:idx_matches_live_donation,unique,where:status <> 'cancelled'"`
	RequestID        string         `gorm:"column:request_id;size:64;index"`
	ClaimantOrgID    string         `gorm:"column:claimant_org_id;index"`
	Status           string         `gorm:"column:status;type:varchar(16);index"`
	Score            float64        `gorm:"column:score"`
	Explanation      pq.StringArray `gorm:"column:explanation;type:text[]"`
	FulfilledRequest bool           `gorm:"column:fulfilled_request"`
	CompletedAt      *time.Time     `gorm:"column:completed_at"`
	CancelledAt      *time.Time     `gorm:"column:cancelled_at"`
	Version          int64          `gorm:"column:version;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;index;autoCreateTime:false"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (matchRecord) TableName() string { return "matches" }

func splitLocation(loc *domain.Location) (*float64, *float64) {
	if loc == nil {
		return nil, nil
	}
	lat, lng := loc.Lat, loc.Lng
	return &lat, &lng
}

func joinLocation(lat, lng *float64) *domain.Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &domain.Location{Lat: *lat, Lng: *lng}
}

func metadata(createdAt, updatedAt time.Time, version int64) projection.Metadata {
	return projection.Metadata{CreatedAt: createdAt.UTC(), UpdatedAt: updatedAt.UTC(), Version: version}
}

func toDonationRecord(d *domain.Donation, meta projection.Metadata) *donationRecord {
	lat, lng := splitLocation(d.Origin)
	return &donationRecord{
		ID:          d.ID,
		DonorOrgID:  d.DonorOrgID,
		Category:    string(d.Category),
		Quantity:    d.Quantity,
		Condition:   string(d.Condition),
		Description: d.Description,
		City:        d.City,
		OriginLat:   lat,
		OriginLng:   lng,
		Status:      string(d.Status),
		MatchID:     d.MatchID,
		Version:     meta.Version,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}
}

func (r *donationRecord) toProjection() *projection.Projection[*domain.Donation] {
	return &projection.Projection[*domain.Donation]{
		Entity: &domain.Donation{
			ID:          r.ID,
			DonorOrgID:  r.DonorOrgID,
			Category:    domain.Category(r.Category),
			Quantity:    r.Quantity,
			Condition:   domain.Condition(r.Condition),
			Description: r.Description,
			City:        r.City,
			Origin:      joinLocation(r.OriginLat, r.OriginLng),
			Status:      domain.DonationStatus(r.Status),
			MatchID:     r.MatchID,
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}
}

func toRequestRecord(req *domain.Request, meta projection.Metadata) *requestRecord {
	lat, lng := splitLocation(req.Location)
	return &requestRecord{
		ID:              req.ID,
		RequestingOrgID: req.RequestingOrgID,
		Category:        string(req.Category),
		Quantity:        req.Quantity,
		Urgency:         string(req.Urgency),
		Description:     req.Description,
		City:            req.City,
		Lat:             lat,
		Lng:             lng,
		Fulfilled:       req.Fulfilled,
		Version:         meta.Version,
		CreatedAt:       meta.CreatedAt,
		UpdatedAt:       meta.UpdatedAt,
	}
}

func (r *requestRecord) toProjection() *projection.Projection[*domain.Request] {
	return &projection.Projection[*domain.Request]{
		Entity: &domain.Request{
			ID:              r.ID,
			RequestingOrgID: r.RequestingOrgID,
			Category:        domain.Category(r.Category),
			Quantity:        r.Quantity,
			Urgency:         domain.Urgency(r.Urgency),
			Description:     r.Description,
			City:            r.City,
			Location:        joinLocation(r.Lat, r.Lng),
			Fulfilled:       r.Fulfilled,
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}
}

func toMatchRecord(m *domain.Match, meta projection.Metadata) *matchRecord {
	return &matchRecord{
		ID:               m.ID,
		DonationID:       m.DonationID,
		RequestID:        m.RequestID,
		ClaimantOrgID:    m.ClaimantOrgID,
		Status:           string(m.Status),
		Score:            m.Score,
		Explanation:      pq.StringArray(append([]string{}, m.Explanation...)),
		FulfilledRequest: m.FulfilledRequest,
		CompletedAt:      utcPtr(m.CompletedAt),
		CancelledAt:      utcPtr(m.CancelledAt),
		Version:          meta.Version,
		CreatedAt:        meta.CreatedAt,
		UpdatedAt:        meta.UpdatedAt,
	}
}

func (r *matchRecord) toProjection() *projection.Projection[*domain.Match] {
	var explanation []string
	if len(r.Explanation) > 0 {
		explanation = append([]string(nil), r.Explanation...)
	}
	return &projection.Projection[*domain.Match]{
		Entity: &domain.Match{
			ID:               r.ID,
			DonationID:       r.DonationID,
			RequestID:        r.RequestID,
			ClaimantOrgID:    r.ClaimantOrgID,
			Status:           domain.MatchStatus(r.Status),
			Score:            r.Score,
			Explanation:      explanation,
			FulfilledRequest: r.FulfilledRequest,
			CompletedAt:      utcPtr(r.CompletedAt),
			CancelledAt:      utcPtr(r.CancelledAt),
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
