package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// Timestamps are stored as unix nanoseconds so ordering and equality survive a round trip.

type donationRow struct {
	ID          string   `db:"id"`
	DonorOrgID  string   `db:"donor_org_id"`
	Category    string   `db:"category"`
	Quantity    string   `db:"quantity"`
	Condition   string   `db:"condition"`
	Description string   `db:"description"`
	City        string   `db:"city"`
	OriginLat   *float64 `db:"origin_lat"`
	OriginLng   *float64 `db:"origin_lng"`
	Status      string   `db:"status"`
	MatchID     string   `db:"match_id"`
	Version     int64    `db:"version"`
	CreatedAt   int64    `db:"created_at"`
	UpdatedAt   int64    `db:"updated_at"`
}

var donationColumns = []string{
	"id", "donor_org_id", "category", "quantity", "condition", "description", "city",
	"origin_lat", "origin_lng", "status", "match_id", "version", "created_at", "updated_at",
}

type requestRow struct {
	ID              string   `db:"id"`
	RequestingOrgID string   `db:"requesting_org_id"`
	Category        string   `db:"category"`
	Quantity        string   `db:"quantity"`
	Urgency         string   `db:"urgency"`
	Description     string   `db:"description"`
	City            string   `db:"city"`
	Lat             *float64 `db:"lat"`
	Lng             *float64 `db:"lng"`
	Fulfilled       bool     `db:"fulfilled"`
	Version         int64    `db:"version"`
	CreatedAt       int64    `db:"created_at"`
	UpdatedAt       int64    `db:"updated_at"`
}

var requestColumns = []string{
	"id", "requesting_org_id", "category", "quantity", "urgency", "description", "city",
	"lat", "lng", "fulfilled", "version", "created_at", "updated_at",
}

type matchRow struct {
	ID               string  `db:"id"`
	DonationID       string  `db:"donation_id"`
	RequestID        string  `db:"request_id"`
	ClaimantOrgID    string  `db:"claimant_org_id"`
	Status           string  `db:"status"`
	Score            float64 `db:"score"`
	ExplanationJSON  string  `db:"explanation_json"`
	FulfilledRequest bool    `db:"fulfilled_request"`
	CompletedAt      *int64  `db:"completed_at"`
	CancelledAt      *int64  `db:"cancelled_at"`
	Version          int64   `db:"version"`
	CreatedAt        int64   `db:"created_at"`
	UpdatedAt        int64   `db:"updated_at"`
}

var matchColumns = []string{
	"id", "donation_id", "request_id", "claimant_org_id", "status", "score", "explanation_json",
	"fulfilled_request", "completed_at", "cancelled_at", "version", "created_at", "updated_at",
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func toNanosPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := toNanos(*t)
	return &n
}

func fromNanosPtr(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := fromNanos(*n)
	return &t
}

func metadata(createdAt, updatedAt, version int64) projection.Metadata {
	return projection.Metadata{CreatedAt: fromNanos(createdAt), UpdatedAt: fromNanos(updatedAt), Version: version}
}

func coordinates(loc *domain.Location) (*float64, *float64) {
	if loc == nil {
		return nil, nil
	}
	lat, lng := loc.Lat, loc.Lng
	return &lat, &lng
}

func location(lat, lng *float64) *domain.Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &domain.Location{Lat: *lat, Lng: *lng}
}

func toDonationRow(d *domain.Donation, meta projection.Metadata) (*donationRow, error) {
	lat, lng := coordinates(d.Origin)
	return &donationRow{
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
		CreatedAt:   toNanos(meta.CreatedAt),
		UpdatedAt:   toNanos(meta.UpdatedAt),
	}, nil
}

func (r *donationRow) toProjection() (*projection.Projection[*domain.Donation], error) {
	return &projection.Projection[*domain.Donation]{
		Entity: &domain.Donation{
			ID:          r.ID,
			DonorOrgID:  r.DonorOrgID,
			Category:    domain.Category(r.Category),
			Quantity:    r.Quantity,
			Condition:   domain.Condition(r.Condition),
			Description: r.Description,
			City:        r.City,
			Origin:      location(r.OriginLat, r.OriginLng),
			Status:      domain.DonationStatus(r.Status),
			MatchID:     r.MatchID,
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}, nil
}

func toRequestRow(req *domain.Request, meta projection.Metadata) (*requestRow, error) {
	lat, lng := coordinates(req.Location)
	return &requestRow{
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
		CreatedAt:       toNanos(meta.CreatedAt),
		UpdatedAt:       toNanos(meta.UpdatedAt),
	}, nil
}

func (r *requestRow) toProjection() (*projection.Projection[*domain.Request], error) {
	return &projection.Projection[*domain.Request]{
		Entity: &domain.Request{
			ID:              r.ID,
			RequestingOrgID: r.RequestingOrgID,
			Category:        domain.Category(r.Category),
			Quantity:        r.Quantity,
			Urgency:         domain.Urgency(r.Urgency),
			Description:     r.Description,
			City:            r.City,
			Location:        location(r.Lat, r.Lng),
			Fulfilled:       r.Fulfilled,
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}, nil
}

func toMatchRow(m *domain.Match, meta projection.Metadata) (*matchRow, error) {
	explanation := m.Explanation
	if explanation == nil {
		explanation = []string{}
	}
	raw, err := json.Marshal(explanation)
	if err != nil {
		return nil, fmt.Errorf("encoding explanation: %w", err)
	}
	return &matchRow{
		ID:               m.ID,
		DonationID:       m.DonationID,
		RequestID:        m.RequestID,
		ClaimantOrgID:    m.ClaimantOrgID,
		Status:           string(m.Status),
		Score:            m.Score,
		ExplanationJSON:  string(raw),
		FulfilledRequest: m.FulfilledRequest,
		CompletedAt:      toNanosPtr(m.CompletedAt),
		CancelledAt:      toNanosPtr(m.CancelledAt),
		Version:          meta.Version,
		CreatedAt:        toNanos(meta.CreatedAt),
		UpdatedAt:        toNanos(meta.UpdatedAt),
	}, nil
}

func (r *matchRow) toProjection() (*projection.Projection[*domain.Match], error) {
	var explanation []string
	if err := json.Unmarshal([]byte(r.ExplanationJSON), &explanation); err != nil {
		return nil, fmt.Errorf("decoding explanation of match %s: %w", r.ID, err)
	}
	if len(explanation) == 0 {
		explanation = nil
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
			CompletedAt:      fromNanosPtr(r.CompletedAt),
			CancelledAt:      fromNanosPtr(r.CancelledAt),
		},
		Metadata: metadata(r.CreatedAt, r.UpdatedAt, r.Version),
	}, nil
}
