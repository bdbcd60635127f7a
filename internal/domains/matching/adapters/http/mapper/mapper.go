package mapper

import (
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

// Location is the HTTP representation of a coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DonationCreate is the payload for registering a donation.
type DonationCreate struct {
	Category    string    `json:"category"`
	Quantity    string    `json:"quantity"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	City        string    `json:"city,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// RequestCreate is the payload for registering a request.
type RequestCreate struct {
	Category    string    `json:"category"`
	Quantity    string    `json:"quantity"`
	Urgency     string    `json:"urgency"`
	Description string    `json:"description"`
	City        string    `json:"city,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// ClaimCreate is the payload for claiming a donation.
type ClaimCreate struct {
	DonationID string `json:"donationId"`
	RequestID  string `json:"requestId,omitempty"`
}

// CancelCreate targets exactly one of a donation or a match.
type CancelCreate struct {
	DonationID string `json:"donationId,omitempty"`
	MatchID    string `json:"matchId,omitempty"`
}

// SweepCreate starts a stale-claim sweep.
type SweepCreate struct {
	MaxAgeHours float64 `json:"maxAgeHours"`
	Limit       int     `json:"limit,omitempty"`
}

// Donation is the HTTP representation of a donation.
type Donation struct {
	ID          string    `json:"id"`
	DonorOrgID  string    `json:"donorOrgId"`
	Category    string    `json:"category"`
	Quantity    string    `json:"quantity"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	City        string    `json:"city,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Status      string    `json:"status"`
	MatchID     string    `json:"matchId,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Request is the HTTP representation of a recipient organization's need.
type Request struct {
	ID              string    `json:"id"`
	RequestingOrgID string    `json:"requestingOrgId"`
	Category        string    `json:"category"`
	Quantity        string    `json:"quantity"`
	Urgency         string    `json:"urgency"`
	Description     string    `json:"description"`
	City            string    `json:"city,omitempty"`
	Location        *Location `json:"location,omitempty"`
	Fulfilled       bool      `json:"fulfilled"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Match is the HTTP representation of a claim outcome.
type Match struct {
	ID               string     `json:"id"`
	DonationID       string     `json:"donationId"`
	RequestID        string     `json:"requestId,omitempty"`
	ClaimantOrgID    string     `json:"claimantOrgId"`
	Status           string     `json:"status"`
	Score            float64    `json:"score"`
	Explanation      []string   `json:"explanation"`
	FulfilledRequest bool       `json:"fulfilledRequest"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Warning is a non-fatal anomaly attached to a successful result.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Claim is the response to a winning claim.
type Claim struct {
	MatchID     string              `json:"matchId"`
	DonationID  string              `json:"donationId"`
	RequestID   string              `json:"requestId,omitempty"`
	Score       float64             `json:"score"`
	Explanation []scoring.Criterion `json:"explanation"`
	Warnings    []Warning           `json:"warnings,omitempty"`
}

// Completion is the response to a finished completion.
type Completion struct {
	MatchID     string    `json:"matchId"`
	DonationID  string    `json:"donationId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Cancellation is the response to a cancel.
type Cancellation struct {
	DonationID       string    `json:"donationId"`
	MatchID          string    `json:"matchId,omitempty"`
	DonationReopened bool      `json:"donationReopened"`
	Warnings         []Warning `json:"warnings,omitempty"`
}

// Candidate is one ranked pair.
type Candidate struct {
	DonationID  string              `json:"donationId"`
	RequestID   string              `json:"requestId"`
	Score       float64             `json:"score"`
	Explanation []scoring.Criterion `json:"explanation"`
}

// CandidateSet is the HTTP representation of a ranked candidate list.
type CandidateSet struct {
	Candidates          []Candidate `json:"candidates"`
	Truncated           bool        `json:"truncated"`
	DonationsConsidered int         `json:"donationsConsidered"`
	RequestsConsidered  int         `json:"requestsConsidered"`
	MaxDonations        int         `json:"maxDonations"`
	MaxRequests         int         `json:"maxRequests"`
	RegionScoped        bool        `json:"regionScoped"`
}

// Event wraps a lifecycle event with its name.
type Event struct {
	Name       string       `json:"name"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    domain.Event `json:"payload"`
}

// SweepReport is the HTTP representation of a finished sweep.
type SweepReport struct {
	Examined   int               `json:"examined"`
	Released   []string          `json:"released"`
	Skipped    int               `json:"skipped"`
	Failed     map[string]string `json:"failed,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
}

func toLocationInput(l *Location) *types.LocationInput {
	if l == nil {
		return nil
	}
	return &types.LocationInput{Lat: l.Lat, Lng: l.Lng}
}

func fromLocation(l *domain.Location) *Location {
	if l == nil {
		return nil
	}
	return &Location{Lat: l.Lat, Lng: l.Lng}
}

// ToRegisterDonationInput maps the transport payload to the application command.
func ToRegisterDonationInput(in DonationCreate) types.RegisterDonationInput {
	return types.RegisterDonationInput{
		Category:    in.Category,
		Quantity:    in.Quantity,
		Condition:   in.Condition,
		Description: in.Description,
		City:        in.City,
		Location:    toLocationInput(in.Location),
	}
}

// ToRegisterRequestInput maps the transport payload to the application command.
func ToRegisterRequestInput(in RequestCreate) types.RegisterRequestInput {
	return types.RegisterRequestInput{
		Category:    in.Category,
		Quantity:    in.Quantity,
		Urgency:     in.Urgency,
		Description: in.Description,
		City:        in.City,
		Location:    toLocationInput(in.Location),
	}
}

func FromDonation(p *ports.DonationProjection) Donation {
	d := p.Entity
	return Donation{
		ID:          d.ID,
		DonorOrgID:  d.DonorOrgID,
		Category:    string(d.Category),
		Quantity:    d.Quantity,
		Condition:   string(d.Condition),
		Description: d.Description,
		City:        d.City,
		Location:    fromLocation(d.Origin),
		Status:      string(d.Status),
		MatchID:     d.MatchID,
		Version:     p.Metadata.Version,
		CreatedAt:   p.Metadata.CreatedAt,
		UpdatedAt:   p.Metadata.UpdatedAt,
	}
}

func FromDonationList(list []*ports.DonationProjection) []Donation {
	out := make([]Donation, 0, len(list))
	for _, p := range list {
		out = append(out, FromDonation(p))
	}
	return out
}

func FromRequest(p *ports.RequestProjection) Request {
	r := p.Entity
	return Request{
		ID:              r.ID,
		RequestingOrgID: r.RequestingOrgID,
		Category:        string(r.Category),
		Quantity:        r.Quantity,
		Urgency:         string(r.Urgency),
		Description:     r.Description,
		City:            r.City,
		Location:        fromLocation(r.Location),
		Fulfilled:       r.Fulfilled,
		Version:         p.Metadata.Version,
		CreatedAt:       p.Metadata.CreatedAt,
		UpdatedAt:       p.Metadata.UpdatedAt,
	}
}

func FromRequestList(list []*ports.RequestProjection) []Request {
	out := make([]Request, 0, len(list))
	for _, p := range list {
		out = append(out, FromRequest(p))
	}
	return out
}

func FromMatch(p *ports.MatchProjection) Match {
	m := p.Entity
	explanation := m.Explanation
	if explanation == nil {
		explanation = []string{}
	}
	return Match{
		ID:               m.ID,
		DonationID:       m.DonationID,
		RequestID:        m.RequestID,
		ClaimantOrgID:    m.ClaimantOrgID,
		Status:           string(m.Status),
		Score:            m.Score,
		Explanation:      explanation,
		FulfilledRequest: m.FulfilledRequest,
		CompletedAt:      m.CompletedAt,
		CancelledAt:      m.CancelledAt,
		Version:          p.Metadata.Version,
		CreatedAt:        p.Metadata.CreatedAt,
		UpdatedAt:        p.Metadata.UpdatedAt,
	}
}

func FromMatchList(list []*ports.MatchProjection) []Match {
	out := make([]Match, 0, len(list))
	for _, p := range list {
		out = append(out, FromMatch(p))
	}
	return out
}

func fromWarnings(ws []types.Warning) []Warning {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(ws))
	for _, w := range ws {
		out = append(out, Warning{Kind: w.Kind, Message: w.Message})
	}
	return out
}

func criteria(cs []scoring.Criterion) []scoring.Criterion {
	if cs == nil {
		return []scoring.Criterion{}
	}
	return cs
}

func FromClaimResult(r *types.ClaimResult) Claim {
	return Claim{
		MatchID:     r.MatchID,
		DonationID:  r.DonationID,
		RequestID:   r.RequestID,
		Score:       r.Score,
		Explanation: criteria(r.Explanation),
		Warnings:    fromWarnings(r.Warnings),
	}
}

func FromCompleteResult(r *types.CompleteResult) Completion {
	return Completion{MatchID: r.MatchID, DonationID: r.DonationID, CompletedAt: r.CompletedAt}
}

func FromCancelResult(r *types.CancelResult) Cancellation {
	return Cancellation{
		DonationID:       r.DonationID,
		MatchID:          r.MatchID,
		DonationReopened: r.DonationReopened,
		Warnings:         fromWarnings(r.Warnings),
	}
}

func FromCandidateSet(set *types.CandidateSet) CandidateSet {
	out := CandidateSet{
		Candidates:          make([]Candidate, 0, len(set.Candidates)),
		Truncated:           set.Truncated,
		DonationsConsidered: set.DonationsConsidered,
		RequestsConsidered:  set.RequestsConsidered,
		MaxDonations:        set.Bounds.MaxDonations,
		MaxRequests:         set.Bounds.MaxRequests,
		RegionScoped:        set.Bounds.RegionScoped,
	}
	for _, c := range set.Candidates {
		out.Candidates = append(out.Candidates, Candidate{
			DonationID:  c.DonationID,
			RequestID:   c.RequestID,
			Score:       c.Score,
			Explanation: criteria(c.Explanation),
		})
	}
	return out
}

func FromEvents(events []domain.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, Event{Name: e.EventName(), OccurredAt: e.OccurredAt(), Payload: e})
	}
	return out
}

func FromSweepReport(r *ports.SweepReport) SweepReport {
	released := r.Released
	if released == nil {
		released = []string{}
	}
	return SweepReport{
		Examined:   r.Examined,
		Released:   released,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
