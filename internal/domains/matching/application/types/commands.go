package types

import (
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

// LocationInput is an optional coordinate pair supplied by clients.
type LocationInput struct {
	Lat float64
	Lng float64
}

// ToDomain converts the optional input into a domain location.
func (l *LocationInput) ToDomain() *domain.Location {
	if l == nil {
		return nil
	}
	return &domain.Location{Lat: l.Lat, Lng: l.Lng}
}

// RegisterDonationInput carries a donor's offer.
type RegisterDonationInput struct {
	Category    string
	Quantity    string
	Condition   string
	Description string
	City        string
	Location    *LocationInput
}

// RegisterRequestInput carries a recipient organization's need.
type RegisterRequestInput struct {
	Category    string
	Quantity    string
	Urgency     string
	Description string
	City        string
	Location    *LocationInput
}

// ClaimInput identifies the donation being claimed and, optionally, the request it serves.
type ClaimInput struct {
	DonationID string
	RequestID  string
}

// CancelInput targets exactly one of a donation or a match.
type CancelInput struct {
	DonationID string
	MatchID    string
}

// SuggestInput scopes suggestions to exactly one side.
type SuggestInput struct {
	DonationID string
	RequestID  string
	Limit      int
}

// ListDonationsInput filters the donation listing.
type ListDonationsInput struct {
	Statuses   []string
	DonorOrgID string
	City       string
	Limit      int
}

// ListRequestsInput filters the request listing.
type ListRequestsInput struct {
	Fulfilled       *bool
	RequestingOrgID string
	City            string
	Limit           int
}

// ListMatchesInput filters the match listing.
type ListMatchesInput struct {
	DonationID    string
	RequestID     string
	ClaimantOrgID string
	Statuses      []string
	// CreatedBefore restricts the listing to matches created strictly before it when non-zero.
	CreatedBefore time.Time
	Limit         int
}
