package types

import (
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

// Warning kinds surfaced alongside successful results.
const (
	WarningPartialFulfillmentConflict = "PartialFulfillmentConflict"
	WarningRequestReopenConflict      = "RequestReopenConflict"
)

// Warning reports a non-fatal anomaly, such as a request that could not be marked fulfilled.
type Warning struct {
	Kind    string
	Message string
}

// ClaimResult is returned by a winning claim.
type ClaimResult struct {
	MatchID     string
	DonationID  string
	RequestID   string
	Score       float64
	Explanation []scoring.Criterion
	Warnings    []Warning
}

// CompleteResult is returned by a finished completion.
type CompleteResult struct {
	MatchID     string
	DonationID  string
	CompletedAt time.Time
}

// CancelResult describes what a cancel touched.
type CancelResult struct {
	DonationID string
	MatchID    string
	// DonationReopened is set when a released claim put the donation back to open.
	DonationReopened bool
	Warnings         []Warning
}

// Bounds limits how much of the store a candidate run reads.
type Bounds struct {
	MaxDonations int
	MaxRequests  int
	RegionScoped bool
}

// CandidateScope restricts generation to one donation or one request; empty means all open.
type CandidateScope struct {
	DonationID string
	RequestID  string
	Limit      int
}

// Candidate is one scored pair.
type Candidate struct {
	DonationID  string
	RequestID   string
	Score       float64
	Explanation []scoring.Criterion
}

// CandidateSet is a ranked, possibly truncated candidate list.
type CandidateSet struct {
	Candidates          []Candidate
	Truncated           bool
	DonationsConsidered int
	RequestsConsidered  int
	Bounds              Bounds
}
