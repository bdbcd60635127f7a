package domain

import (
	"strings"
	"time"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// ParseMatchStatus validates a status filter value.
func ParseMatchStatus(raw string) (MatchStatus, error) {
	switch s := MatchStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case MatchActive, MatchCompleted, MatchCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Live reports whether the status counts toward the one-match-per-donation rule.
func (s MatchStatus) Live() bool {
	return s == MatchActive || s == MatchCompleted
}

// Match records that a claimant won a donation, optionally against a request.
type Match struct {
	ID            string
	DonationID    string
	RequestID     string
	ClaimantOrgID string
	Status        MatchStatus
	Score         float64
	Explanation   []string
	// FulfilledRequest is set when this match flipped the request's fulfilled flag.
	FulfilledRequest bool
	CompletedAt      *time.Time
	CancelledAt      *time.Time
}

// NewMatch builds an active match with a pre-assigned id.
func NewMatch(id, donationID, requestID, claimantOrgID string, score float64, explanation []string) *Match {
	return &Match{
		ID:            id,
		DonationID:    donationID,
		RequestID:     requestID,
		ClaimantOrgID: claimantOrgID,
		Status:        MatchActive,
		Score:         score,
		Explanation:   append([]string(nil), explanation...),
	}
}

// Complete moves an active match to completed.
func (m *Match) Complete(at time.Time) error {
	if m.Status != MatchActive {
		return ErrInvalidTransition
	}
	m.Status = MatchCompleted
	m.CompletedAt = &at
	return nil
}

// Cancel moves an active match to cancelled.
func (m *Match) Cancel(at time.Time) error {
	if m.Status != MatchActive {
		return ErrInvalidTransition
	}
	m.Status = MatchCancelled
	m.CancelledAt = &at
	return nil
}

// Clone returns a deep copy.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Explanation = append([]string(nil), m.Explanation...)
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	if m.CancelledAt != nil {
		t := *m.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
