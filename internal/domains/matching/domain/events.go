package domain

import "time"

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// DonationRegistered is raised when a donor offers goods.
type DonationRegistered struct {
	BaseEvent
	DonationID string   `json:"donationId"`
	DonorOrgID string   `json:"donorOrgId"`
	Category   Category `json:"category"`
	City       string   `json:"city,omitempty"`
}

// EventName returns the event type identifier.
func (e DonationRegistered) EventName() string {
	return "matching.donation.registered"
}

// RequestRegistered is raised when a recipient organization files a need.
type RequestRegistered struct {
	BaseEvent
	RequestID       string   `json:"requestId"`
	RequestingOrgID string   `json:"requestingOrgId"`
	Category        Category `json:"category"`
	Urgency         Urgency  `json:"urgency"`
}

// EventName returns the event type identifier.
func (e RequestRegistered) EventName() string {
	return "matching.request.registered"
}

// DonationClaimed is raised when a claim wins the donation.
type DonationClaimed struct {
	BaseEvent
	DonationID    string  `json:"donationId"`
	MatchID       string  `json:"matchId"`
	RequestID     string  `json:"requestId,omitempty"`
	ClaimantOrgID string  `json:"claimantOrgId"`
	Score         float64 `json:"score"`
}

// EventName returns the event type identifier.
func (e DonationClaimed) EventName() string {
	return "matching.donation.claimed"
}

// MatchCompleted is raised when goods were handed over.
type MatchCompleted struct {
	BaseEvent
	MatchID    string `json:"matchId"`
	DonationID string `json:"donationId"`
}

// EventName returns the event type identifier.
func (e MatchCompleted) EventName() string {
	return "matching.match.completed"
}

// ClaimReleased is raised when an active match is cancelled and the donation reopens.
type ClaimReleased struct {
	BaseEvent
	MatchID    string `json:"matchId"`
	DonationID string `json:"donationId"`
	ReleasedBy string `json:"releasedBy"`
}

// EventName returns the event type identifier.
func (e ClaimReleased) EventName() string {
	return "matching.claim.released"
}

// DonationCancelled is raised when a donation is withdrawn.
type DonationCancelled struct {
	BaseEvent
	DonationID string `json:"donationId"`
	MatchID    string `json:"matchId,omitempty"`
}

// EventName returns the event type identifier.
func (e DonationCancelled) EventName() string {
	return "matching.donation.cancelled"
}

// RequestFulfilled is raised when a request's fulfilled flag flips.
type RequestFulfilled struct {
	BaseEvent
	RequestID string `json:"requestId"`
	MatchID   string `json:"matchId,omitempty"`
	Manual    bool   `json:"manual"`
}

// EventName returns the event type identifier.
func (e RequestFulfilled) EventName() string {
	return "matching.request.fulfilled"
}

// PartialConflictRecorded is raised when a multi-record transition could not finish.
type PartialConflictRecorded struct {
	BaseEvent
	Kind       string `json:"kind"`
	MatchID    string `json:"matchId,omitempty"`
	DonationID string `json:"donationId,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

// EventName returns the event type identifier.
func (e PartialConflictRecorded) EventName() string {
	return "matching.partial_conflict.recorded"
}
