package domain

import "strings"

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationOpen      DonationStatus = "open"
	DonationMatched   DonationStatus = "matched"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
)

// ParseDonationStatus validates a status filter value.
func ParseDonationStatus(raw string) (DonationStatus, error) {
	switch s := DonationStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case DonationOpen, DonationMatched, DonationCompleted, DonationCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal reports whether no further transitions are possible.
func (s DonationStatus) Terminal() bool {
	return s == DonationCompleted || s == DonationCancelled
}

// Donation is an offer of goods by a donor organization.
type Donation struct {
	ID          string
	DonorOrgID  string
	Category    Category
	Quantity    string
	Condition   Condition
	Description string
	City        string
	Origin      *Location
	Status      DonationStatus
	// MatchID is set iff Status is matched or completed.
	MatchID string
}

// NewDonation validates the invariants and builds an open donation.
func NewDonation(donorOrgID string, category Category, quantity string, condition Condition, description string) (*Donation, error) {
	d := &Donation{
		DonorOrgID:  strings.TrimSpace(donorOrgID),
		Category:    category,
		Quantity:    strings.TrimSpace(quantity),
		Condition:   condition,
		Description: strings.TrimSpace(description),
		Status:      DonationOpen,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// PlaceAt records the pickup location and region label.
func (d *Donation) PlaceAt(city string, origin *Location) error {
	if origin != nil {
		if err := origin.Validate(); err != nil {
			return err
		}
	}
	d.City = NormalizeCity(city)
	d.Origin = cloneLocation(origin)
	return nil
}

// Validate checks the registration invariants.
func (d *Donation) Validate() error {
	if d.DonorOrgID == "" {
		return ErrMissingOwner
	}
	if _, err := ParseCategory(string(d.Category)); err != nil {
		return err
	}
	if _, err := ParseCondition(string(d.Condition)); err != nil {
		return err
	}
	if d.Quantity == "" {
		return ErrEmptyQuantity
	}
	if d.Description == "" {
		return ErrEmptyDescription
	}
	if d.Origin != nil {
		if err := d.Origin.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Claim moves an open donation to matched under the given match.
func (d *Donation) Claim(matchID string) error {
	if d.Status != DonationOpen || matchID == "" {
		return ErrInvalidTransition
	}
	d.Status = DonationMatched
	d.MatchID = matchID
	return nil
}

// Complete finalizes a matched donation held by matchID.
func (d *Donation) Complete(matchID string) error {
	if d.Status != DonationMatched {
		return ErrInvalidTransition
	}
	if d.MatchID != matchID {
		return ErrMatchMismatch
	}
	d.Status = DonationCompleted
	return nil
}

// Release returns a matched donation to the open pool.
func (d *Donation) Release(matchID string) error {
	if d.Status != DonationMatched {
		return ErrInvalidTransition
	}
	if d.MatchID != matchID {
		return ErrMatchMismatch
	}
	d.Status = DonationOpen
	d.MatchID = ""
	return nil
}

// Cancel withdraws an open or matched donation permanently.
func (d *Donation) Cancel() error {
	if d.Status != DonationOpen && d.Status != DonationMatched {
		return ErrInvalidTransition
	}
	d.Status = DonationCancelled
	d.MatchID = ""
	return nil
}

// Clone returns a deep copy.
func (d *Donation) Clone() *Donation {
	if d == nil {
		return nil
	}
	c := *d
	c.Origin = cloneLocation(d.Origin)
	return &c
}

// NormalizeCity lowercases a region label and collapses inner whitespace.
func NormalizeCity(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), " ")
}
