package domain

import "strings"

// Request is a recipient organization's expressed need.
type Request struct {
	ID              string
	RequestingOrgID string
	Category        Category
	Quantity        string
	Urgency         Urgency
	Description     string
	City            string
	Location        *Location
	Fulfilled       bool
}

// NewRequest validates the invariants and builds an unfulfilled request.
func NewRequest(requestingOrgID string, category Category, quantity string, urgency Urgency, description string) (*Request, error) {
	r := &Request{
		RequestingOrgID: strings.TrimSpace(requestingOrgID),
		Category:        category,
		Quantity:        strings.TrimSpace(quantity),
		Urgency:         urgency,
		Description:     strings.TrimSpace(description),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// PlaceAt records where the requesting organization operates.
func (r *Request) PlaceAt(city string, location *Location) error {
	if location != nil {
		if err := location.Validate(); err != nil {
			return err
		}
	}
	r.City = NormalizeCity(city)
	r.Location = cloneLocation(location)
	return nil
}

// Validate checks the registration invariants.
func (r *Request) Validate() error {
	if r.RequestingOrgID == "" {
		return ErrMissingOwner
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if _, err := ParseUrgency(string(r.Urgency)); err != nil {
		return err
	}
	if r.Quantity == "" {
		return ErrEmptyQuantity
	}
	if r.Description == "" {
		return ErrEmptyDescription
	}
	if r.Location != nil {
		if err := r.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MarkFulfilled flips the fulfilled flag. A second call reports ErrAlreadyFulfilled.
func (r *Request) MarkFulfilled() error {
	if r.Fulfilled {
		return ErrAlreadyFulfilled
	}
	r.Fulfilled = true
	return nil
}

// Reopen clears the fulfilled flag after a released claim.
func (r *Request) Reopen() error {
	if !r.Fulfilled {
		return ErrInvalidTransition
	}
	r.Fulfilled = false
	return nil
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Location = cloneLocation(r.Location)
	return &c
}
