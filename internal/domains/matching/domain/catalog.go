package domain

import (
	"errors"
	"strings"
	"unicode"
)

// Category classifies goods. The registry below is open-ended: any non-empty
// lowercase slug is accepted, the known values only drive aliasing.
type Category string

const (
	CategoryFood     Category = "food"
	CategoryClothing Category = "clothing"
	CategoryBooks    Category = "books"
	CategoryOther    Category = "other"
)

var categoryAliases = map[string]Category{
	"clothes": CategoryClothing,
	"book":    CategoryBooks,
}

// KnownCategories lists the registry entries exposed to clients.
func KnownCategories() []Category {
	return []Category{CategoryFood, CategoryClothing, CategoryBooks, CategoryOther}
}

// ParseCategory normalizes raw input into a category slug.
func ParseCategory(raw string) (Category, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		return "", ErrInvalidCategory
	}
	for _, r := range slug {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return "", ErrInvalidCategory
		}
	}
	if alias, ok := categoryAliases[slug]; ok {
		return alias, nil
	}
	return Category(slug), nil
}

// Condition describes the state of donated goods.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionGood Condition = "good"
	ConditionUsed Condition = "used"
)

// ParseCondition validates a condition value.
func ParseCondition(raw string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConditionNew, ConditionGood, ConditionUsed:
		return c, nil
	default:
		return "", ErrInvalidCondition
	}
}

// Urgency expresses how pressing a request is.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency validates an urgency value.
func ParseUrgency(raw string) (Urgency, error) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(raw))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return u, nil
	default:
		return "", ErrInvalidUrgency
	}
}

var (
	ErrInvalidCategory    = errors.New("category must be a non-empty slug")
	ErrInvalidCondition   = errors.New("condition must be one of new, good, used")
	ErrInvalidUrgency     = errors.New("urgency must be one of low, medium, high")
	ErrEmptyQuantity      = errors.New("quantity is required")
	ErrEmptyDescription   = errors.New("description is required")
	ErrMissingOwner       = errors.New("owning organization is required")
	ErrInvalidTransition  = errors.New("lifecycle transition not allowed")
	ErrInvalidStatus      = errors.New("unknown status value")
	ErrAlreadyFulfilled   = errors.New("request already fulfilled")
	ErrMatchMismatch      = errors.New("donation is not held by this match")
	ErrInvalidCallerRole  = errors.New("caller role must be donor, recipient-org or system")
	ErrMissingCallerOrgID = errors.New("caller organization id is required")
)
