package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var (
	ErrNotFound                   = errors.New("not found")
	ErrAlreadyClaimed             = errors.New("donation already claimed")
	ErrRequestAlreadyFulfilled    = errors.New("request already fulfilled")
	ErrInvalidTransition          = errors.New("invalid lifecycle transition")
	ErrPartialFulfillmentConflict = errors.New("request could not be marked fulfilled")
	ErrPartialCompletionConflict  = errors.New("match updated but donation update conflicted")
	ErrStoreUnavailable           = errors.New("store unavailable")
	ErrForbidden                  = errors.New("caller is not permitted to perform this operation")
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid matching input")
)

// Error kinds returned by KindOf.
const (
	KindNotFound                   = "NotFound"
	KindAlreadyClaimed             = "AlreadyClaimed"
	KindRequestAlreadyFulfilled    = "RequestAlreadyFulfilled"
	KindInvalidTransition          = "InvalidTransition"
	KindValidation                 = "ValidationError"
	KindPartialFulfillmentConflict = "PartialFulfillmentConflict"
	KindPartialCompletionConflict  = "PartialCompletionConflict"
	KindStoreUnavailable           = "StoreUnavailable"
	KindForbidden                  = "Forbidden"
	KindInternal                   = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidInput, KindValidation},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyClaimed, KindAlreadyClaimed},
	{ErrRequestAlreadyFulfilled, KindRequestAlreadyFulfilled},
	{ErrPartialCompletionConflict, KindPartialCompletionConflict},
	{ErrPartialFulfillmentConflict, KindPartialFulfillmentConflict},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf returns a stable discriminator for err, or "" when err is nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ValidationError names the offending field of an invalid input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidInput, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Err}
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrInvalidTransition):
		return err
	case errors.Is(err, ports.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, ports.ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrMatchMismatch):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidCondition),
		errors.Is(err, domain.ErrInvalidUrgency),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptyQuantity),
		errors.Is(err, domain.ErrEmptyDescription),
		errors.Is(err, domain.ErrMissingOwner),
		errors.Is(err, domain.ErrInvalidLocation),
		errors.Is(err, domain.ErrInvalidCallerRole),
		errors.Is(err, domain.ErrMissingCallerOrgID):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
