package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// errAlreadyApplied short-circuits a retried write whose effect is already stored.
var errAlreadyApplied = errors.New("transition already applied")

// retryUpdate re-reads the record and re-applies mutate until the write lands,
// mutate refuses, or attempts run out.
func retryUpdate[T any, Q any](ctx context.Context, table ports.Table[T, Q], id string, attempts int, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		current, err := table.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		updated, err := table.CompareAndUpdate(ctx, id, current.Metadata.Version, mutate)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ports.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Claim decides which claimant wins a donation. Exactly one concurrent claim on an
// open donation succeeds; the rest observe ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, caller domain.Caller, input types.ClaimInput) (*types.ClaimResult, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	if caller.Role != domain.RoleRecipientOrg {
		return nil, fmt.Errorf("%w: only recipient organizations claim donations", ErrForbidden)
	}
	donationID := strings.TrimSpace(input.DonationID)
	if donationID == "" {
		return nil, invalid("donationId", errMissingID)
	}
	requestID := strings.TrimSpace(input.RequestID)

	donation, err := s.store.Donations().Get(ctx, donationID)
	if err != nil {
		return nil, mapError(err)
	}
	if donation.Entity.Status != domain.DonationOpen {
		return nil, fmt.Errorf("%w: donation %s is %s", ErrAlreadyClaimed, donationID, donation.Entity.Status)
	}

	var request *ports.RequestProjection
	var result scoring.Result
	if requestID != "" {
		request, err = s.store.Requests().Get(ctx, requestID)
		if err != nil {
			return nil, mapError(err)
		}
		if request.Entity.RequestingOrgID != caller.OrgID {
			return nil, fmt.Errorf("%w: request %s belongs to another organization", ErrForbidden, requestID)
		}
		if request.Entity.Fulfilled {
			return nil, fmt.Errorf("%w: %s", ErrRequestAlreadyFulfilled, requestID)
		}
		result = s.scorer.Score(ctx, donation.Entity, request.Entity)
	}

	matchID := s.newID()
	claimed, err := s.store.Donations().CompareAndUpdate(ctx, donationID, donation.Metadata.Version, func(d *domain.Donation) error {
		return d.Claim(matchID)
	})
	if err != nil {
		if errors.Is(err, ports.ErrConflict) || errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyClaimed, err)
		}
		return nil, mapError(err)
	}

	match := domain.NewMatch(matchID, donationID, requestID, caller.OrgID, result.Score, result.Explanation())
	created, err := s.store.Matches().Create(ctx, match)
	if err != nil {
		s.compensateClaim(ctx, claimed, matchID)
		if errors.Is(err, ports.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyClaimed, err)
		}
		return nil, mapError(err)
	}

	// A donor cancel may have slipped in between the donation write and the match insert.
	current, err := s.store.Donations().Get(ctx, donationID)
	if err != nil {
		return nil, mapError(err)
	}
	if current.Entity.Status != domain.DonationMatched || current.Entity.MatchID != matchID {
		if _, cancelErr := retryUpdate(ctx, s.store.Matches(), matchID, s.retryLimit, func(m *domain.Match) error {
			return m.Cancel(s.now())
		}); cancelErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to cancel orphaned match",
				slog.String("match_id", matchID), slog.String("error", cancelErr.Error()))
		}
		return nil, fmt.Errorf("%w: donation %s changed while the claim was recorded", ErrInvalidTransition, donationID)
	}

	claimResult := &types.ClaimResult{
		MatchID:     matchID,
		DonationID:  donationID,
		RequestID:   requestID,
		Score:       result.Score,
		Explanation: result.Criteria,
	}
	events := []domain.Event{domain.DonationClaimed{
		BaseEvent:     domain.BaseEvent{Timestamp: created.Metadata.CreatedAt},
		DonationID:    donationID,
		MatchID:       matchID,
		RequestID:     requestID,
		ClaimantOrgID: caller.OrgID,
		Score:         result.Score,
	}}

	if request != nil {
		fulfilled, warning := s.markRequestFulfilled(ctx, requestID)
		if fulfilled {
			if _, err := retryUpdate(ctx, s.store.Matches(), matchID, s.retryLimit, func(m *domain.Match) error {
				m.FulfilledRequest = true
				return nil
			}); err != nil {
				s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to flag fulfilled request on match",
					slog.String("match_id", matchID), slog.String("error", err.Error()))
			}
			events = append(events, domain.RequestFulfilled{
				BaseEvent: domain.BaseEvent{Timestamp: s.now()},
				RequestID: requestID,
				MatchID:   matchID,
			})
		}
		if warning != nil {
			claimResult.Warnings = append(claimResult.Warnings, *warning)
			events = append(events, domain.PartialConflictRecorded{
				BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
				Kind:       warning.Kind,
				MatchID:    matchID,
				DonationID: donationID,
				RequestID:  requestID,
			})
		}
	}

	s.publish(ctx, events...)
	return claimResult, nil
}

func (s *Service) compensateClaim(ctx context.Context, claimed *ports.DonationProjection, matchID string) {
	_, err := s.store.Donations().CompareAndUpdate(ctx, claimed.Entity.ID, claimed.Metadata.Version, func(d *domain.Donation) error {
		return d.Release(matchID)
	})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to release donation after match insert failed",
			slog.String("donation_id", claimed.Entity.ID),
			slog.String("match_id", matchID),
			slog.String("error", err.Error()))
	}
}

// markRequestFulfilled flips the request flag after a winning claim. The claim stays
// committed either way; a failure is reported as a warning.
func (s *Service) markRequestFulfilled(ctx context.Context, requestID string) (bool, *types.Warning) {
	_, err := retryUpdate(ctx, s.store.Requests(), requestID, s.retryLimit, func(r *domain.Request) error {
		return r.MarkFulfilled()
	})
	if err == nil {
		return true, nil
	}
	message := err.Error()
	if errors.Is(err, domain.ErrAlreadyFulfilled) {
		message = "request was fulfilled concurrently"
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "claim committed but request not marked fulfilled",
		slog.String("request_id", requestID), slog.String("error", err.Error()))
	return false, &types.Warning{Kind: types.WarningPartialFulfillmentConflict, Message: message}
}

// Complete finalizes an active match and its donation. If a previous attempt left the
// match completed but the donation matched, calling Complete again finishes the donation.
func (s *Service) Complete(ctx context.Context, caller domain.Caller, matchID string) (*types.CompleteResult, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, invalid("matchId", errMissingID)
	}
	match, err := s.store.Matches().Get(ctx, matchID)
	if err != nil {
		return nil, mapError(err)
	}
	donationID := match.Entity.DonationID
	donation, err := s.store.Donations().Get(ctx, donationID)
	if err != nil {
		return nil, mapError(err)
	}
	if !mayActOnMatch(caller, match.Entity, donation.Entity) {
		return nil, fmt.Errorf("%w: caller %s may not complete match %s", ErrForbidden, caller.OrgID, matchID)
	}

	heldByMatch := donation.Entity.MatchID == matchID
	switch {
	case match.Entity.Status == domain.MatchActive:
		if donation.Entity.Status != domain.DonationMatched || !heldByMatch {
			return nil, fmt.Errorf("%w: donation %s is not held by match %s", ErrInvalidTransition, donationID, matchID)
		}
		completedAt := s.now()
		match, err = retryUpdate(ctx, s.store.Matches(), matchID, s.retryLimit, func(m *domain.Match) error {
			if m.Status == domain.MatchCompleted {
				return errAlreadyApplied
			}
			return m.Complete(completedAt)
		})
		if errors.Is(err, errAlreadyApplied) {
			match, err = s.store.Matches().Get(ctx, matchID)
		}
		if err != nil {
			return nil, mapError(err)
		}
	case match.Entity.Status == domain.MatchCompleted && heldByMatch && donation.Entity.Status == domain.DonationMatched:
		// finish a completion interrupted after the match write
	default:
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidTransition, matchID, match.Entity.Status)
	}

	_, err = retryUpdate(ctx, s.store.Donations(), donationID, s.retryLimit, func(d *domain.Donation) error {
		if d.Status == domain.DonationCompleted && d.MatchID == matchID {
			return errAlreadyApplied
		}
		return d.Complete(matchID)
	})
	switch {
	case err == nil, errors.Is(err, errAlreadyApplied):
	case errors.Is(err, ports.ErrConflict):
		s.publish(ctx, domain.PartialConflictRecorded{
			BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
			Kind:       KindPartialCompletionConflict,
			MatchID:    matchID,
			DonationID: donationID,
		})
		return nil, fmt.Errorf("%w: %w", ErrPartialCompletionConflict, err)
	default:
		return nil, mapError(err)
	}

	result := &types.CompleteResult{MatchID: matchID, DonationID: donationID}
	if match.Entity.CompletedAt != nil {
		result.CompletedAt = *match.Entity.CompletedAt
	}
	s.publish(ctx, domain.MatchCompleted{
		BaseEvent:  domain.BaseEvent{Timestamp: result.CompletedAt},
		MatchID:    matchID,
		DonationID: donationID,
	})
	return result, nil
}

// Cancel either releases an active match (the donation returns to open) or withdraws
// a donation permanently. Exactly one target must be set.
func (s *Service) Cancel(ctx context.Context, caller domain.Caller, input types.CancelInput) (*types.CancelResult, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	donationID := strings.TrimSpace(input.DonationID)
	matchID := strings.TrimSpace(input.MatchID)
	switch {
	case donationID == "" && matchID == "":
		return nil, invalid("target", errors.New("one of donationId or matchId is required"))
	case donationID != "" && matchID != "":
		return nil, invalid("target", errors.New("donationId and matchId are mutually exclusive"))
	case matchID != "":
		return s.releaseMatch(ctx, caller, matchID)
	default:
		return s.cancelDonation(ctx, caller, donationID)
	}
}

func (s *Service) releaseMatch(ctx context.Context, caller domain.Caller, matchID string) (*types.CancelResult, error) {
	match, err := s.store.Matches().Get(ctx, matchID)
	if err != nil {
		return nil, mapError(err)
	}
	donationID := match.Entity.DonationID
	donation, err := s.store.Donations().Get(ctx, donationID)
	if err != nil {
		return nil, mapError(err)
	}
	if !mayActOnMatch(caller, match.Entity, donation.Entity) {
		return nil, fmt.Errorf("%w: caller %s may not cancel match %s", ErrForbidden, caller.OrgID, matchID)
	}

	heldByMatch := donation.Entity.Status == domain.DonationMatched && donation.Entity.MatchID == matchID
	switch match.Entity.Status {
	case domain.MatchActive:
		cancelledAt := s.now()
		match, err = retryUpdate(ctx, s.store.Matches(), matchID, s.retryLimit, func(m *domain.Match) error {
			return m.Cancel(cancelledAt)
		})
		if err != nil {
			return nil, mapError(err)
		}
	case domain.MatchCancelled:
		if !heldByMatch {
			return nil, fmt.Errorf("%w: match %s is already cancelled", ErrInvalidTransition, matchID)
		}
		// finish a release interrupted after the match write
	default:
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidTransition, matchID, match.Entity.Status)
	}

	result := &types.CancelResult{DonationID: donationID, MatchID: matchID}
	_, err = retryUpdate(ctx, s.store.Donations(), donationID, s.retryLimit, func(d *domain.Donation) error {
		if d.Status != domain.DonationMatched || d.MatchID != matchID {
			return errAlreadyApplied
		}
		return d.Release(matchID)
	})
	switch {
	case err == nil:
		result.DonationReopened = true
	case errors.Is(err, errAlreadyApplied):
	case errors.Is(err, ports.ErrConflict):
		s.publish(ctx, domain.PartialConflictRecorded{
			BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
			Kind:       KindPartialCompletionConflict,
			MatchID:    matchID,
			DonationID: donationID,
		})
		return nil, fmt.Errorf("%w: %w", ErrPartialCompletionConflict, err)
	default:
		return nil, mapError(err)
	}

	events := []domain.Event{domain.ClaimReleased{
		BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
		MatchID:    matchID,
		DonationID: donationID,
		ReleasedBy: caller.OrgID,
	}}
	if warning := s.reopenRequest(ctx, match.Entity); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}
	s.publish(ctx, events...)
	return result, nil
}

func (s *Service) cancelDonation(ctx context.Context, caller domain.Caller, donationID string) (*types.CancelResult, error) {
	donation, err := s.store.Donations().Get(ctx, donationID)
	if err != nil {
		return nil, mapError(err)
	}
	if !caller.IsSystem() && donation.Entity.DonorOrgID != caller.OrgID {
		return nil, fmt.Errorf("%w: only the donor may cancel donation %s", ErrForbidden, donationID)
	}

	for attempt := 0; attempt < s.retryLimit; attempt++ {
		switch donation.Entity.Status {
		case domain.DonationOpen:
			_, err = s.store.Donations().CompareAndUpdate(ctx, donationID, donation.Metadata.Version, func(d *domain.Donation) error {
				return d.Cancel()
			})
			if err == nil {
				s.publish(ctx, domain.DonationCancelled{
					BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
					DonationID: donationID,
				})
				return &types.CancelResult{DonationID: donationID}, nil
			}
			if !errors.Is(err, ports.ErrConflict) {
				return nil, mapError(err)
			}
			// lost to a concurrent claim; look again
			donation, err = s.store.Donations().Get(ctx, donationID)
			if err != nil {
				return nil, mapError(err)
			}
		case domain.DonationMatched:
			return s.cancelMatchedDonation(ctx, donation)
		default:
			return nil, fmt.Errorf("%w: donation %s is %s", ErrInvalidTransition, donationID, donation.Entity.Status)
		}
	}
	return nil, fmt.Errorf("%w: donation %s kept changing", ErrInvalidTransition, donationID)
}

// cancelMatchedDonation cancels the holding match first. The match acts as the lock:
// once it is completed no cancel can win, and once it is cancelled no completion can.
func (s *Service) cancelMatchedDonation(ctx context.Context, donation *ports.DonationProjection) (*types.CancelResult, error) {
	donationID := donation.Entity.ID
	matchID := donation.Entity.MatchID
	result := &types.CancelResult{DonationID: donationID, MatchID: matchID}

	var released *domain.Match
	cancelledAt := s.now()
	match, err := retryUpdate(ctx, s.store.Matches(), matchID, s.retryLimit, func(m *domain.Match) error {
		if m.Status == domain.MatchCancelled {
			return errAlreadyApplied
		}
		return m.Cancel(cancelledAt)
	})
	switch {
	case err == nil:
		released = match.Entity
	case errors.Is(err, errAlreadyApplied), errors.Is(err, ports.ErrNotFound):
		// claim still in flight or release half done; the donation write below settles it
	default:
		return nil, mapError(err)
	}

	_, err = retryUpdate(ctx, s.store.Donations(), donationID, s.retryLimit, func(d *domain.Donation) error {
		if d.Status == domain.DonationCancelled {
			return errAlreadyApplied
		}
		if d.Status == domain.DonationMatched && d.MatchID != matchID {
			return domain.ErrMatchMismatch
		}
		return d.Cancel()
	})
	switch {
	case err == nil, errors.Is(err, errAlreadyApplied):
	case errors.Is(err, ports.ErrConflict):
		s.publish(ctx, domain.PartialConflictRecorded{
			BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
			Kind:       KindPartialCompletionConflict,
			MatchID:    matchID,
			DonationID: donationID,
		})
		return nil, fmt.Errorf("%w: %w", ErrPartialCompletionConflict, err)
	default:
		return nil, mapError(err)
	}

	if released != nil {
		if warning := s.reopenRequest(ctx, released); warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		}
	}
	s.publish(ctx, domain.DonationCancelled{
		BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
		DonationID: donationID,
		MatchID:    matchID,
	})
	return result, nil
}

// reopenRequest undoes the fulfilled flag a released match had set.
func (s *Service) reopenRequest(ctx context.Context, match *domain.Match) *types.Warning {
	if match == nil || !match.FulfilledRequest || match.RequestID == "" {
		return nil
	}
	_, err := retryUpdate(ctx, s.store.Requests(), match.RequestID, s.retryLimit, func(r *domain.Request) error {
		if !r.Fulfilled {
			return errAlreadyApplied
		}
		return r.Reopen()
	})
	if err == nil || errors.Is(err, errAlreadyApplied) {
		return nil
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "released match but request stays fulfilled",
		slog.String("match_id", match.ID),
		slog.String("request_id", match.RequestID),
		slog.String("error", err.Error()))
	return &types.Warning{Kind: types.WarningRequestReopenConflict, Message: err.Error()}
}

func mayActOnMatch(caller domain.Caller, match *domain.Match, donation *domain.Donation) bool {
	return caller.IsSystem() || caller.OrgID == match.ClaimantOrgID || caller.OrgID == donation.DonorOrgID
}
