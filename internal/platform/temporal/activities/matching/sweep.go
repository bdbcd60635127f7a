package matching

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

const (
	// ListStaleMatchesActivityName returns the ids of active matches created before a cutoff.
	ListStaleMatchesActivityName = "matching.activities.ListStaleMatches"
	// ReleaseMatchActivityName cancels one active match as the sweep caller.
	ReleaseMatchActivityName = "matching.activities.ReleaseMatch"
)

// ListStaleMatchesInput selects the matches a sweep examines.
type ListStaleMatchesInput struct {
	CreatedBefore time.Time
	Limit         int
}

// ReleaseOutcome reports what happened to one match. Only store outages are returned as
// activity errors so Temporal retries them; everything else is settled.
type ReleaseOutcome struct {
	MatchID  string
	Released bool
	Skipped  bool
	// FailedKind carries the error kind of a release that will not succeed on retry.
	FailedKind string
}

// Activities groups the activities of the stale-claim sweep.
type Activities struct {
	service ports.Service
}

// NewActivities wires the matching service into the Temporal activities bundle.
func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// ListStaleMatches loads active matches older than the cutoff.
func (a *Activities) ListStaleMatches(ctx context.Context, input ListStaleMatchesInput) ([]string, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("stale match listing activity not initialized")
		return nil, errors.New("stale match listing activity not initialized")
	}
	matches, err := a.service.ListMatches(ctx, types.ListMatchesInput{
		Statuses:      []string{string(domain.MatchActive)},
		CreatedBefore: input.CreatedBefore,
		Limit:         input.Limit,
	})
	if err != nil {
		logger.Error("ListStaleMatches activity failed", "error", err)
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Entity.ID)
	}
	logger.Info("ListStaleMatches activity completed", "count", len(ids), "createdBefore", input.CreatedBefore)
	return ids, nil
}

// ReleaseMatch cancels a stale match through the ordinary Cancel operation.
func (a *Activities) ReleaseMatch(ctx context.Context, matchID string) (*ReleaseOutcome, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("release activity not initialized", "matchId", matchID)
		return nil, errors.New("release activity not initialized")
	}
	outcome := &ReleaseOutcome{MatchID: matchID}
	_, err := a.service.Cancel(ctx, domain.SystemCaller(application.SweeperName), types.CancelInput{MatchID: matchID})
	switch {
	case err == nil:
		outcome.Released = true
		logger.Info("ReleaseMatch activity released claim", "matchId", matchID)
	case errors.Is(err, application.ErrInvalidTransition), errors.Is(err, application.ErrNotFound):
		outcome.Skipped = true
		logger.Info("ReleaseMatch activity skipped settled match", "matchId", matchID)
	case errors.Is(err, application.ErrStoreUnavailable):
		logger.Warn("ReleaseMatch activity hit unavailable store", "matchId", matchID, "error", err)
		return nil, err
	default:
		outcome.FailedKind = application.KindOf(err)
		logger.Error("ReleaseMatch activity failed", "matchId", matchID, "error", err)
	}
	return outcome, nil
}
