package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	matchactivities "github.com/Apurer/go-gin-donation-matcher/internal/platform/temporal/activities/matching"
)

// RunStaleClaimSweepSequence lists stale matches and releases them one activity at a time,
// so a crashed worker resumes where it stopped.
func RunStaleClaimSweepSequence(ctx workflow.Context, req ports.SweepRequest) (*ports.SweepReport, error) {
	logger := workflow.GetLogger(ctx)
	listOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	releaseOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}

	report := &ports.SweepReport{
		Released:  []string{},
		Failed:    map[string]string{},
		StartedAt: workflow.Now(ctx).UTC(),
	}
	listInput := matchactivities.ListStaleMatchesInput{
		CreatedBefore: report.StartedAt.Add(-req.MaxAge),
		Limit:         req.Limit,
	}
	var ids []string
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, listOptions), matchactivities.ListStaleMatchesActivityName, listInput).Get(ctx, &ids); err != nil {
		logger.Error("stale claim sweep failed to list matches", "error", err)
		return nil, err
	}
	logger.Info("stale claim sweep listed matches", "count", len(ids))

	releaseCtx := workflow.WithActivityOptions(ctx, releaseOptions)
	for _, id := range ids {
		report.Examined++
		var outcome matchactivities.ReleaseOutcome
		if err := workflow.ExecuteActivity(releaseCtx, matchactivities.ReleaseMatchActivityName, id).Get(ctx, &outcome); err != nil {
			logger.Warn("stale claim sweep release exhausted retries", "matchId", id, "error", err)
			report.Failed[id] = "StoreUnavailable"
			continue
		}
		switch {
		case outcome.Released:
			report.Released = append(report.Released, id)
		case outcome.Skipped:
			report.Skipped++
		default:
			report.Failed[id] = outcome.FailedKind
		}
	}
	report.FinishedAt = workflow.Now(ctx).UTC()
	return report, nil
}
