package sweeps

import (
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/durable/temporal/sequences"
)

const (
	// StaleClaimSweepWorkflowName is the public identifier for registering the workflow.
	StaleClaimSweepWorkflowName = "matching.workflows.StaleClaimSweep"
	// StaleClaimSweepTaskQueue is the queue consumed by the worker processing sweeps.
	StaleClaimSweepTaskQueue = "STALE_CLAIM_SWEEP"
)

// StaleClaimSweepWorkflowInput captures one sweep run.
type StaleClaimSweepWorkflowInput struct {
	Request ports.SweepRequest
	TraceID string
}

// StaleClaimSweepWorkflow releases claims that were never completed.
func StaleClaimSweepWorkflow(ctx workflow.Context, input StaleClaimSweepWorkflowInput) (*ports.SweepReport, error) {
	logger := workflow.GetLogger(ctx)
	if input.Request.MaxAge <= 0 {
		return nil, temporal.NewNonRetryableApplicationError("max age must be positive", "InvalidSweepRequest", errors.New("invalid sweep request"))
	}
	logger.Info("StaleClaimSweepWorkflow started", withTraceID(input.TraceID, "maxAge", input.Request.MaxAge.String())...)
	report, err := sequences.RunStaleClaimSweepSequence(ctx, input.Request)
	if err != nil {
		logger.Error("StaleClaimSweepWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}
	logger.Info("StaleClaimSweepWorkflow completed",
		withTraceID(input.TraceID, "examined", report.Examined, "released", len(report.Released), "failed", len(report.Failed))...)
	return report, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
