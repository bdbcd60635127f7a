package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	sweepworkflows "github.com/Apurer/go-gin-donation-matcher/internal/durable/temporal/workflows/sweeps"
)

var (
	_ ports.SweepOrchestrator = (*TemporalSweeps)(nil)
	_ ports.SweepOrchestrator = (*InlineSweeps)(nil)
)

// TemporalSweeps starts stale-claim sweeps on a Temporal cluster.
type TemporalSweeps struct {
	client    client.Client
	taskQueue string
}

// NewTemporalSweeps wires a Temporal client into the orchestrator.
func NewTemporalSweeps(c client.Client) *TemporalSweeps {
	return &TemporalSweeps{client: c, taskQueue: sweepworkflows.StaleClaimSweepTaskQueue}
}

// Sweep runs the sweep workflow and waits for its report.
func (o *TemporalSweeps) Sweep(ctx context.Context, req ports.SweepRequest) (*ports.SweepReport, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal sweeps not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildSweepWorkflowID(req, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		sweepworkflows.StaleClaimSweepWorkflowName,
		sweepworkflows.StaleClaimSweepWorkflowInput{Request: req, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || req.Key == "" {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var report ports.SweepReport
	if err := run.Get(ctx, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// InlineSweeps runs the sweep in-process without Temporal, useful for tests or dev fallbacks.
type InlineSweeps struct {
	sweeper *application.Sweeper
}

// NewInlineSweeps wraps the matching service for synchronous sweeps.
func NewInlineSweeps(service ports.Service, opts ...application.SweeperOption) *InlineSweeps {
	return &InlineSweeps{sweeper: application.NewSweeper(service, opts...)}
}

// Sweep delegates to the in-process sweeper.
func (o *InlineSweeps) Sweep(ctx context.Context, req ports.SweepRequest) (*ports.SweepReport, error) {
	if o == nil || o.sweeper == nil {
		return nil, errors.New("inline sweeps not configured")
	}
	return o.sweeper.Sweep(ctx, req)
}

func buildSweepWorkflowID(req ports.SweepRequest, traceComponent string) string {
	if req.Key != "" {
		return "stale-claim-sweep-key-" + req.Key
	}
	return fmt.Sprintf("stale-claim-sweep-%s", traceComponent)
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
