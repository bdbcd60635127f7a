package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-donation-matcher/internal/app/api"
	sweepworkflows "github.com/Apurer/go-gin-donation-matcher/internal/durable/temporal/workflows/sweeps"
	platformobservability "github.com/Apurer/go-gin-donation-matcher/internal/platform/observability"
	matchingactivities "github.com/Apurer/go-gin-donation-matcher/internal/platform/temporal/activities/matching"
)

func main() {
	ctx := context.Background()
	const serviceName = "donation-matcher-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	matching, err := api.BuildMatching(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to assemble matching service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer matching.Close()
	activities := matchingactivities.NewActivities(matching.Service)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, sweepworkflows.StaleClaimSweepTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(sweepworkflows.StaleClaimSweepWorkflow, workflow.RegisterOptions{Name: sweepworkflows.StaleClaimSweepWorkflowName})
	w.RegisterActivityWithOptions(activities.ListStaleMatches, activity.RegisterOptions{Name: matchingactivities.ListStaleMatchesActivityName})
	w.RegisterActivityWithOptions(activities.ReleaseMatch, activity.RegisterOptions{Name: matchingactivities.ReleaseMatchActivityName})

	logger.Info("worker listening",
		slog.String("taskQueue", sweepworkflows.StaleClaimSweepTaskQueue),
		slog.String("namespace", clientOptions.Namespace),
		slog.String("store", matching.Driver))
	if matching.Driver == api.DriverMemory {
		logger.Warn("worker is using the in-memory store; sweeps will not see API state")
	}
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
