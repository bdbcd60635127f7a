package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	matchingserver "github.com/Apurer/go-gin-donation-matcher/go"
	matchingworkflows "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/workflows"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	platformobservability "github.com/Apurer/go-gin-donation-matcher/internal/platform/observability"
)

// Run boots the matching HTTP API with observability, the entity store, and sweeps wired.
func Run(ctx context.Context) error {
	const serviceName = "donation-matcher-api"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	matching, err := BuildMatching(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer matching.Close()

	var sweeps matchingports.SweepOrchestrator = matchingworkflows.NewInlineSweeps(matching.Service)
	if temporalClient, err := ConnectTemporal(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, running sweeps inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		sweeps = matchingworkflows.NewTemporalSweeps(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	handlers := matchingserver.ApiHandleFunctions{
		DonationAPI:  matchingserver.NewDonationAPI(matching.Service),
		RequestAPI:   matchingserver.NewRequestAPI(matching.Service),
		MatchAPI:     matchingserver.NewMatchAPI(matching.Service),
		CandidateAPI: matchingserver.NewCandidateAPI(matching.Service),
		AdminAPI:     matchingserver.NewAdminAPI(matching.Events, sweeps, cfg.SweepMaxAge),
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, trusting X-Org-ID and X-Org-Role headers from the gateway")
	}
	router := matchingserver.NewRouter(handlers,
		otelgin.Middleware(serviceName),
		matchingserver.Identity(cfg.JWTSecret),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("matching API listening", slog.String("addr", server.Addr), slog.String("store", matching.Driver))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("matching API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("matching API shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// ConnectTemporal dials Temporal with tracing and slog bridged in.
func ConnectTemporal(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
