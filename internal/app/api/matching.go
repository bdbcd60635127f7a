package api

import (
	"context"
	"fmt"
	"log/slog"

	oracleclient "github.com/Apurer/go-gin-donation-matcher/internal/clients/http/oracle"
	matchingoracle "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/external/oracle"
	matchingmemory "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	matchingobs "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/observability"
	matchingdynamo "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/persistence/dynamo"
	matchingpostgres "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/persistence/postgres"
	matchingsqlite "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/persistence/sqlite"
	matchingapp "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
	platformdynamo "github.com/Apurer/go-gin-donation-matcher/internal/platform/dynamo"
	"github.com/Apurer/go-gin-donation-matcher/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-donation-matcher/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-donation-matcher/internal/platform/postgres"
	platformsqlite "github.com/Apurer/go-gin-donation-matcher/internal/platform/sqlite"
)

// Matching is the assembled matching engine shared by the API, worker and sweeper binaries.
// Service is the instrumented service; Driver names the store in use after any fallback.
type Matching struct {
	Service matchingports.Service
	Events  *matchingmemory.EventLog
	Driver  string
	cleanup func()
}

// Close releases store connections.
func (m *Matching) Close() {
	if m != nil && m.cleanup != nil {
		m.cleanup()
	}
}

// BuildMatching wires the entity store, scorer, event publishers and the
// observability decorator according to cfg.
func BuildMatching(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Matching, error) {
	logger := effectiveLogger(instruments)

	scoringConfig, err := cfg.Scoring()
	if err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	var scorerOpts []scoring.Option
	if cfg.OracleURL != "" {
		client, err := oracleclient.NewClient(cfg.OracleURL, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid ORACLE_URL: %w", err)
		}
		scorerOpts = append(scorerOpts, scoring.WithOracle(matchingoracle.New(client, logger)))
		logger.Info("similarity oracle enabled", slog.String("url", cfg.OracleURL), slog.String("mode", string(scoringConfig.OracleMode)))
	}
	scorer, err := scoring.New(scoringConfig, scorerOpts...)
	if err != nil {
		return nil, err
	}

	store, driver, cleanup := buildStore(ctx, cfg, logger)
	events := matchingmemory.NewEventLog(cfg.EventLogSize)
	core := matchingapp.NewService(store, scorer,
		matchingapp.WithEventPublisher(matchingobs.FanOut{events, matchingobs.NewEventLogger(logger)}),
		matchingapp.WithLogger(logger),
		matchingapp.WithCandidateBounds(cfg.Bounds()),
		matchingapp.WithRetryLimit(cfg.CompleteRetryLimit),
	)
	service := matchingobs.New(
		core,
		matchingobs.WithLogger(logger),
		matchingobs.WithTracer(instruments.Tracer("internal.matching.application")),
		matchingobs.WithMeter(instruments.Meter("internal.matching.application")),
	)
	return &Matching{Service: service, Events: events, Driver: driver, cleanup: cleanup}, nil
}

// buildStore opens the configured store. Any failure falls back to the in-memory store.
func buildStore(ctx context.Context, cfg Config, logger *slog.Logger) (matchingports.Store, string, func()) {
	fallback := func(reason string, err error) (matchingports.Store, string, func()) {
		attrs := []any{slog.String("driver", cfg.StoreDriver)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.Warn(reason+", falling back to the in-memory store", attrs...)
		return matchingmemory.NewStore(), DriverMemory, func() {}
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return fallback("POSTGRES_DSN not set", nil)
		}
		db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return fallback("failed to connect to postgres", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fallback("failed to unwrap postgres connection", err)
		}
		if err := migrations.Run(db); err != nil {
			_ = sqlDB.Close()
			return fallback("failed to migrate postgres schema", err)
		}
		logger.Info("matching store configured with postgres")
		return matchingpostgres.NewStore(db), DriverPostgres, func() { _ = sqlDB.Close() }

	case DriverSQLite:
		db, err := platformsqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fallback("failed to open sqlite database", err)
		}
		if err := matchingsqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return fallback("failed to migrate sqlite schema", err)
		}
		logger.Info("matching store configured with sqlite", slog.String("path", cfg.SQLitePath))
		return matchingsqlite.NewStore(db), DriverSQLite, func() { _ = db.Close() }

	case DriverDynamoDB:
		client, err := platformdynamo.NewClient(ctx, platformdynamo.Config{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.DynamoEndpoint,
		})
		if err != nil {
			return fallback("failed to configure dynamodb client", err)
		}
		if err := matchingdynamo.EnsureTables(ctx, client, cfg.DynamoTablePrefix); err != nil {
			return fallback("failed to provision dynamodb tables", err)
		}
		logger.Info("matching store configured with dynamodb", slog.String("tablePrefix", cfg.DynamoTablePrefix))
		return matchingdynamo.NewStore(client, cfg.DynamoTablePrefix), DriverDynamoDB, func() {}
	}
	logger.Info("matching store configured in memory")
	return matchingmemory.NewStore(), DriverMemory, func() {}
}
