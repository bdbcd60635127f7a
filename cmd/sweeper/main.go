package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/app/api"
	matchingapp "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// sweeper runs one stale-claim sweep against the configured store and exits; meant for cron.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	matching, err := api.BuildMatching(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to assemble matching service: %v", err)
	}
	defer matching.Close()
	if matching.Driver == api.DriverMemory {
		log.Fatal("no persistent store configured; nothing to sweep")
	}

	sweeper := matchingapp.NewSweeper(matching.Service, matchingapp.WithSweeperLogger(logger))
	report, err := sweeper.Sweep(ctx, matchingports.SweepRequest{MaxAge: cfg.SweepMaxAge})
	if err != nil {
		log.Fatalf("stale-claim sweep failed: %v", err)
	}
	logger.Info("stale-claim sweep completed",
		slog.Int("examined", report.Examined),
		slog.Int("released", len(report.Released)),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failed)))
}
