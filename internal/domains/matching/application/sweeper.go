package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// SweeperName identifies the sweep as the acting caller.
const SweeperName = "stale-claim-sweeper"

// Sweeper releases claims that stayed active past a maximum age. It only uses
// ordinary service calls, so every release goes through the usual arbitration.
type Sweeper struct {
	service ports.Service
	now     func() time.Time
	logger  *slog.Logger
}

type SweeperOption func(*Sweeper)

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSweeper(service ports.Service, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		service: service,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sweep cancels active matches created more than req.MaxAge ago.
func (s *Sweeper) Sweep(ctx context.Context, req ports.SweepRequest) (*ports.SweepReport, error) {
	if req.MaxAge <= 0 {
		return nil, invalid("maxAge", errors.New("max age must be positive"))
	}
	report := &ports.SweepReport{
		Released:  []string{},
		Failed:    map[string]string{},
		StartedAt: s.now(),
	}
	stale, err := s.service.ListMatches(ctx, types.ListMatchesInput{
		Statuses:      []string{string(domain.MatchActive)},
		CreatedBefore: report.StartedAt.Add(-req.MaxAge),
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list stale matches: %w", err)
	}

	caller := domain.SystemCaller(SweeperName)
	for _, match := range stale {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Examined++
		matchID := match.Entity.ID
		_, err := s.service.Cancel(ctx, caller, types.CancelInput{MatchID: matchID})
		switch {
		case err == nil:
			report.Released = append(report.Released, matchID)
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			// completed or released since the listing
			report.Skipped++
		default:
			report.Failed[matchID] = KindOf(err)
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release stale claim",
				slog.String("match_id", matchID), slog.String("error", err.Error()))
		}
	}
	report.FinishedAt = s.now()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "stale claim sweep finished",
		slog.Int("examined", report.Examined),
		slog.Int("released", len(report.Released)),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

var _ ports.SweepOrchestrator = (*Sweeper)(nil)
