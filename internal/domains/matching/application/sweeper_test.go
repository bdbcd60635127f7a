package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

func TestSweeper_ReleasesOnlyStaleClaims(t *testing.T) {
	store := memory.NewStore()
	current := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	store.WithClock(clock)
	svc := NewService(store, nil, WithClock(clock))
	ctx := context.Background()

	stale := registerDonation(t, svc, donorOne, "rice")
	staleClaim, err := svc.Claim(ctx, ngoA, types.ClaimInput{DonationID: stale.Entity.ID})
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)
	fresh := registerDonation(t, svc, donorOne, "lentils")
	freshClaim, err := svc.Claim(ctx, ngoB, types.ClaimInput{DonationID: fresh.Entity.ID})
	require.NoError(t, err)

	sweeper := NewSweeper(svc, WithSweeperClock(clock))
	report, err := sweeper.Sweep(ctx, ports.SweepRequest{MaxAge: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, []string{staleClaim.MatchID}, report.Released)
	assert.Empty(t, report.Failed)

	released, err := svc.GetDonation(ctx, stale.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationOpen, released.Entity.Status)

	kept, err := svc.GetMatch(ctx, freshClaim.MatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchActive, kept.Entity.Status)

	again, err := sweeper.Sweep(ctx, ports.SweepRequest{MaxAge: 24 * time.Hour})
	require.NoError(t, err)
	assert.Zero(t, again.Examined)
}

func TestSweeper_RejectsNonPositiveAge(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := NewSweeper(svc).Sweep(context.Background(), ports.SweepRequest{})
	require.ErrorIs(t, err, ErrInvalidInput)
}
