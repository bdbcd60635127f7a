package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

func TestGenerateCandidates_RankingAndTies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	older := registerDonation(t, svc, donorOne, "rice bags")
	newer := registerDonation(t, svc, donorTwo, "rice bags")
	weak := registerDonation(t, svc, donorOne, "garden tools")
	request := registerRequest(t, svc, ngoA, "rice bags")

	set, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)
	require.Len(t, set.Candidates, 3)
	assert.False(t, set.Truncated)
	assert.Equal(t, 3, set.DonationsConsidered)
	assert.Equal(t, 1, set.RequestsConsidered)

	got := []string{set.Candidates[0].DonationID, set.Candidates[1].DonationID, set.Candidates[2].DonationID}
	assert.Equal(t, []string{older.Entity.ID, newer.Entity.ID, weak.Entity.ID}, got)
	assert.Equal(t, set.Candidates[0].Score, set.Candidates[1].Score)
	assert.Greater(t, set.Candidates[1].Score, set.Candidates[2].Score)
	for _, c := range set.Candidates {
		assert.Equal(t, request.Entity.ID, c.RequestID)
		assert.NotEmpty(t, c.Explanation)
	}

	again, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)
	assert.Equal(t, set.Candidates, again.Candidates)
}

func TestGenerateCandidates_SkipsClaimedAndFulfilled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claimed := registerDonation(t, svc, donorOne, "rice")
	registerDonation(t, svc, donorTwo, "rice")
	request := registerRequest(t, svc, ngoA, "rice")
	other := registerRequest(t, svc, ngoB, "rice")
	_, err := svc.Claim(ctx, ngoA, types.ClaimInput{DonationID: claimed.Entity.ID, RequestID: request.Entity.ID})
	require.NoError(t, err)

	set, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)
	require.Len(t, set.Candidates, 1)
	assert.NotEqual(t, claimed.Entity.ID, set.Candidates[0].DonationID)
	assert.Equal(t, other.Entity.ID, set.Candidates[0].RequestID)

	empty, err := svc.SuggestMatches(ctx, types.SuggestInput{DonationID: claimed.Entity.ID})
	require.NoError(t, err)
	assert.Empty(t, empty.Candidates)

	empty, err = svc.SuggestMatches(ctx, types.SuggestInput{RequestID: request.Entity.ID})
	require.NoError(t, err)
	assert.Empty(t, empty.Candidates)
}

func TestGenerateCandidates_BoundsSignalTruncation(t *testing.T) {
	svc, _ := newTestService(t, WithCandidateBounds(types.Bounds{MaxDonations: 2, MaxRequests: 5}))
	ctx := context.Background()

	registerDonation(t, svc, donorOne, "rice")
	second := registerDonation(t, svc, donorOne, "rice")
	third := registerDonation(t, svc, donorOne, "rice")
	registerRequest(t, svc, ngoA, "rice")

	set, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)
	assert.True(t, set.Truncated)
	assert.Equal(t, 2, set.Bounds.MaxDonations)
	assert.Equal(t, 2, set.DonationsConsidered)
	require.Len(t, set.Candidates, 2)
	assert.Equal(t, second.Entity.ID, set.Candidates[0].DonationID)
	assert.Equal(t, third.Entity.ID, set.Candidates[1].DonationID)
}

func TestGenerateCandidates_RegionScoped(t *testing.T) {
	svc, _ := newTestService(t, WithCandidateBounds(types.Bounds{RegionScoped: true}))
	ctx := context.Background()

	local := registerDonation(t, svc, donorOne, "rice")
	remote, err := svc.RegisterDonation(ctx, donorTwo, types.RegisterDonationInput{
		Category: "food", Quantity: "5 kg", Condition: "new", Description: "rice", City: "Mysuru",
	})
	require.NoError(t, err)
	anywhere, err := svc.RegisterDonation(ctx, donorTwo, types.RegisterDonationInput{
		Category: "food", Quantity: "5 kg", Condition: "new", Description: "rice",
	})
	require.NoError(t, err)
	registerRequest(t, svc, ngoA, "rice")

	set, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range set.Candidates {
		ids[c.DonationID] = true
	}
	assert.True(t, ids[local.Entity.ID])
	assert.True(t, ids[anywhere.Entity.ID])
	assert.False(t, ids[remote.Entity.ID])
}

func TestSuggestMatches_ScopeAndLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	donation := registerDonation(t, svc, donorOne, "rice")
	registerRequest(t, svc, ngoA, "rice")
	registerRequest(t, svc, ngoB, "rice")

	_, err := svc.SuggestMatches(ctx, types.SuggestInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SuggestMatches(ctx, types.SuggestInput{DonationID: "a", RequestID: "b"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SuggestMatches(ctx, types.SuggestInput{DonationID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	set, err := svc.SuggestMatches(ctx, types.SuggestInput{DonationID: donation.Entity.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, set.Candidates, 1)
	assert.Equal(t, 2, set.RequestsConsidered)
	assert.Equal(t, donation.Entity.ID, set.Candidates[0].DonationID)
}

func TestGenerateCandidates_DoesNotMutate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	donation := registerDonation(t, svc, donorOne, "rice")
	registerRequest(t, svc, ngoA, "rice")

	_, err := svc.GenerateCandidates(ctx, types.CandidateScope{})
	require.NoError(t, err)

	after, err := svc.GetDonation(ctx, donation.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationOpen, after.Entity.Status)
	assert.Equal(t, donation.Metadata.Version, after.Metadata.Version)
}
