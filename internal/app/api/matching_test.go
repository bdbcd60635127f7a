package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

func TestBuildMatching_FallsBackToMemory(t *testing.T) {
	cfg := Config{StoreDriver: DriverPostgres, EventLogSize: 8, CandidateMaxDonations: 10, CandidateMaxRequests: 10, CompleteRetryLimit: 3}
	matching, err := BuildMatching(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer matching.Close()
	assert.Equal(t, DriverMemory, matching.Driver)
}

func TestBuildMatching_SQLitePublishesEvents(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		StoreDriver:           DriverSQLite,
		SQLitePath:            filepath.Join(t.TempDir(), "matching.db"),
		EventLogSize:          8,
		CandidateMaxDonations: 10,
		CandidateMaxRequests:  10,
		CompleteRetryLimit:    3,
	}
	matching, err := BuildMatching(ctx, cfg, nil)
	require.NoError(t, err)
	defer matching.Close()
	require.Equal(t, DriverSQLite, matching.Driver)

	donor := domain.Caller{OrgID: "donor-1", Role: domain.RoleDonor}
	saved, err := matching.Service.RegisterDonation(ctx, donor, types.RegisterDonationInput{
		Category:    "books",
		Quantity:    "2 boxes",
		Condition:   "used",
		Description: "school textbooks",
		City:        "Pune",
	})
	require.NoError(t, err)

	fetched, err := matching.Service.GetDonation(ctx, saved.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "school textbooks", fetched.Entity.Description)

	events, err := matching.Events.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "matching.donation.registered", events[0].EventName())
}

func TestBuildMatching_RejectsBadOracleURL(t *testing.T) {
	_, err := BuildMatching(context.Background(), Config{StoreDriver: DriverMemory, OracleURL: "not a url"}, nil)
	require.Error(t, err)
}
