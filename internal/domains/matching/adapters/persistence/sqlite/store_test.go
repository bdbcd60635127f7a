package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/storetest"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	platformsqlite "github.com/Apurer/go-gin-donation-matcher/internal/platform/sqlite"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := platformsqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return NewStore(db)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return openStore(t) })
}

func TestStore_MatchTimestampsRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	created, err := store.Matches().Create(ctx, domain.NewMatch("", "donation-1", "request-1", "ngo-1", 91.25, []string{"urgency: high (+20)"}))
	require.NoError(t, err)

	cancelledAt := time.Date(2024, 7, 4, 10, 30, 0, 123456789, time.UTC)
	updated, err := store.Matches().CompareAndUpdate(ctx, created.Entity.ID, 1, func(m *domain.Match) error {
		m.FulfilledRequest = true
		return m.Cancel(cancelledAt)
	})
	require.NoError(t, err)

	fetched, err := store.Matches().Get(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Metadata, fetched.Metadata)
	assert.Equal(t, domain.MatchCancelled, fetched.Entity.Status)
	assert.True(t, fetched.Entity.FulfilledRequest)
	require.NotNil(t, fetched.Entity.CancelledAt)
	assert.True(t, cancelledAt.Equal(*fetched.Entity.CancelledAt))
	assert.Nil(t, fetched.Entity.CompletedAt)
	assert.Equal(t, []string{"urgency: high (+20)"}, fetched.Entity.Explanation)
}

func TestStore_NilDatabaseIsUnavailable(t *testing.T) {
	store := NewStore(nil)
	_, err := store.Donations().Get(context.Background(), "any")
	require.ErrorIs(t, err, ports.ErrStoreUnavailable)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := platformsqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))
}
