// Package storetest holds the behavioural contract every ports.Store adapter must satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) ports.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("CompareAndUpdate", func(t *testing.T) { testCompareAndUpdate(t, newStore(t)) })
	t.Run("MutatorErrorAborts", func(t *testing.T) { testMutatorErrorAborts(t, newStore(t)) })
	t.Run("ConcurrentCompareAndUpdate", func(t *testing.T) { testConcurrentCAS(t, newStore(t)) })
	t.Run("QueryOrderingAndLimit", func(t *testing.T) { testQueryOrdering(t, newStore(t)) })
	t.Run("RequestQuery", func(t *testing.T) { testRequestQuery(t, newStore(t)) })
	t.Run("MatchQuery", func(t *testing.T) { testMatchQuery(t, newStore(t)) })
	t.Run("OneLiveMatchPerDonation", func(t *testing.T) { testOneLiveMatch(t, newStore(t)) })
}

// NewDonation builds a valid open donation for fixtures.
func NewDonation(t testing.TB, donor, description string) *domain.Donation {
	t.Helper()
	d, err := domain.NewDonation(donor, domain.CategoryFood, "10 boxes", domain.ConditionGood, description)
	require.NoError(t, err)
	require.NoError(t, d.PlaceAt("Bengaluru", &domain.Location{Lat: 12.97, Lng: 77.59}))
	return d
}

// NewRequest builds a valid unfulfilled request for fixtures.
func NewRequest(t testing.TB, org, description string) *domain.Request {
	t.Helper()
	r, err := domain.NewRequest(org, domain.CategoryFood, "20 boxes", domain.UrgencyHigh, description)
	require.NoError(t, err)
	require.NoError(t, r.PlaceAt("Bengaluru", &domain.Location{Lat: 12.98, Lng: 77.60}))
	return r
}

func testCreateAndGet(t *testing.T, store ports.Store) {
	ctx := context.Background()
	created, err := store.Donations().Create(ctx, NewDonation(t, "donor-1", "canned vegetables"))
	require.NoError(t, err)
	require.NotEmpty(t, created.Entity.ID)
	assert.Equal(t, int64(1), created.Metadata.Version)
	assert.False(t, created.Metadata.CreatedAt.IsZero())

	fetched, err := store.Donations().Get(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Entity.ID, fetched.Entity.ID)
	assert.Equal(t, "donor-1", fetched.Entity.DonorOrgID)
	assert.Equal(t, domain.DonationOpen, fetched.Entity.Status)
	assert.Equal(t, "bengaluru", fetched.Entity.City)
	require.NotNil(t, fetched.Entity.Origin)
	assert.InDelta(t, 12.97, fetched.Entity.Origin.Lat, 1e-9)
	assert.Equal(t, int64(1), fetched.Metadata.Version)

	fetched.Entity.Description = "mutated after read"
	again, err := store.Donations().Get(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "canned vegetables", again.Entity.Description)

	req, err := store.Requests().Create(ctx, NewRequest(t, "ngo-1", "need canned vegetables"))
	require.NoError(t, err)
	assert.False(t, req.Entity.Fulfilled)
	assert.Equal(t, domain.UrgencyHigh, req.Entity.Urgency)
}

func testCreateDuplicate(t *testing.T, store ports.Store) {
	ctx := context.Background()
	d := NewDonation(t, "donor-1", "rice")
	d.ID = "0190a0a0-0000-7000-8000-000000000001"
	_, err := store.Donations().Create(ctx, d)
	require.NoError(t, err)
	_, err = store.Donations().Create(ctx, d)
	require.ErrorIs(t, err, ports.ErrConflict)
}

func testGetMissing(t *testing.T, store ports.Store) {
	ctx := context.Background()
	_, err := store.Donations().Get(ctx, "0190a0a0-0000-7000-8000-00000000dead")
	require.ErrorIs(t, err, ports.ErrNotFound)
	_, err = store.Matches().Get(ctx, "0190a0a0-0000-7000-8000-00000000dead")
	require.ErrorIs(t, err, ports.ErrNotFound)
	_, err = store.Requests().CompareAndUpdate(ctx, "0190a0a0-0000-7000-8000-00000000dead", 1, func(*domain.Request) error { return nil })
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func testCompareAndUpdate(t *testing.T, store ports.Store) {
	ctx := context.Background()
	created, err := store.Donations().Create(ctx, NewDonation(t, "donor-1", "blankets"))
	require.NoError(t, err)
	id := created.Entity.ID

	updated, err := store.Donations().CompareAndUpdate(ctx, id, 1, func(d *domain.Donation) error {
		return d.Claim("0190a0a0-0000-7000-8000-0000000000aa")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)
	assert.Equal(t, domain.DonationMatched, updated.Entity.Status)
	assert.Equal(t, id, updated.Entity.ID)
	assert.False(t, updated.Metadata.UpdatedAt.Before(created.Metadata.UpdatedAt))

	_, err = store.Donations().CompareAndUpdate(ctx, id, 1, func(d *domain.Donation) error { return d.Cancel() })
	require.ErrorIs(t, err, ports.ErrConflict)

	current, err := store.Donations().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Metadata.Version)
	assert.Equal(t, domain.DonationMatched, current.Entity.Status)
	assert.Equal(t, "0190a0a0-0000-7000-8000-0000000000aa", current.Entity.MatchID)
}

func testMutatorErrorAborts(t *testing.T, store ports.Store) {
	ctx := context.Background()
	created, err := store.Requests().Create(ctx, NewRequest(t, "ngo-1", "school books"))
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = store.Requests().CompareAndUpdate(ctx, created.Entity.ID, 1, func(r *domain.Request) error {
		r.Fulfilled = true
		return boom
	})
	require.ErrorIs(t, err, boom)

	current, err := store.Requests().Get(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.False(t, current.Entity.Fulfilled)
	assert.Equal(t, int64(1), current.Metadata.Version)
}

func testConcurrentCAS(t *testing.T, store ports.Store) {
	ctx := context.Background()
	created, err := store.Donations().Create(ctx, NewDonation(t, "donor-1", "winter coats"))
	require.NoError(t, err)

	const writers = 16
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Donations().CompareAndUpdate(ctx, created.Entity.ID, 1, func(d *domain.Donation) error {
				return d.Claim("0190a0a0-0000-7000-8000-0000000000bb")
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ports.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())
}

func testQueryOrdering(t *testing.T, store ports.Store) {
	ctx := context.Background()
	var ids []string
	for _, desc := range []string{"first", "second", "third", "fourth"} {
		p, err := store.Donations().Create(ctx, NewDonation(t, "donor-1", desc))
		require.NoError(t, err)
		ids = append(ids, p.Entity.ID)
		time.Sleep(2 * time.Millisecond)
	}
	other := NewDonation(t, "donor-2", "elsewhere")
	require.NoError(t, other.PlaceAt("Mysuru", nil))
	_, err := store.Donations().Create(ctx, other)
	require.NoError(t, err)

	_, err = store.Donations().CompareAndUpdate(ctx, ids[1], 1, func(d *domain.Donation) error { return d.Cancel() })
	require.NoError(t, err)

	all, err := store.Donations().Query(ctx, ports.DonationQuery{DonorOrgID: "donor-1"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, p := range all {
		assert.Equal(t, ids[i], p.Entity.ID)
	}

	open, err := store.Donations().Query(ctx, ports.DonationQuery{Statuses: []domain.DonationStatus{domain.DonationOpen}, City: "bengaluru"})
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, ids[0], open[0].Entity.ID)
	assert.Equal(t, ids[2], open[1].Entity.ID)

	recent, err := store.Donations().Query(ctx, ports.DonationQuery{Statuses: []domain.DonationStatus{domain.DonationOpen}, City: "bengaluru", Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].Entity.ID)
	assert.Equal(t, ids[3], recent[1].Entity.ID)

	mysuru, err := store.Donations().Query(ctx, ports.DonationQuery{City: "mysuru"})
	require.NoError(t, err)
	require.Len(t, mysuru, 1)
	assert.Equal(t, "donor-2", mysuru[0].Entity.DonorOrgID)
}

func testRequestQuery(t *testing.T, store ports.Store) {
	ctx := context.Background()
	first, err := store.Requests().Create(ctx, NewRequest(t, "ngo-1", "rice"))
	require.NoError(t, err)
	_, err = store.Requests().Create(ctx, NewRequest(t, "ngo-2", "lentils"))
	require.NoError(t, err)
	_, err = store.Requests().CompareAndUpdate(ctx, first.Entity.ID, 1, func(r *domain.Request) error { return r.MarkFulfilled() })
	require.NoError(t, err)

	unfulfilled := false
	open, err := store.Requests().Query(ctx, ports.RequestQuery{Fulfilled: &unfulfilled})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "ngo-2", open[0].Entity.RequestingOrgID)

	mine, err := store.Requests().Query(ctx, ports.RequestQuery{RequestingOrgID: "ngo-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Entity.Fulfilled)
}

func testMatchQuery(t *testing.T, store ports.Store) {
	ctx := context.Background()
	m1, err := store.Matches().Create(ctx, domain.NewMatch("", "0190a0a0-0000-7000-8000-000000000d01", "", "ngo-1", 80, []string{"category: 40.00/40 (food = food)"}))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	_, err = store.Matches().Create(ctx, domain.NewMatch("", "0190a0a0-0000-7000-8000-000000000d02", "0190a0a0-0000-7000-8000-000000000e02", "ngo-2", 55.5, nil))
	require.NoError(t, err)

	old, err := store.Matches().Query(ctx, ports.MatchQuery{Statuses: []domain.MatchStatus{domain.MatchActive}, CreatedBefore: cutoff})
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, m1.Entity.ID, old[0].Entity.ID)
	assert.Equal(t, []string{"category: 40.00/40 (food = food)"}, old[0].Entity.Explanation)
	assert.Equal(t, 80.0, old[0].Entity.Score)

	byDonation, err := store.Matches().Query(ctx, ports.MatchQuery{DonationID: "0190a0a0-0000-7000-8000-000000000d02"})
	require.NoError(t, err)
	require.Len(t, byDonation, 1)
	assert.Equal(t, "ngo-2", byDonation[0].Entity.ClaimantOrgID)

	completedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	done, err := store.Matches().CompareAndUpdate(ctx, m1.Entity.ID, 1, func(m *domain.Match) error { return m.Complete(completedAt) })
	require.NoError(t, err)
	require.NotNil(t, done.Entity.CompletedAt)
	assert.True(t, completedAt.Equal(*done.Entity.CompletedAt))

	completed, err := store.Matches().Query(ctx, ports.MatchQuery{Statuses: []domain.MatchStatus{domain.MatchCompleted}, ClaimantOrgID: "ngo-1"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
}

func testOneLiveMatch(t *testing.T, store ports.Store) {
	ctx := context.Background()
	const donationID = "0190a0a0-0000-7000-8000-000000000d10"
	first, err := store.Matches().Create(ctx, domain.NewMatch("", donationID, "", "ngo-1", 70, nil))
	require.NoError(t, err)

	_, err = store.Matches().Create(ctx, domain.NewMatch("", donationID, "", "ngo-2", 70, nil))
	require.ErrorIs(t, err, ports.ErrConflict)

	_, err = store.Matches().CompareAndUpdate(ctx, first.Entity.ID, 1, func(m *domain.Match) error { return m.Cancel(time.Now().UTC()) })
	require.NoError(t, err)

	_, err = store.Matches().Create(ctx, domain.NewMatch("", donationID, "", "ngo-2", 65, nil))
	require.NoError(t, err)
}
