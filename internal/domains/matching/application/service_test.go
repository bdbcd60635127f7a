package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var (
	donorOne = domain.Caller{OrgID: "donor-1", Role: domain.RoleDonor}
	donorTwo = domain.Caller{OrgID: "donor-2", Role: domain.RoleDonor}
	ngoA     = domain.Caller{OrgID: "ngo-a", Role: domain.RoleRecipientOrg}
	ngoB     = domain.Caller{OrgID: "ngo-b", Role: domain.RoleRecipientOrg}
)

// tickingClock advances one second per call so creation order is observable.
func tickingClock() func() time.Time {
	current := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.WithClock(tickingClock())
	return NewService(store, nil, opts...), store
}

func registerDonation(t *testing.T, svc *Service, caller domain.Caller, description string) *ports.DonationProjection {
	t.Helper()
	d, err := svc.RegisterDonation(context.Background(), caller, types.RegisterDonationInput{
		Category:    "food",
		Quantity:    "10 kg",
		Condition:   "good",
		Description: description,
		City:        "Bengaluru",
		Location:    &types.LocationInput{Lat: 12.9716, Lng: 77.5946},
	})
	require.NoError(t, err)
	return d
}

func registerRequest(t *testing.T, svc *Service, caller domain.Caller, description string) *ports.RequestProjection {
	t.Helper()
	r, err := svc.RegisterRequest(context.Background(), caller, types.RegisterRequestInput{
		Category:    "food",
		Quantity:    "10 kg",
		Urgency:     "high",
		Description: description,
		City:        "Bengaluru",
		Location:    &types.LocationInput{Lat: 12.9352, Lng: 77.6245},
	})
	require.NoError(t, err)
	return r
}

func TestRegisterDonation_Success(t *testing.T) {
	svc, _ := newTestService(t)

	d := registerDonation(t, svc, donorOne, "rice bags")

	require.NotEmpty(t, d.Entity.ID)
	assert.Equal(t, domain.DonationOpen, d.Entity.Status)
	assert.Equal(t, "donor-1", d.Entity.DonorOrgID)
	assert.Equal(t, int64(1), d.Metadata.Version)
	assert.Equal(t, "bengaluru", d.Entity.City)
}

func TestRegisterDonation_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	valid := types.RegisterDonationInput{Category: "food", Quantity: "1", Condition: "new", Description: "rice"}

	cases := map[string]func(in *types.RegisterDonationInput){
		"category":    func(in *types.RegisterDonationInput) { in.Category = "fo od!" },
		"condition":   func(in *types.RegisterDonationInput) { in.Condition = "broken" },
		"quantity":    func(in *types.RegisterDonationInput) { in.Quantity = "  " },
		"description": func(in *types.RegisterDonationInput) { in.Description = "" },
		"location":    func(in *types.RegisterDonationInput) { in.Location = &types.LocationInput{Lat: 120, Lng: 0} },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.RegisterDonation(context.Background(), donorOne, in)
			require.ErrorIs(t, err, ErrInvalidInput)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestRegister_RoleChecks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterDonation(ctx, ngoA, types.RegisterDonationInput{Category: "food", Quantity: "1", Condition: "new", Description: "rice"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RegisterRequest(ctx, donorOne, types.RegisterRequestInput{Category: "food", Quantity: "1", Urgency: "low", Description: "rice"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RegisterDonation(ctx, domain.Caller{Role: domain.RoleDonor}, types.RegisterDonationInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetDonation(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.GetMatch(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListDonations_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := registerDonation(t, svc, donorOne, "rice")
	registerDonation(t, svc, donorTwo, "lentils")
	request := registerRequest(t, svc, ngoA, "rice")
	_, err := svc.Claim(ctx, ngoA, types.ClaimInput{DonationID: first.Entity.ID, RequestID: request.Entity.ID})
	require.NoError(t, err)

	open, err := svc.ListDonations(ctx, types.ListDonationsInput{Statuses: []string{"open"}})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "donor-2", open[0].Entity.DonorOrgID)

	mine, err := svc.ListDonations(ctx, types.ListDonationsInput{DonorOrgID: "donor-1", City: "  BENGALURU "})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.DonationMatched, mine[0].Entity.Status)

	_, err = svc.ListDonations(ctx, types.ListDonationsInput{Statuses: []string{"lost"}})
	require.ErrorIs(t, err, ErrInvalidInput)

	unfulfilled := false
	requests, err := svc.ListRequests(ctx, types.ListRequestsInput{Fulfilled: &unfulfilled})
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestFulfillRequestManually(t *testing.T) {
	log := memory.NewEventLog(10)
	svc, _ := newTestService(t, WithEventPublisher(log))
	ctx := context.Background()
	request := registerRequest(t, svc, ngoA, "winter jackets")

	_, err := svc.FulfillRequestManually(ctx, ngoB, request.Entity.ID)
	require.ErrorIs(t, err, ErrForbidden)

	first, err := svc.FulfillRequestManually(ctx, ngoA, request.Entity.ID)
	require.NoError(t, err)
	assert.True(t, first.Entity.Fulfilled)

	again, err := svc.FulfillRequestManually(ctx, ngoA, request.Entity.ID)
	require.NoError(t, err)
	assert.True(t, again.Entity.Fulfilled)
	assert.Equal(t, first.Metadata.Version, again.Metadata.Version)

	events, err := log.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	fulfilled, ok := events[0].(domain.RequestFulfilled)
	require.True(t, ok)
	assert.True(t, fulfilled.Manual)
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	publisher := &failingPublisher{}
	svc, _ := newTestService(t, WithEventPublisher(publisher))

	registerDonation(t, svc, donorOne, "rice")

	assert.Equal(t, 1, publisher.calls)
}

func TestKindOf(t *testing.T) {
	cases := map[error]string{
		nil:                                 "",
		ErrAlreadyClaimed:                   KindAlreadyClaimed,
		fmt.Errorf("x: %w", ErrNotFound):    KindNotFound,
		mapError(ports.ErrStoreUnavailable): KindStoreUnavailable,
		mapError(domain.ErrMatchMismatch):   KindInvalidTransition,
		mapError(domain.ErrInvalidUrgency):  KindValidation,
		ErrPartialCompletionConflict:        KindPartialCompletionConflict,
		ErrPartialFulfillmentConflict:       KindPartialFulfillmentConflict,
		fmt.Errorf("boom"):                  KindInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, KindOf(err), "%v", err)
	}
}
