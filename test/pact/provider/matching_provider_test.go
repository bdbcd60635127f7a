//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-donation-matcher/test/pact"

	matchingserver "github.com/Apurer/go-gin-donation-matcher/go"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	matchingobs "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/observability"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/workflows"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"
)

func TestMatchingProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateNoDonations: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
		pacttest.StateDonationOpen: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedDonation(t)
			}
			return nil, nil
		},
		pacttest.StateClaimable: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedDonation(t)
				app.seedRequest(t)
			}
			return nil, nil
		},
		pacttest.StateDonationClaimed: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedDonation(t)
				app.seedRequest(t)
				app.seedClaim(t)
			}
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp serves a fresh in-memory engine per provider state.
type contractProviderApp struct {
	mu      sync.Mutex
	service *application.Service
	router  http.Handler
	server  *httptest.Server

	idMu sync.Mutex
	ids  []string
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.Lock()
		router := app.router
		app.mu.Unlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	store := memory.NewStore()
	store.WithIDGenerator(a.nextID)
	events := memory.NewEventLog(64)
	service := application.NewService(store, nil,
		application.WithEventPublisher(events),
		application.WithIDGenerator(a.nextID),
	)
	decorated := matchingobs.New(service)
	handlers := matchingserver.ApiHandleFunctions{
		DonationAPI:  matchingserver.NewDonationAPI(decorated),
		RequestAPI:   matchingserver.NewRequestAPI(decorated),
		MatchAPI:     matchingserver.NewMatchAPI(decorated),
		CandidateAPI: matchingserver.NewCandidateAPI(decorated),
		AdminAPI:     matchingserver.NewAdminAPI(events, workflows.NewInlineSweeps(decorated), 72*time.Hour),
	}
	router := gin.New()
	router.Use(gin.Recovery())
	a.router = matchingserver.NewRouterWithGinEngine(router, handlers, matchingserver.Identity(""))
	a.service = service

	a.idMu.Lock()
	a.ids = nil
	a.idMu.Unlock()
}

// nextID hands out queued fixture ids before falling back to random ones.
func (a *contractProviderApp) nextID() string {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	if len(a.ids) > 0 {
		id := a.ids[0]
		a.ids = a.ids[1:]
		return id
	}
	return uuid.NewString()
}

func (a *contractProviderApp) expect(ids ...string) {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	a.ids = append(a.ids, ids...)
}

func (a *contractProviderApp) seedDonation(t testing.TB) {
	t.Helper()
	a.expect(pacttest.DonationID)
	_, err := a.service.RegisterDonation(context.Background(),
		domain.Caller{OrgID: pacttest.DonorOrgID, Role: domain.RoleDonor},
		types.RegisterDonationInput{
			Category:    "food",
			Quantity:    "10 boxes",
			Condition:   "new",
			Description: "10 boxes canned vegetables",
			City:        "Bengaluru",
			Location:    &types.LocationInput{Lat: 12.97, Lng: 77.59},
		})
	require.NoError(t, err)
}

func (a *contractProviderApp) seedRequest(t testing.TB) {
	t.Helper()
	a.expect(pacttest.RequestID)
	_, err := a.service.RegisterRequest(context.Background(),
		domain.Caller{OrgID: pacttest.NGOOrgID, Role: domain.RoleRecipientOrg},
		types.RegisterRequestInput{
			Category:    "food",
			Quantity:    "a few crates",
			Urgency:     "high",
			Description: "need canned vegetables",
			City:        "Bengaluru",
			Location:    &types.LocationInput{Lat: 12.98, Lng: 77.60},
		})
	require.NoError(t, err)
}

func (a *contractProviderApp) seedClaim(t testing.TB) {
	t.Helper()
	a.expect(pacttest.MatchID)
	_, err := a.service.Claim(context.Background(),
		domain.Caller{OrgID: pacttest.NGOOrgID, Role: domain.RoleRecipientOrg},
		types.ClaimInput{DonationID: pacttest.DonationID, RequestID: pacttest.RequestID})
	require.NoError(t, err)
}
