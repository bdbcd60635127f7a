package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oracleclient "github.com/Apurer/go-gin-donation-matcher/internal/clients/http/oracle"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

func newDonationAndRequest(t *testing.T) (*domain.Donation, *domain.Request) {
	t.Helper()
	d, err := domain.NewDonation("donor-1", domain.CategoryFood, "10 boxes", domain.ConditionGood, "canned vegetables")
	require.NoError(t, err)
	r, err := domain.NewRequest("ngo-1", domain.CategoryFood, "10 boxes", domain.UrgencyHigh, "tinned greens")
	require.NoError(t, err)
	return d, r
}

func TestOracle_AugmentsScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"similarity":1}`))
	}))
	defer srv.Close()
	client, err := oracleclient.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	scorer := scoring.MustNew(scoring.DefaultConfig(), scoring.WithOracle(New(client, nil)))
	d, r := newDonationAndRequest(t)
	res := scorer.Score(context.Background(), d, r)
	assert.False(t, res.OracleFallback)

	plain := scoring.MustNew(scoring.DefaultConfig()).Score(context.Background(), d, r)
	assert.Greater(t, res.Score, plain.Score)
}

func TestOracle_FailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := oracleclient.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	scorer := scoring.MustNew(scoring.DefaultConfig(), scoring.WithOracle(New(client, nil)))
	d, r := newDonationAndRequest(t)
	res := scorer.Score(context.Background(), d, r)
	assert.True(t, res.OracleFallback)

	plain := scoring.MustNew(scoring.DefaultConfig()).Score(context.Background(), d, r)
	assert.Equal(t, plain.Score, res.Score)
}

func TestOracle_Unconfigured(t *testing.T) {
	var o *Oracle
	_, err := o.Similarity(context.Background(), "a", "b")
	require.Error(t, err)
}
