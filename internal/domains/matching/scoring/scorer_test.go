package scoring

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

type stubOracle struct {
	value float64
	err   error
	calls int
}

func (s *stubOracle) Similarity(context.Context, string, string) (float64, error) {
	s.calls++
	return s.value, s.err
}

func exampleDonation() *domain.Donation {
	return &domain.Donation{
		ID:          "d-1",
		DonorOrgID:  "donor-1",
		Category:    domain.CategoryFood,
		Quantity:    "10 boxes",
		Condition:   domain.ConditionNew,
		Description: "10 boxes canned vegetables",
		Origin:      &domain.Location{Lat: 12.97, Lng: 77.59},
		Status:      domain.DonationOpen,
	}
}

func exampleRequest() *domain.Request {
	return &domain.Request{
		ID:              "r-1",
		RequestingOrgID: "ngo-1",
		Category:        domain.CategoryFood,
		Quantity:        "a few crates",
		Urgency:         domain.UrgencyHigh,
		Description:     "need canned vegetables",
		Location:        &domain.Location{Lat: 12.98, Lng: 77.60},
	}
}

func criterion(t *testing.T, res Result, name string) Criterion {
	t.Helper()
	for _, c := range res.Criteria {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("criterion %s missing", name)
	return Criterion{}
}

func TestScore_ExampleScenario(t *testing.T) {
	s := MustNew(DefaultConfig())
	res := s.Score(context.Background(), exampleDonation(), exampleRequest())

	assert.GreaterOrEqual(t, res.Score, 85.0)
	assert.Equal(t, 40.0, criterion(t, res, CriterionCategory).Points)
	assert.Equal(t, 20.0, criterion(t, res, CriterionUrgency).Points)
	assert.Equal(t, 16.0, criterion(t, res, CriterionDescription).Points)
	assert.InDelta(t, 19.38, criterion(t, res, CriterionProximity).Points, 0.1)
	assert.Equal(t, 0.0, criterion(t, res, CriterionQuantity).Points)
	assert.Len(t, res.Explanation(), 5)
	assert.False(t, res.OracleFallback)
}

func TestScore_Deterministic(t *testing.T) {
	s := MustNew(DefaultConfig())
	first := s.Score(context.Background(), exampleDonation(), exampleRequest())
	for i := 0; i < 20; i++ {
		require.Equal(t, first, s.Score(context.Background(), exampleDonation(), exampleRequest()))
	}
}

func TestScore_CategoryMismatchCapped(t *testing.T) {
	s := MustNew(DefaultConfig())
	r := exampleRequest()
	r.Category = domain.CategoryClothing
	res := s.Score(context.Background(), exampleDonation(), r)

	assert.Equal(t, 30.0, res.Score)
	assert.Equal(t, 0.0, criterion(t, res, CriterionCategory).Points)
	assert.Less(t, criterion(t, res, CriterionCap).Points, 0.0)
}

func TestScore_MissingOptionalData(t *testing.T) {
	s := MustNew(DefaultConfig())
	d := exampleDonation()
	d.Origin = nil
	r := exampleRequest()
	r.Urgency = domain.UrgencyLow
	r.Description = ""
	res := s.Score(context.Background(), d, r)

	assert.Equal(t, 0.0, criterion(t, res, CriterionProximity).Points)
	assert.Equal(t, "location unknown", criterion(t, res, CriterionProximity).Detail)
	assert.Equal(t, 0.0, criterion(t, res, CriterionDescription).Points)
	assert.Equal(t, 0.0, criterion(t, res, CriterionUrgency).Points)
	assert.Equal(t, 40.0, res.Score)
}

func TestScore_QuantityPlausibility(t *testing.T) {
	s := MustNew(DefaultConfig())
	d := exampleDonation()
	r := exampleRequest()
	r.Quantity = "40 cans"
	res := s.Score(context.Background(), d, r)
	assert.Equal(t, 2.5, criterion(t, res, CriterionQuantity).Points)

	r.Quantity = "10"
	res = s.Score(context.Background(), d, r)
	assert.Equal(t, 10.0, criterion(t, res, CriterionQuantity).Points)
}

func TestScore_ProximityBeyondRadius(t *testing.T) {
	s := MustNew(DefaultConfig())
	r := exampleRequest()
	r.Location = &domain.Location{Lat: 28.61, Lng: 77.21}
	res := s.Score(context.Background(), exampleDonation(), r)
	assert.Equal(t, 0.0, criterion(t, res, CriterionProximity).Points)
}

func TestScore_OracleFailureFallsBack(t *testing.T) {
	baseline := MustNew(DefaultConfig()).Score(context.Background(), exampleDonation(), exampleRequest())

	for name, oracle := range map[string]*stubOracle{
		"error":        {err: errors.New("quota exceeded")},
		"nan":          {value: math.NaN()},
		"out of range": {value: 1.7},
	} {
		t.Run(name, func(t *testing.T) {
			s := MustNew(DefaultConfig(), WithOracle(oracle))
			res := s.Score(context.Background(), exampleDonation(), exampleRequest())
			assert.Equal(t, baseline.Score, res.Score)
			assert.True(t, res.OracleFallback)
			assert.Equal(t, 1, oracle.calls)
		})
	}
}

func TestScore_OracleModes(t *testing.T) {
	augment := MustNew(DefaultConfig(), WithOracle(&stubOracle{value: 0.95}))
	res := augment.Score(context.Background(), exampleDonation(), exampleRequest())
	assert.Equal(t, 19.0, criterion(t, res, CriterionDescription).Points)

	low := MustNew(DefaultConfig(), WithOracle(&stubOracle{value: 0.1}))
	res = low.Score(context.Background(), exampleDonation(), exampleRequest())
	assert.Equal(t, 16.0, criterion(t, res, CriterionDescription).Points)

	cfg := DefaultConfig()
	cfg.OracleMode = OracleReplace
	replace := MustNew(cfg, WithOracle(&stubOracle{value: 0.1}))
	res = replace.Score(context.Background(), exampleDonation(), exampleRequest())
	assert.Equal(t, 2.0, criterion(t, res, CriterionDescription).Points)
}

func TestTokenSet_Normalization(t *testing.T) {
	set := tokenSet("Need CANNED vegetables, 24 boxes & Ｆｏｏｄ-bank supplies!")
	assert.Contains(t, set, "canned")
	assert.Contains(t, set, "vegetable")
	assert.Contains(t, set, "box")
	assert.Contains(t, set, "food")
	assert.Contains(t, set, "supply")
	assert.NotContains(t, set, "need")
	assert.NotContains(t, set, "24")
}

func TestLeadingNumber(t *testing.T) {
	v, ok := leadingNumber("12.5 kg rice")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = leadingNumber("a dozen")
	assert.False(t, ok)
	_, ok = leadingNumber("0 items")
	assert.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Urgency = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxRadiusKm = 0
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadProfile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxRadiusKm: 25\noracleTimeout: 500ms\nweights:\n  category: 50\n"), 0o600))

	cfg, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.MaxRadiusKm)
	assert.Equal(t, 500*time.Millisecond, cfg.OracleTimeout)
	assert.Equal(t, 50.0, cfg.Weights.Category)
	assert.Equal(t, 20.0, cfg.Weights.Urgency)
	assert.Equal(t, 30.0, cfg.CategoryMismatchCap)

	require.NoError(t, os.WriteFile(path, []byte("oracleMode: guess\n"), 0o600))
	_, err = LoadProfile(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
