package api

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config carries environment-driven settings for the API and worker processes.
type Config struct {
	Port string

	StoreDriver       string
	PostgresDSN       string
	SQLitePath        string
	DynamoTablePrefix string
	DynamoEndpoint    string
	AWSRegion         string

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	JWTSecret string

	OracleURL      string
	OracleTimeout  time.Duration
	OracleMode     string
	ScoringProfile string
	MaxRadiusKm    float64

	CandidateMaxDonations int
	CandidateMaxRequests  int
	CandidateRegionScoped bool
	CompleteRetryLimit    int

	SweepMaxAge  time.Duration
	EventLogSize int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:                  envDefault("PORT", "8080"),
		StoreDriver:           strings.ToLower(envDefault("STORE_DRIVER", "")),
		PostgresDSN:           strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		SQLitePath:            envDefault("SQLITE_PATH", "matching.db"),
		DynamoTablePrefix:     strings.TrimSpace(os.Getenv("DYNAMODB_TABLE_PREFIX")),
		DynamoEndpoint:        strings.TrimSpace(os.Getenv("DYNAMODB_ENDPOINT")),
		AWSRegion:             envDefault("AWS_REGION", "us-east-1"),
		TemporalAddress:       envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace:     envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:      isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		JWTSecret:             strings.TrimSpace(os.Getenv("JWT_SECRET")),
		OracleURL:             strings.TrimSpace(os.Getenv("ORACLE_URL")),
		OracleMode:            strings.ToLower(strings.TrimSpace(os.Getenv("ORACLE_MODE"))),
		ScoringProfile:        strings.TrimSpace(os.Getenv("SCORING_PROFILE")),
		CandidateMaxDonations: application.DefaultMaxDonations,
		CandidateMaxRequests:  application.DefaultMaxRequests,
		CandidateRegionScoped: isTruthy(os.Getenv("CANDIDATE_REGION_SCOPED")),
		CompleteRetryLimit:    application.DefaultRetryLimit,
		SweepMaxAge:           72 * time.Hour,
		EventLogSize:          512,
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverMemory
		if cfg.PostgresDSN != "" {
			cfg.StoreDriver = DriverPostgres
		}
	}
	switch cfg.StoreDriver {
	case DriverMemory, DriverPostgres, DriverSQLite, DriverDynamoDB:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, sqlite, dynamodb")
	}
	if cfg.OracleMode != "" && cfg.OracleMode != string(scoring.OracleAugment) && cfg.OracleMode != string(scoring.OracleReplace) {
		return Config{}, fmt.Errorf("ORACLE_MODE must be augment or replace")
	}

	var err error
	ints := []struct {
		key  string
		dest *int
	}{
		{"CANDIDATE_MAX_DONATIONS", &cfg.CandidateMaxDonations},
		{"CANDIDATE_MAX_REQUESTS", &cfg.CandidateMaxRequests},
		{"COMPLETE_RETRY_LIMIT", &cfg.CompleteRetryLimit},
		{"EVENT_LOG_SIZE", &cfg.EventLogSize},
	}
	for _, v := range ints {
		if err = positiveInt(v.key, v.dest); err != nil {
			return Config{}, err
		}
	}
	var timeoutMs int
	if err = positiveInt("ORACLE_TIMEOUT_MS", &timeoutMs); err != nil {
		return Config{}, err
	}
	cfg.OracleTimeout = time.Duration(timeoutMs) * time.Millisecond

	var sweepHours float64
	if err = positiveFloat("SWEEP_MAX_AGE_HOURS", &sweepHours); err != nil {
		return Config{}, err
	}
	if sweepHours > 0 {
		cfg.SweepMaxAge = time.Duration(sweepHours * float64(time.Hour))
	}
	if err = positiveFloat("MATCH_MAX_RADIUS_KM", &cfg.MaxRadiusKm); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Scoring resolves the scoring configuration: the YAML profile when set, then env overrides.
func (c Config) Scoring() (scoring.Config, error) {
	sc := scoring.DefaultConfig()
	if c.ScoringProfile != "" {
		loaded, err := scoring.LoadProfile(c.ScoringProfile)
		if err != nil {
			return scoring.Config{}, err
		}
		sc = loaded
	}
	if c.OracleMode != "" {
		sc.OracleMode = scoring.OracleMode(c.OracleMode)
	}
	if c.OracleTimeout > 0 {
		sc.OracleTimeout = c.OracleTimeout
	}
	if c.MaxRadiusKm > 0 {
		sc.MaxRadiusKm = c.MaxRadiusKm
	}
	if err := sc.Validate(); err != nil {
		return scoring.Config{}, err
	}
	return sc, nil
}

// Bounds returns the candidate generation limits.
func (c Config) Bounds() types.Bounds {
	return types.Bounds{
		MaxDonations: c.CandidateMaxDonations,
		MaxRequests:  c.CandidateMaxRequests,
		RegionScoped: c.CandidateRegionScoped,
	}
}

func positiveInt(key string, dest *int) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fmt.Errorf("%s must be a positive integer", key)
	}
	*dest = v
	return nil
}

func positiveFloat(key string, dest *float64) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return errors.New(key + " must be a positive number")
	}
	*dest = v
	return nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
