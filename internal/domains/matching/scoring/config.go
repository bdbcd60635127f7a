package scoring

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OracleMode controls how an oracle similarity combines with token overlap.
type OracleMode string

const (
	// OracleAugment keeps the larger of the oracle and token-overlap similarity.
	OracleAugment OracleMode = "augment"
	// OracleReplace uses the oracle similarity whenever it is usable.
	OracleReplace OracleMode = "replace"
)

// Weights holds the maximum points each criterion can contribute.
type Weights struct {
	Category    float64 `yaml:"category"`
	Urgency     float64 `yaml:"urgency"`
	Description float64 `yaml:"description"`
	Proximity   float64 `yaml:"proximity"`
	Quantity    float64 `yaml:"quantity"`
}

// Config is fixed at construction; the scorer never mutates it.
type Config struct {
	Weights             Weights       `yaml:"weights"`
	CategoryMismatchCap float64       `yaml:"categoryMismatchCap"`
	MaxRadiusKm         float64       `yaml:"maxRadiusKm"`
	OracleMode          OracleMode    `yaml:"oracleMode"`
	OracleTimeout       time.Duration `yaml:"oracleTimeout"`
}

// DefaultConfig returns the stock weighting: category 40, urgency 20,
// description 20, proximity 20 within 50 km, quantity 10.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Category:    40,
			Urgency:     20,
			Description: 20,
			Proximity:   20,
			Quantity:    10,
		},
		CategoryMismatchCap: 30,
		MaxRadiusKm:         50,
		OracleMode:          OracleAugment,
		OracleTimeout:       2 * time.Second,
	}
}

var ErrInvalidConfig = errors.New("invalid scoring configuration")

// Validate checks that the configuration can produce scores within [0,100].
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"category":    w.Category,
		"urgency":     w.Urgency,
		"description": w.Description,
		"proximity":   w.Proximity,
		"quantity":    w.Quantity,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if w.Category+w.Urgency+w.Description+w.Proximity+w.Quantity <= 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	}
	if c.CategoryMismatchCap < 0 || c.CategoryMismatchCap > 100 {
		return fmt.Errorf("%w: categoryMismatchCap must be within [0,100]", ErrInvalidConfig)
	}
	if c.MaxRadiusKm <= 0 {
		return fmt.Errorf("%w: maxRadiusKm must be positive", ErrInvalidConfig)
	}
	switch c.OracleMode {
	case OracleAugment, OracleReplace:
	default:
		return fmt.Errorf("%w: oracleMode must be augment or replace", ErrInvalidConfig)
	}
	if c.OracleTimeout < 0 {
		return fmt.Errorf("%w: oracleTimeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadProfile reads a YAML scoring profile. Fields absent from the file keep their defaults.
func LoadProfile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
