package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a set of donations and requests scored offline by the score command.
type Fixture struct {
	Donations []FixtureDonation `yaml:"donations"`
	Requests  []FixtureRequest  `yaml:"requests"`
}

// FixtureLocation is an optional coordinate pair.
type FixtureLocation struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// FixtureDonation describes one donation; list order stands in for registration order.
type FixtureDonation struct {
	ID          string           `yaml:"id"`
	Donor       string           `yaml:"donor"`
	Category    string           `yaml:"category"`
	Quantity    string           `yaml:"quantity"`
	Condition   string           `yaml:"condition"`
	Description string           `yaml:"description"`
	City        string           `yaml:"city"`
	Location    *FixtureLocation `yaml:"location"`
}

// FixtureRequest describes one request.
type FixtureRequest struct {
	ID          string           `yaml:"id"`
	Org         string           `yaml:"org"`
	Category    string           `yaml:"category"`
	Quantity    string           `yaml:"quantity"`
	Urgency     string           `yaml:"urgency"`
	Description string           `yaml:"description"`
	City        string           `yaml:"city"`
	Location    *FixtureLocation `yaml:"location"`
}

// LoadFixture reads and sanity-checks a YAML fixture.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Donations)+len(f.Requests))
	check := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("fixture %s: every %s needs an id", path, kind)
		}
		if seen[id] {
			return fmt.Errorf("fixture %s: duplicate id %q", path, id)
		}
		seen[id] = true
		return nil
	}
	for _, d := range f.Donations {
		if err := check("donation", d.ID); err != nil {
			return nil, err
		}
	}
	for _, r := range f.Requests {
		if err := check("request", r.ID); err != nil {
			return nil, err
		}
	}
	return &f, nil
}
