//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "donation-matching-api"
	ConsumerName = "ngo-portal"

	StateNoDonations     = "no donations registered"
	StateDonationOpen    = "open donation donation-pact-1 exists"
	StateClaimable       = "open donation donation-pact-1 and request request-pact-1 of ngo-pact exist"
	StateDonationClaimed = "donation donation-pact-1 is claimed by ngo-pact"
)

const (
	DonationID        = "donation-pact-1"
	MissingDonationID = "donation-missing"
	RequestID         = "request-pact-1"
	MatchID           = "match-pact-1"

	DonorOrgID = "donor-pact"
	NGOOrgID   = "ngo-pact"
	RivalOrgID = "ngo-rival"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the NGO portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleDonation is the donation both sides agree on.
func ExampleDonation() map[string]any {
	return map[string]any{
		"category":    "food",
		"quantity":    "10 boxes",
		"condition":   "new",
		"description": "10 boxes canned vegetables",
		"city":        "Bengaluru",
		"location":    map[string]any{"lat": 12.97, "lng": 77.59},
	}
}

// ExampleRequest is the request the NGO claims against.
func ExampleRequest() map[string]any {
	return map[string]any{
		"category":    "food",
		"quantity":    "a few crates",
		"urgency":     "high",
		"description": "need canned vegetables",
		"city":        "Bengaluru",
		"location":    map[string]any{"lat": 12.98, "lng": 77.60},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
