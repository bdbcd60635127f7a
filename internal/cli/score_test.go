package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScore_TextGolden(t *testing.T) {
	out, err := execute(t, "score", "testdata/fixtures/pantry.yaml")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "score_pantry", []byte(out))
}

func TestScore_JSONLimit(t *testing.T) {
	out, err := execute(t, "--format", "json", "score", "--limit", "2", "testdata/fixtures/pantry.yaml")
	require.NoError(t, err)

	var report scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "d-rice", report.Candidates[0].DonationID)
	assert.Equal(t, "r-kitchen", report.Candidates[0].RequestID)
	assert.InDelta(t, 93, report.Candidates[0].Score, 0.001)
	assert.Equal(t, "d-coats", report.Candidates[1].DonationID)
	assert.Equal(t, "r-shelter", report.Candidates[1].RequestID)
	assert.Equal(t, 2, report.DonationsConsidered)
	assert.False(t, report.Truncated)
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing fixture", []string{"score", "testdata/fixtures/nope.yaml"}, "read fixture"},
		{"duplicate ids", []string{"score", "testdata/fixtures/duplicate.yaml"}, "duplicate id"},
		{"missing profile", []string{"score", "--profile", "testdata/nope.yaml", "testdata/fixtures/pantry.yaml"}, "nope.yaml"},
		{"negative limit", []string{"score", "--limit", "-1", "testdata/fixtures/pantry.yaml"}, "limit"},
		{"no args", []string{"score"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
