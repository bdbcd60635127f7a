package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	Profile string
	Limit   int
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoreOptions{}

	cmd := &cobra.Command{
		Use:   "score <fixture.yaml>",
		Short: "Rank every donation/request pair of a fixture",
		Long: `Load a YAML fixture into an in-memory store and run the candidate generator
over it, printing the ranked pairs with their per-criterion explanation.

Useful for tuning a scoring profile before rolling it out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), rootOpts, opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "YAML scoring profile (defaults to the stock weighting)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n candidates (0 = all)")

	return cmd
}

func runScore(ctx context.Context, rootOpts *RootOptions, opts *ScoreOptions, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fixture, err := LoadFixture(path)
	if err != nil {
		return err
	}
	cfg := scoring.DefaultConfig()
	if opts.Profile != "" {
		if cfg, err = scoring.LoadProfile(opts.Profile); err != nil {
			return err
		}
	}
	scorer, err := scoring.New(cfg)
	if err != nil {
		return err
	}

	set, err := scoreFixture(ctx, fixture, scorer, opts.Limit)
	if err != nil {
		return err
	}
	if rootOpts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toReport(set))
	}
	return writeReport(out, set)
}

// scoreFixture registers the fixture through the matching service so ranking and
// tie-breaking are exactly those of the running engine.
func scoreFixture(ctx context.Context, fixture *Fixture, scorer *scoring.Scorer, limit int) (*types.CandidateSet, error) {
	ids := make([]string, 0, len(fixture.Donations)+len(fixture.Requests))
	for _, d := range fixture.Donations {
		ids = append(ids, d.ID)
	}
	for _, r := range fixture.Requests {
		ids = append(ids, r.ID)
	}
	next := 0
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	store.WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	})
	store.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	service := application.NewService(store, scorer, application.WithCandidateBounds(types.Bounds{
		MaxDonations: len(fixture.Donations),
		MaxRequests:  len(fixture.Requests),
	}))

	for _, d := range fixture.Donations {
		caller := domain.Caller{OrgID: d.Donor, Role: domain.RoleDonor}
		_, err := service.RegisterDonation(ctx, caller, types.RegisterDonationInput{
			Category:    d.Category,
			Quantity:    d.Quantity,
			Condition:   d.Condition,
			Description: d.Description,
			City:        d.City,
			Location:    toLocationInput(d.Location),
		})
		if err != nil {
			return nil, fmt.Errorf("donation %s: %w", d.ID, err)
		}
	}
	for _, r := range fixture.Requests {
		caller := domain.Caller{OrgID: r.Org, Role: domain.RoleRecipientOrg}
		_, err := service.RegisterRequest(ctx, caller, types.RegisterRequestInput{
			Category:    r.Category,
			Quantity:    r.Quantity,
			Urgency:     r.Urgency,
			Description: r.Description,
			City:        r.City,
			Location:    toLocationInput(r.Location),
		})
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", r.ID, err)
		}
	}
	return service.GenerateCandidates(ctx, types.CandidateScope{Limit: limit})
}

func toLocationInput(l *FixtureLocation) *types.LocationInput {
	if l == nil {
		return nil
	}
	return &types.LocationInput{Lat: l.Lat, Lng: l.Lng}
}

type candidateReport struct {
	DonationID  string              `json:"donationId"`
	RequestID   string              `json:"requestId"`
	Score       float64             `json:"score"`
	Explanation []scoring.Criterion `json:"explanation"`
}

type scoreReport struct {
	Candidates          []candidateReport `json:"candidates"`
	Truncated           bool              `json:"truncated"`
	DonationsConsidered int               `json:"donationsConsidered"`
	RequestsConsidered  int               `json:"requestsConsidered"`
}

func toReport(set *types.CandidateSet) scoreReport {
	r := scoreReport{
		Candidates:          make([]candidateReport, 0, len(set.Candidates)),
		Truncated:           set.Truncated,
		DonationsConsidered: set.DonationsConsidered,
		RequestsConsidered:  set.RequestsConsidered,
	}
	for _, c := range set.Candidates {
		r.Candidates = append(r.Candidates, candidateReport(c))
	}
	return r
}

func writeReport(out io.Writer, set *types.CandidateSet) error {
	w := &errWriter{w: out}
	w.printf("candidates: %d (donations %d, requests %d, truncated %t)\n",
		len(set.Candidates), set.DonationsConsidered, set.RequestsConsidered, set.Truncated)
	for i, c := range set.Candidates {
		w.printf("\n#%d %s -> %s score=%s\n", i+1, c.DonationID, c.RequestID, num(c.Score))
		for _, crit := range c.Explanation {
			w.printf("  %s %s/%s %s\n", crit.Name, num(crit.Points), num(crit.Max), crit.Detail)
		}
	}
	return w.err
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
