package application

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

type pairing struct {
	donation *ports.DonationProjection
	request  *ports.RequestProjection
	result   scoring.Result
}

// SuggestMatches ranks the counterparts of a single donation or request.
func (s *Service) SuggestMatches(ctx context.Context, input types.SuggestInput) (*types.CandidateSet, error) {
	scope := types.CandidateScope{
		DonationID: strings.TrimSpace(input.DonationID),
		RequestID:  strings.TrimSpace(input.RequestID),
		Limit:      input.Limit,
	}
	if (scope.DonationID == "") == (scope.RequestID == "") {
		return nil, invalid("target", errors.New("exactly one of donationId or requestId is required"))
	}
	return s.generate(ctx, scope)
}

// GenerateCandidates scores every eligible (open donation, unfulfilled request) pair
// within the configured bounds, or one side of it when the scope names a record.
func (s *Service) GenerateCandidates(ctx context.Context, scope types.CandidateScope) (*types.CandidateSet, error) {
	scope.DonationID = strings.TrimSpace(scope.DonationID)
	scope.RequestID = strings.TrimSpace(scope.RequestID)
	if scope.DonationID != "" && scope.RequestID != "" {
		return nil, invalid("scope", errors.New("donationId and requestId are mutually exclusive"))
	}
	return s.generate(ctx, scope)
}

func (s *Service) generate(ctx context.Context, scope types.CandidateScope) (*types.CandidateSet, error) {
	if scope.Limit < 0 {
		return nil, invalid("limit", errors.New("limit must not be negative"))
	}
	set := &types.CandidateSet{Candidates: []types.Candidate{}, Bounds: s.bounds}
	unfulfilled := false

	var donations []*ports.DonationProjection
	var requests []*ports.RequestProjection
	switch {
	case scope.DonationID != "":
		donation, err := s.store.Donations().Get(ctx, scope.DonationID)
		if err != nil {
			return nil, mapError(err)
		}
		if donation.Entity.Status != domain.DonationOpen {
			return set, nil
		}
		donations = []*ports.DonationProjection{donation}
		requests, err = s.store.Requests().Query(ctx, ports.RequestQuery{Fulfilled: &unfulfilled, Limit: s.bounds.MaxRequests + 1})
		if err != nil {
			return nil, mapError(err)
		}
	case scope.RequestID != "":
		request, err := s.store.Requests().Get(ctx, scope.RequestID)
		if err != nil {
			return nil, mapError(err)
		}
		if request.Entity.Fulfilled {
			return set, nil
		}
		requests = []*ports.RequestProjection{request}
		donations, err = s.store.Donations().Query(ctx, ports.DonationQuery{
			Statuses: []domain.DonationStatus{domain.DonationOpen},
			Limit:    s.bounds.MaxDonations + 1,
		})
		if err != nil {
			return nil, mapError(err)
		}
	default:
		var err error
		donations, err = s.store.Donations().Query(ctx, ports.DonationQuery{
			Statuses: []domain.DonationStatus{domain.DonationOpen},
			Limit:    s.bounds.MaxDonations + 1,
		})
		if err != nil {
			return nil, mapError(err)
		}
		requests, err = s.store.Requests().Query(ctx, ports.RequestQuery{Fulfilled: &unfulfilled, Limit: s.bounds.MaxRequests + 1})
		if err != nil {
			return nil, mapError(err)
		}
	}

	// queries return oldest first, so the surplus record is the oldest one
	if len(donations) > s.bounds.MaxDonations {
		donations = donations[len(donations)-s.bounds.MaxDonations:]
		set.Truncated = true
	}
	if len(requests) > s.bounds.MaxRequests {
		requests = requests[len(requests)-s.bounds.MaxRequests:]
		set.Truncated = true
	}
	set.DonationsConsidered = len(donations)
	set.RequestsConsidered = len(requests)

	pairs := make([]pairing, 0, len(donations)*len(requests))
	for _, d := range donations {
		for _, r := range requests {
			if s.bounds.RegionScoped && !sameRegion(d.Entity, r.Entity) {
				continue
			}
			pairs = append(pairs, pairing{donation: d, request: r})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scoringConcurrency)
	for i := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pairs[i].result = s.scorer.Score(gctx, pairs[i].donation.Entity, pairs[i].request.Entity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return rankBefore(pairs[i], pairs[j])
	})
	if scope.Limit > 0 && len(pairs) > scope.Limit {
		pairs = pairs[:scope.Limit]
	}
	for _, p := range pairs {
		set.Candidates = append(set.Candidates, types.Candidate{
			DonationID:  p.donation.Entity.ID,
			RequestID:   p.request.Entity.ID,
			Score:       p.result.Score,
			Explanation: p.result.Criteria,
		})
	}
	return set, nil
}

// sameRegion pairs records in the same city. A record without a city is eligible everywhere.
func sameRegion(d *domain.Donation, r *domain.Request) bool {
	if d.City == "" || r.City == "" {
		return true
	}
	return d.City == r.City
}

// rankBefore orders by score, then by older donation, then by older request, with ids
// breaking timestamp ties.
func rankBefore(a, b pairing) bool {
	if a.result.Score != b.result.Score {
		return a.result.Score > b.result.Score
	}
	if da, db := a.donation.Metadata.CreatedAt, b.donation.Metadata.CreatedAt; !da.Equal(db) {
		return da.Before(db)
	}
	if a.donation.Entity.ID != b.donation.Entity.ID {
		return a.donation.Entity.ID < b.donation.Entity.ID
	}
	if ra, rb := a.request.Metadata.CreatedAt, b.request.Metadata.CreatedAt; !ra.Equal(rb) {
		return ra.Before(rb)
	}
	return a.request.Entity.ID < b.request.Entity.ID
}
