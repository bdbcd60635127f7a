package ports

import (
	"context"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

// Service exposes matching use cases to adapters.
type Service interface {
	RegisterDonation(ctx context.Context, caller domain.Caller, input types.RegisterDonationInput) (*DonationProjection, error)
	RegisterRequest(ctx context.Context, caller domain.Caller, input types.RegisterRequestInput) (*RequestProjection, error)

	GetDonation(ctx context.Context, id string) (*DonationProjection, error)
	GetRequest(ctx context.Context, id string) (*RequestProjection, error)
	GetMatch(ctx context.Context, id string) (*MatchProjection, error)
	ListDonations(ctx context.Context, input types.ListDonationsInput) ([]*DonationProjection, error)
	ListRequests(ctx context.Context, input types.ListRequestsInput) ([]*RequestProjection, error)
	ListMatches(ctx context.Context, input types.ListMatchesInput) ([]*MatchProjection, error)

	SuggestMatches(ctx context.Context, input types.SuggestInput) (*types.CandidateSet, error)
	GenerateCandidates(ctx context.Context, scope types.CandidateScope) (*types.CandidateSet, error)

	Claim(ctx context.Context, caller domain.Caller, input types.ClaimInput) (*types.ClaimResult, error)
	Complete(ctx context.Context, caller domain.Caller, matchID string) (*types.CompleteResult, error)
	Cancel(ctx context.Context, caller domain.Caller, input types.CancelInput) (*types.CancelResult, error)
	FulfillRequestManually(ctx context.Context, caller domain.Caller, requestID string) (*RequestProjection, error)
}
