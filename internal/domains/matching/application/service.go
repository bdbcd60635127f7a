package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/scoring"
)

const (
	DefaultMaxDonations       = 200
	DefaultMaxRequests        = 200
	DefaultRetryLimit         = 3
	DefaultScoringConcurrency = 8
)

var errMissingID = errors.New("identifier is required")

// Service orchestrates the matching use cases: registration, suggestions,
// claim arbitration and the post-claim lifecycle.
type Service struct {
	store              ports.Store
	scorer             *scoring.Scorer
	publisher          ports.EventPublisher
	logger             *slog.Logger
	now                func() time.Time
	newID              func() string
	bounds             types.Bounds
	scoringConcurrency int
	retryLimit         int
}

type Option func(*Service)

// WithEventPublisher receives lifecycle events after each committed write.
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger records best-effort failures such as event publishing or compensation.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for completion and cancellation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides match id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithCandidateBounds limits the candidate generator. Non-positive maxima keep the defaults.
func WithCandidateBounds(b types.Bounds) Option {
	return func(s *Service) {
		if b.MaxDonations > 0 {
			s.bounds.MaxDonations = b.MaxDonations
		}
		if b.MaxRequests > 0 {
			s.bounds.MaxRequests = b.MaxRequests
		}
		s.bounds.RegionScoped = b.RegionScoped
	}
}

// WithScoringConcurrency bounds the number of pairs scored in parallel.
func WithScoringConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scoringConcurrency = n
		}
	}
}

// WithRetryLimit bounds the re-read/retry loops used after a claim has been decided.
func WithRetryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryLimit = n
		}
	}
}

// NewService wires the matching service. A nil scorer falls back to the default weighting.
func NewService(store ports.Store, scorer *scoring.Scorer, opts ...Option) *Service {
	if scorer == nil {
		scorer = scoring.MustNew(scoring.DefaultConfig())
	}
	s := &Service{
		store:  store,
		scorer: scorer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
		bounds: types.Bounds{
			MaxDonations: DefaultMaxDonations,
			MaxRequests:  DefaultMaxRequests,
		},
		scoringConcurrency: DefaultScoringConcurrency,
		retryLimit:         DefaultRetryLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterDonation validates and stores a donor's offer in the open state.
func (s *Service) RegisterDonation(ctx context.Context, caller domain.Caller, input types.RegisterDonationInput) (*ports.DonationProjection, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	if caller.Role != domain.RoleDonor {
		return nil, fmt.Errorf("%w: only donors register donations", ErrForbidden)
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, invalid("category", err)
	}
	condition, err := domain.ParseCondition(input.Condition)
	if err != nil {
		return nil, invalid("condition", err)
	}
	if strings.TrimSpace(input.Quantity) == "" {
		return nil, invalid("quantity", domain.ErrEmptyQuantity)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, invalid("description", domain.ErrEmptyDescription)
	}
	donation, err := domain.NewDonation(caller.OrgID, category, input.Quantity, condition, input.Description)
	if err != nil {
		return nil, mapError(err)
	}
	if err := donation.PlaceAt(input.City, input.Location.ToDomain()); err != nil {
		return nil, invalid("location", err)
	}
	saved, err := s.store.Donations().Create(ctx, donation)
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.DonationRegistered{
		BaseEvent:  domain.BaseEvent{Timestamp: saved.Metadata.CreatedAt},
		DonationID: saved.Entity.ID,
		DonorOrgID: saved.Entity.DonorOrgID,
		Category:   saved.Entity.Category,
		City:       saved.Entity.City,
	})
	return saved, nil
}

// RegisterRequest validates and stores a recipient organization's need.
func (s *Service) RegisterRequest(ctx context.Context, caller domain.Caller, input types.RegisterRequestInput) (*ports.RequestProjection, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	if caller.Role != domain.RoleRecipientOrg {
		return nil, fmt.Errorf("%w: only recipient organizations register requests", ErrForbidden)
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, invalid("category", err)
	}
	urgency, err := domain.ParseUrgency(input.Urgency)
	if err != nil {
		return nil, invalid("urgency", err)
	}
	if strings.TrimSpace(input.Quantity) == "" {
		return nil, invalid("quantity", domain.ErrEmptyQuantity)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, invalid("description", domain.ErrEmptyDescription)
	}
	request, err := domain.NewRequest(caller.OrgID, category, input.Quantity, urgency, input.Description)
	if err != nil {
		return nil, mapError(err)
	}
	if err := request.PlaceAt(input.City, input.Location.ToDomain()); err != nil {
		return nil, invalid("location", err)
	}
	saved, err := s.store.Requests().Create(ctx, request)
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.RequestRegistered{
		BaseEvent:       domain.BaseEvent{Timestamp: saved.Metadata.CreatedAt},
		RequestID:       saved.Entity.ID,
		RequestingOrgID: saved.Entity.RequestingOrgID,
		Category:        saved.Entity.Category,
		Urgency:         saved.Entity.Urgency,
	})
	return saved, nil
}

func (s *Service) GetDonation(ctx context.Context, id string) (*ports.DonationProjection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("donationId", errMissingID)
	}
	result, err := s.store.Donations().Get(ctx, id)
	return result, mapError(err)
}

func (s *Service) GetRequest(ctx context.Context, id string) (*ports.RequestProjection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("requestId", errMissingID)
	}
	result, err := s.store.Requests().Get(ctx, id)
	return result, mapError(err)
}

func (s *Service) GetMatch(ctx context.Context, id string) (*ports.MatchProjection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("matchId", errMissingID)
	}
	result, err := s.store.Matches().Get(ctx, id)
	return result, mapError(err)
}

// ListDonations backs the donor dashboard and the per-city donation feed.
func (s *Service) ListDonations(ctx context.Context, input types.ListDonationsInput) ([]*ports.DonationProjection, error) {
	statuses := make([]domain.DonationStatus, 0, len(input.Statuses))
	for _, raw := range input.Statuses {
		status, err := domain.ParseDonationStatus(raw)
		if err != nil {
			return nil, invalid("status", err)
		}
		statuses = append(statuses, status)
	}
	if input.Limit < 0 {
		return nil, invalid("limit", errors.New("limit must not be negative"))
	}
	result, err := s.store.Donations().Query(ctx, ports.DonationQuery{
		Statuses:   statuses,
		DonorOrgID: strings.TrimSpace(input.DonorOrgID),
		City:       domain.NormalizeCity(input.City),
		Limit:      input.Limit,
	})
	return result, mapError(err)
}

func (s *Service) ListRequests(ctx context.Context, input types.ListRequestsInput) ([]*ports.RequestProjection, error) {
	if input.Limit < 0 {
		return nil, invalid("limit", errors.New("limit must not be negative"))
	}
	result, err := s.store.Requests().Query(ctx, ports.RequestQuery{
		Fulfilled:       input.Fulfilled,
		RequestingOrgID: strings.TrimSpace(input.RequestingOrgID),
		City:            domain.NormalizeCity(input.City),
		Limit:           input.Limit,
	})
	return result, mapError(err)
}

func (s *Service) ListMatches(ctx context.Context, input types.ListMatchesInput) ([]*ports.MatchProjection, error) {
	statuses := make([]domain.MatchStatus, 0, len(input.Statuses))
	for _, raw := range input.Statuses {
		status, err := domain.ParseMatchStatus(raw)
		if err != nil {
			return nil, invalid("status", err)
		}
		statuses = append(statuses, status)
	}
	if input.Limit < 0 {
		return nil, invalid("limit", errors.New("limit must not be negative"))
	}
	result, err := s.store.Matches().Query(ctx, ports.MatchQuery{
		DonationID:    strings.TrimSpace(input.DonationID),
		RequestID:     strings.TrimSpace(input.RequestID),
		ClaimantOrgID: strings.TrimSpace(input.ClaimantOrgID),
		Statuses:      statuses,
		CreatedBefore: input.CreatedBefore,
		Limit:         input.Limit,
	})
	return result, mapError(err)
}

// FulfillRequestManually lets the owning organization mark its request as satisfied
// outside the engine. Repeated calls are no-ops.
func (s *Service) FulfillRequestManually(ctx context.Context, caller domain.Caller, requestID string) (*ports.RequestProjection, error) {
	if err := caller.Validate(); err != nil {
		return nil, mapError(err)
	}
	if strings.TrimSpace(requestID) == "" {
		return nil, invalid("requestId", errMissingID)
	}
	current, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, mapError(err)
	}
	if current.Entity.RequestingOrgID != caller.OrgID {
		return nil, fmt.Errorf("%w: only the requesting organization may fulfil request %s", ErrForbidden, requestID)
	}
	updated, err := retryUpdate(ctx, s.store.Requests(), requestID, s.retryLimit, func(r *domain.Request) error {
		return r.MarkFulfilled()
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyFulfilled):
		result, getErr := s.store.Requests().Get(ctx, requestID)
		return result, mapError(getErr)
	case err != nil:
		return nil, mapError(err)
	}
	s.publish(ctx, domain.RequestFulfilled{
		BaseEvent: domain.BaseEvent{Timestamp: updated.Metadata.UpdatedAt},
		RequestID: requestID,
		Manual:    true,
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, events ...domain.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish matching events",
			slog.Int("events", len(events)), slog.String("error", err.Error()))
	}
}

var _ ports.Service = (*Service)(nil)
