package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

const tracerName = "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/observability/service"

// Service decorates the matching port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func callerAttrs(caller domain.Caller) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("caller.org_id", caller.OrgID),
		attribute.String("caller.role", string(caller.Role)),
	}
}

func (s *Service) RegisterDonation(ctx context.Context, caller domain.Caller, input types.RegisterDonationInput) (*ports.DonationProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.RegisterDonation",
		append(callerAttrs(caller), attribute.String("donation.category", input.Category))...)
	defer span.End()

	s.logInfo(ctx, "registering donation", slog.String("org_id", caller.OrgID), slog.String("category", input.Category))
	result, err := s.inner.RegisterDonation(ctx, caller, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register donation", slog.String("org_id", caller.OrgID))
	}
	s.metrics.recordRegistration(ctx, "donation")
	span.SetAttributes(attribute.String("donation.id", result.Entity.ID))
	s.logInfo(ctx, "donation registered", slog.String("donation.id", result.Entity.ID))
	return result, nil
}

func (s *Service) RegisterRequest(ctx context.Context, caller domain.Caller, input types.RegisterRequestInput) (*ports.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.RegisterRequest",
		append(callerAttrs(caller),
			attribute.String("request.category", input.Category),
			attribute.String("request.urgency", input.Urgency))...)
	defer span.End()

	s.logInfo(ctx, "registering request", slog.String("org_id", caller.OrgID), slog.String("category", input.Category))
	result, err := s.inner.RegisterRequest(ctx, caller, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register request", slog.String("org_id", caller.OrgID))
	}
	s.metrics.recordRegistration(ctx, "request")
	span.SetAttributes(attribute.String("request.id", result.Entity.ID))
	s.logInfo(ctx, "request registered", slog.String("request.id", result.Entity.ID))
	return result, nil
}

func (s *Service) GetDonation(ctx context.Context, id string) (*ports.DonationProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.GetDonation", attribute.String("donation.id", id))
	defer span.End()

	result, err := s.inner.GetDonation(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load donation", slog.String("donation.id", id))
	}
	return result, nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (*ports.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.GetRequest", attribute.String("request.id", id))
	defer span.End()

	result, err := s.inner.GetRequest(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load request", slog.String("request.id", id))
	}
	return result, nil
}

func (s *Service) GetMatch(ctx context.Context, id string) (*ports.MatchProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.GetMatch", attribute.String("match.id", id))
	defer span.End()

	result, err := s.inner.GetMatch(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load match", slog.String("match.id", id))
	}
	return result, nil
}

func (s *Service) ListDonations(ctx context.Context, input types.ListDonationsInput) ([]*ports.DonationProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.ListDonations", attribute.StringSlice("donation.statuses.requested", input.Statuses))
	defer span.End()

	result, err := s.inner.ListDonations(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list donations", slog.Any("statuses", input.Statuses))
	}
	span.SetAttributes(attribute.Int("donation.result.count", len(result)))
	return result, nil
}

func (s *Service) ListRequests(ctx context.Context, input types.ListRequestsInput) ([]*ports.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.ListRequests")
	defer span.End()

	result, err := s.inner.ListRequests(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list requests")
	}
	span.SetAttributes(attribute.Int("request.result.count", len(result)))
	return result, nil
}

func (s *Service) ListMatches(ctx context.Context, input types.ListMatchesInput) ([]*ports.MatchProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.ListMatches", attribute.StringSlice("match.statuses.requested", input.Statuses))
	defer span.End()

	result, err := s.inner.ListMatches(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list matches")
	}
	span.SetAttributes(attribute.Int("match.result.count", len(result)))
	return result, nil
}

// SuggestMatches ranks counterparts for one record.
func (s *Service) SuggestMatches(ctx context.Context, input types.SuggestInput) (*types.CandidateSet, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.SuggestMatches",
		attribute.String("donation.id", input.DonationID),
		attribute.String("request.id", input.RequestID))
	defer span.End()

	result, err := s.inner.SuggestMatches(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to suggest matches",
			slog.String("donation.id", input.DonationID), slog.String("request.id", input.RequestID))
	}
	s.annotateCandidates(span, result)
	return result, nil
}

// GenerateCandidates ranks the bounded cross-product.
func (s *Service) GenerateCandidates(ctx context.Context, scope types.CandidateScope) (*types.CandidateSet, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.GenerateCandidates")
	defer span.End()

	result, err := s.inner.GenerateCandidates(ctx, scope)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to generate candidates")
	}
	s.annotateCandidates(span, result)
	if result.Truncated {
		s.logInfo(ctx, "candidate generation truncated",
			slog.Int("max_donations", result.Bounds.MaxDonations),
			slog.Int("max_requests", result.Bounds.MaxRequests))
	}
	return result, nil
}

// Claim arbitrates a claim and records wins and lost races.
func (s *Service) Claim(ctx context.Context, caller domain.Caller, input types.ClaimInput) (*types.ClaimResult, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.Claim",
		append(callerAttrs(caller),
			attribute.String("donation.id", input.DonationID),
			attribute.String("request.id", input.RequestID))...)
	defer span.End()

	s.logInfo(ctx, "claiming donation", slog.String("donation.id", input.DonationID), slog.String("org_id", caller.OrgID))
	result, err := s.inner.Claim(ctx, caller, input)
	if err != nil {
		if errors.Is(err, application.ErrAlreadyClaimed) {
			s.metrics.recordClaimConflict(ctx)
		}
		return nil, s.handleError(ctx, span, err, "claim rejected",
			slog.String("donation.id", input.DonationID), slog.String("kind", application.KindOf(err)))
	}
	s.metrics.recordClaim(ctx, result.Score)
	s.recordWarnings(ctx, span, result.Warnings)
	span.SetAttributes(attribute.String("match.id", result.MatchID), attribute.Float64("match.score", result.Score))
	s.logInfo(ctx, "donation claimed",
		slog.String("donation.id", result.DonationID),
		slog.String("match.id", result.MatchID),
		slog.Float64("score", result.Score))
	return result, nil
}

// Complete finalizes a match.
func (s *Service) Complete(ctx context.Context, caller domain.Caller, matchID string) (*types.CompleteResult, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.Complete", append(callerAttrs(caller), attribute.String("match.id", matchID))...)
	defer span.End()

	s.logInfo(ctx, "completing match", slog.String("match.id", matchID))
	result, err := s.inner.Complete(ctx, caller, matchID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to complete match",
			slog.String("match.id", matchID), slog.String("kind", application.KindOf(err)))
	}
	s.metrics.recordCompletion(ctx)
	s.logInfo(ctx, "match completed", slog.String("match.id", matchID), slog.String("donation.id", result.DonationID))
	return result, nil
}

// Cancel releases a match or withdraws a donation.
func (s *Service) Cancel(ctx context.Context, caller domain.Caller, input types.CancelInput) (*types.CancelResult, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.Cancel",
		append(callerAttrs(caller),
			attribute.String("donation.id", input.DonationID),
			attribute.String("match.id", input.MatchID))...)
	defer span.End()

	s.logInfo(ctx, "cancelling", slog.String("donation.id", input.DonationID), slog.String("match.id", input.MatchID))
	result, err := s.inner.Cancel(ctx, caller, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel",
			slog.String("donation.id", input.DonationID),
			slog.String("match.id", input.MatchID),
			slog.String("kind", application.KindOf(err)))
	}
	target := "donation"
	if input.MatchID != "" {
		target = "match"
	}
	s.metrics.recordCancellation(ctx, target)
	s.recordWarnings(ctx, span, result.Warnings)
	s.logInfo(ctx, "cancelled",
		slog.String("target", target),
		slog.String("donation.id", result.DonationID),
		slog.Bool("donation.reopened", result.DonationReopened))
	return result, nil
}

func (s *Service) FulfillRequestManually(ctx context.Context, caller domain.Caller, requestID string) (*ports.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "MatchingService.FulfillRequestManually", append(callerAttrs(caller), attribute.String("request.id", requestID))...)
	defer span.End()

	result, err := s.inner.FulfillRequestManually(ctx, caller, requestID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to fulfil request", slog.String("request.id", requestID))
	}
	s.logInfo(ctx, "request fulfilled manually", slog.String("request.id", requestID))
	return result, nil
}

func (s *Service) annotateCandidates(span trace.Span, set *types.CandidateSet) {
	if set == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("candidates.count", len(set.Candidates)),
		attribute.Int("candidates.donations_considered", set.DonationsConsidered),
		attribute.Int("candidates.requests_considered", set.RequestsConsidered),
		attribute.Bool("candidates.truncated", set.Truncated),
	)
}

func (s *Service) recordWarnings(ctx context.Context, span trace.Span, warnings []types.Warning) {
	for _, w := range warnings {
		s.metrics.recordWarning(ctx, w.Kind)
		span.AddEvent("warning", trace.WithAttributes(attribute.String("warning.kind", w.Kind)))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "operation committed with warning",
			slog.String("kind", w.Kind), slog.String("message", w.Message))
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelError
	// losing a race or a bad input is the caller's problem, not ours
	switch application.KindOf(err) {
	case application.KindAlreadyClaimed, application.KindValidation, application.KindNotFound,
		application.KindForbidden, application.KindInvalidTransition, application.KindRequestAlreadyFulfilled:
		level = slog.LevelInfo
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", application.KindOf(err)))
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	claims         metric.Int64Counter
	claimConflicts metric.Int64Counter
	claimScores    metric.Float64Histogram
	completions    metric.Int64Counter
	cancellations  metric.Int64Counter
	registrations  metric.Int64Counter
	warnings       metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	claims, _ := m.Int64Counter("matching.claims", metric.WithDescription("Number of winning claims"))
	claimConflicts, _ := m.Int64Counter("matching.claim_conflicts", metric.WithDescription("Number of claims that lost the race"))
	claimScores, _ := m.Float64Histogram("matching.claim_score", metric.WithDescription("Compatibility score of winning claims"))
	completions, _ := m.Int64Counter("matching.completions", metric.WithDescription("Number of completed matches"))
	cancellations, _ := m.Int64Counter("matching.cancellations", metric.WithDescription("Number of releases and donation cancellations"))
	registrations, _ := m.Int64Counter("matching.registrations", metric.WithDescription("Number of registered donations and requests"))
	warnings, _ := m.Int64Counter("matching.warnings", metric.WithDescription("Number of partial conflicts reported as warnings"))
	return serviceMetrics{
		claims:         claims,
		claimConflicts: claimConflicts,
		claimScores:    claimScores,
		completions:    completions,
		cancellations:  cancellations,
		registrations:  registrations,
		warnings:       warnings,
	}
}

func (m serviceMetrics) recordClaim(ctx context.Context, score float64) {
	addCounter(ctx, m.claims, 1)
	if m.claimScores != nil {
		m.claimScores.Record(ctx, score)
	}
}

func (m serviceMetrics) recordClaimConflict(ctx context.Context) {
	addCounter(ctx, m.claimConflicts, 1)
}

func (m serviceMetrics) recordCompletion(ctx context.Context) {
	addCounter(ctx, m.completions, 1)
}

func (m serviceMetrics) recordCancellation(ctx context.Context, target string) {
	addCounter(ctx, m.cancellations, 1, attribute.String("cancel.target", target))
}

func (m serviceMetrics) recordRegistration(ctx context.Context, kind string) {
	addCounter(ctx, m.registrations, 1, attribute.String("record.kind", kind))
}

func (m serviceMetrics) recordWarning(ctx context.Context, kind string) {
	addCounter(ctx, m.warnings, 1, attribute.String("warning.kind", kind))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
