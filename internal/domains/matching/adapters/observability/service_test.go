package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/memory"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

type harness struct {
	svc    *application.Service
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) (*harness, func() *Service) {
	t.Helper()
	h := &harness{
		svc:    application.NewService(memory.NewStore(), nil),
		spans:  tracetest.NewSpanRecorder(),
		reader: sdkmetric.NewManualReader(),
		logs:   &bytes.Buffer{},
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	logger := slog.New(slog.NewJSONHandler(h.logs, nil))
	return h, func() *Service {
		return New(h.svc, WithTracer(tp.Tracer(tracerName)), WithMeter(mp.Meter(tracerName)), WithLogger(logger)).(*Service)
	}
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestDecorator_ClaimRaceIsTracedAndCounted(t *testing.T) {
	h, build := newHarness(t)
	svc := build()
	ctx := context.Background()
	donor := domain.Caller{OrgID: "donor-1", Role: domain.RoleDonor}

	donation, err := svc.RegisterDonation(ctx, donor, types.RegisterDonationInput{
		Category: "books", Quantity: "12", Condition: "used", Description: "school textbooks",
	})
	require.NoError(t, err)

	_, err = svc.Claim(ctx, domain.Caller{OrgID: "ngo-a", Role: domain.RoleRecipientOrg}, types.ClaimInput{DonationID: donation.Entity.ID})
	require.NoError(t, err)
	_, err = svc.Claim(ctx, domain.Caller{OrgID: "ngo-b", Role: domain.RoleRecipientOrg}, types.ClaimInput{DonationID: donation.Entity.ID})
	require.ErrorIs(t, err, application.ErrAlreadyClaimed)

	assert.Equal(t, int64(1), counterValue(t, h.reader, "matching.claims"))
	assert.Equal(t, int64(1), counterValue(t, h.reader, "matching.claim_conflicts"))
	assert.Equal(t, int64(1), counterValue(t, h.reader, "matching.registrations"))

	ended := h.spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "MatchingService.Claim", ended[2].Name())
	assert.Equal(t, codes.Error, ended[2].Status().Code)
	assert.Contains(t, h.logs.String(), "claim rejected")
}

func TestDecorator_PassesThroughErrors(t *testing.T) {
	_, build := newHarness(t)
	svc := build()

	_, err := svc.GetDonation(context.Background(), "missing")
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestFanOut_JoinsErrors(t *testing.T) {
	log := memory.NewEventLog(4)
	boom := errors.New("broker down")
	fan := FanOut{log, publisherFunc(func(context.Context, ...domain.Event) error { return boom })}

	err := fan.Publish(context.Background(), domain.DonationCancelled{DonationID: "d1"})
	require.ErrorIs(t, err, boom)

	recent, err := log.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestEventLogger_WritesEventName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewEventLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, logger.Publish(context.Background(), domain.MatchCompleted{MatchID: "m1", DonationID: "d1"}))
	assert.Contains(t, buf.String(), `"event":"matching.match.completed"`)
	assert.Contains(t, buf.String(), `"matchId":"m1"`)
}

type publisherFunc func(ctx context.Context, events ...domain.Event) error

func (f publisherFunc) Publish(ctx context.Context, events ...domain.Event) error {
	return f(ctx, events...)
}
