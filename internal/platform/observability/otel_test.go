package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, LogLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, LogLevel(""))
	assert.Equal(t, slog.LevelInfo, LogLevel("verbose"))
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("SERVICE_VERSION", "")
	t.Setenv("OTEL_TRACES_EXPORTER", "Stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")

	s, err := SettingsFromEnv("matching-api")
	require.NoError(t, err)
	assert.Equal(t, "matching-api", s.ServiceName)
	assert.Equal(t, "dev", s.ServiceVersion)
	assert.Equal(t, "staging", s.Environment)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, ExporterStdout, s.Exporter)
	assert.InDelta(t, 0.25, s.SampleRatio, 1e-9)
	assert.False(t, s.OTLPInsecure)
}

func TestSettingsFromEnv_Rejects(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "zipkin")
	_, err := SettingsFromEnv("svc")
	require.ErrorContains(t, err, "OTEL_TRACES_EXPORTER")

	t.Setenv("OTEL_TRACES_EXPORTER", "none")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
	_, err = SettingsFromEnv("svc")
	require.ErrorContains(t, err, "OTEL_TRACES_SAMPLER_ARG")
}

func TestInitWithSettings_LogsWithServiceAttributes(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var out bytes.Buffer
	instruments, shutdown, err := InitWithSettings(context.Background(), Settings{
		ServiceName: "matching-worker",
		Environment: "test",
		LogLevel:    slog.LevelInfo,
		LogOutput:   &out,
		Exporter:    ExporterNone,
		SampleRatio: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := instruments.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	instruments.Logger.Debug("hidden")
	instruments.Logger.Info("ready")
	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "ready", line["msg"])
	assert.Equal(t, "matching-worker", line["service"])
	assert.Equal(t, "test", line["env"])
}

func TestInstrumentsFallBackWhenNil(t *testing.T) {
	var instruments *Instruments
	require.NotNil(t, instruments.Tracer("test"))
	meter := instruments.Meter("test")
	counter, err := meter.Int64Counter("noop")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
