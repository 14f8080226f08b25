package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/yamhttp/config"
	"github.com/BaSui01/yamhttp/tcp"
)

// telemetryConfig returns a full config with the given telemetry section.
func telemetryConfig(tc config.TelemetryConfig) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Telemetry = tc
	return cfg
}

func initForTest(t *testing.T, tc config.TelemetryConfig) *Providers {
	t.Helper()
	p, err := Init(context.Background(), telemetryConfig(tc), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)
	t.Cleanup(func() {
		// short timeout, no collector running
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

// saveAndRestoreGlobalProviders snapshots the current global OTel providers
// and restores them via t.Cleanup so tests don't leak state.
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p := initForTest(t, config.TelemetryConfig{Enabled: false})

	// Noop providers: both internal fields are nil
	assert.Nil(t, p.tp, "TracerProvider should be nil when disabled")
	assert.Nil(t, p.mp, "MeterProvider should be nil when disabled")
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p := initForTest(t, config.TelemetryConfig{
		Enabled:        true,
		OTLPEndpoint:   "localhost:4317",
		ServiceName:    "yamhttp-test",
		SampleRate:     0.5,
		MetricInterval: time.Minute,
	})

	// Real providers: both internal fields are non-nil
	assert.NotNil(t, p.tp, "TracerProvider should be set when enabled")
	assert.NotNil(t, p.mp, "MeterProvider should be set when enabled")

	// Global providers should be the SDK types (not noop)
	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK, "global TracerProvider should be *sdktrace.TracerProvider")
	assert.True(t, mpIsSDK, "global MeterProvider should be *sdkmetric.MeterProvider")
}

func TestConnectionResource(t *testing.T) {
	cfg := telemetryConfig(config.TelemetryConfig{ServiceName: "edge"})
	cfg.Server.Addr = "[::1]:9443"
	cfg.Server.Dispatch = config.DispatchPoll

	res, err := connectionResource(context.Background(), cfg)
	require.NoError(t, err)

	attrs := res.Set()
	get := func(k string) string {
		v, ok := attrs.Value(attribute.Key(k))
		require.True(t, ok, "missing resource attribute %s", k)
		return v.Emit()
	}
	assert.Equal(t, "edge", get(string(semconv.ServiceNameKey)))
	assert.Equal(t, "dev", get(string(semconv.ServiceVersionKey)))
	assert.NotEmpty(t, get(string(semconv.ServiceInstanceIDKey)))
	assert.Equal(t, "poll", get(string(DispatchModeKey)))
	assert.Equal(t, "::1", get(string(semconv.ServerAddressKey)))
	assert.Equal(t, "9443", get(string(semconv.ServerPortKey)))
}

func TestProviders_Tracer(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	var nilProviders *Providers
	_, span := nilProviders.Tracer(tcp.TracerName).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid(), "noop tracer records nothing")
	span.End()

	p := initForTest(t, config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "yamhttp-tracer-test",
		SampleRate:   1.0,
	})

	_, span = p.Tracer(tcp.TracerName).Start(context.Background(), "connection.handle")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}

func TestProviders_Meter(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	var nilProviders *Providers
	_, err := NewConnectionMetrics(nilProviders.Meter(MeterName))
	require.NoError(t, err)

	p := initForTest(t, config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "yamhttp-meter-test",
		SampleRate:   1.0,
	})
	m, err := NewConnectionMetrics(p.Meter(MeterName))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordAccepted()
		m.RecordResponse(200, 10)
	})
}

func TestProviders_Shutdown_Nil(t *testing.T) {
	// A nil *Providers must not panic on Shutdown.
	var p *Providers
	err := p.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestProviders_Shutdown_Noop(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), telemetryConfig(config.TelemetryConfig{}), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Shutdown on noop providers should return nil
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviders_Shutdown_Real(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), telemetryConfig(config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "yamhttp-shutdown-test",
		SampleRate:   1.0,
	}), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p.tp)
	require.NotNil(t, p.mp)

	// The exporter may return a connection-refused error because no OTLP
	// collector is running; only a bounded, panic-free shutdown is checked.
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		_ = p.Shutdown(ctx)
	})
}

func TestBuildVersion(t *testing.T) {
	v := buildVersion()
	assert.NotEmpty(t, v, "buildVersion should return a non-empty string")
	// In test binaries, debug.ReadBuildInfo typically returns "(devel)",
	// so buildVersion falls back to "dev".
	assert.Equal(t, "dev", v)
}