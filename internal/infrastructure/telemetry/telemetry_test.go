package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/xerocraft/backend/internal/infrastructure/config"
)

type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

// restoreGlobals puts the otel globals back after setup replaced them.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp, lp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), global.GetLoggerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		global.SetLoggerProvider(lp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:       true,
		SamplingRatio: 1,
		ServiceName:   "xerocraft-test",
		LogsEnabled:   true,
	}
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{}, "dev", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	assert.False(t, p.ZapCore().Enabled(zapcore.ErrorLevel))
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_ExportsSpansAndLogs(t *testing.T) {
	restoreGlobals(t)
	spans := tracetest.NewInMemoryExporter()
	logs := &recordingExporter{}

	p, err := setup(enabledConfig(), "1.2.3", exporters{
		spans:   spans,
		metrics: sdkmetric.NewManualReader(),
		logs:    logs,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, p.Enabled())

	ctx := context.Background()
	_, span := otel.Tracer("test").Start(ctx, "migrate books")
	span.End()
	zap.New(p.ZapCore()).Info("Applied migration")

	require.NoError(t, p.ForceFlush(ctx))

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "migrate books", got[0].Name)
	name, ok := got[0].Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "xerocraft-test", name.AsString())
	version, ok := got[0].Resource.Set().Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	assert.Contains(t, logs.Bodies(), "Applied migration")
	assert.NoError(t, p.Shutdown(ctx))
}

func TestSetup_WithoutLogExport(t *testing.T) {
	restoreGlobals(t)
	cfg := enabledConfig()
	cfg.LogsEnabled = false

	p, err := setup(cfg, "dev", exporters{
		spans:   tracetest.NewInMemoryExporter(),
		metrics: sdkmetric.NewManualReader(),
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.ZapCore().Enabled(zapcore.ErrorLevel))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_SamplingRatio(t *testing.T) {
	restoreGlobals(t)
	cfg := enabledConfig()
	cfg.SamplingRatio = 0
	spans := tracetest.NewInMemoryExporter()

	p, err := setup(cfg, "dev", exporters{spans: spans, metrics: sdkmetric.NewManualReader()}, zap.NewNop())
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	assert.Empty(t, spans.GetSpans())
}
