package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func contextWithSpan(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithContext(t *testing.T) {
	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	l, recorded := observed()
	ctx, enriched := WithRequestID(context.Background(), l, "req-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("hello")
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "req-1", recorded.All()[0].ContextMap()["request_id"])
}

func TestWithMigration(t *testing.T) {
	ctx := WithMigration(context.Background(), "books.0037_sale_deposit_date")
	assert.Equal(t, "books.0037_sale_deposit_date", GetMigration(ctx))
	assert.Empty(t, GetMigration(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(contextWithSpan(t)))
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	l, recorded := observed()
	ctx := contextWithSpan(t)
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-9")
	ctx = WithMigration(ctx, "tasks.0042_class_rsvp_period")

	WithLogger(ctx, l).Info("applied")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "tasks.0042_class_rsvp_period", fields["migration"])
}

func TestContextLogger_EmptyContextAddsNothing(t *testing.T) {
	l, recorded := observed()
	WithLogger(context.Background(), l).Warn("plain")

	require.Len(t, recorded.All(), 1)
	assert.Empty(t, recorded.All()[0].Context)
}

func TestContextLogger_UsesLoggerFromContext(t *testing.T) {
	l, recorded := observed()
	ctx := WithContext(context.Background(), l)

	cl := L(ctx).With(zap.String("app", "books"))
	cl.Debug("one")
	cl.Error("two")
	cl.Zap().Info("three")

	entries := recorded.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "books", e.ContextMap()["app"])
	}
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("ignored")
		cl.With(zap.Int("n", 1)).Warn("ignored")
	})
}
