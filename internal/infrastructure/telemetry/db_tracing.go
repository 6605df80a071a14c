package telemetry

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/infrastructure/config"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
)

// MigrationKey tags statement spans run while a ledger migration is applied.
const MigrationKey = attribute.Key("ledger.migration")

const (
	annotateCallback = "xerocraft:annotate"
	startCallback    = "xerocraft:start"
	startKey         = "xerocraft:statement_start"
)

// TraceDB gives every statement on db a client span through otelgorm. Spans
// also carry the migration being applied, if any, and slow statements are
// flagged with db.slow_query. Bind values are masked unless DBLogFullSQL is
// set.
func TraceDB(db *gorm.DB, cfg config.TelemetryConfig, tp trace.TracerProvider, log *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		log.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithTracerProvider(tp),
		otelgorm.WithDBName(db.Dialector.Name()),
	}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	a := annotator{slow: cfg.DBSlowQueryThresh}
	cb := db.Callback()
	var result error
	// The annotator must run between gorm's own callback and otelgorm's
	// after hook, which ends the span.
	for _, err := range []error{
		cb.Create().Before("otel:before:create").Register(startCallback, markStart),
		cb.Create().After("gorm:create").Before("otel:after:create").Register(annotateCallback, a.annotate),
		cb.Query().Before("otel:before:select").Register(startCallback, markStart),
		cb.Query().After("gorm:query").Before("otel:after:select").Register(annotateCallback, a.annotate),
		cb.Update().Before("otel:before:update").Register(startCallback, markStart),
		cb.Update().After("gorm:update").Before("otel:after:update").Register(annotateCallback, a.annotate),
		cb.Delete().Before("otel:before:delete").Register(startCallback, markStart),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register(annotateCallback, a.annotate),
		cb.Row().Before("otel:before:row").Register(startCallback, markStart),
		cb.Row().After("gorm:row").Before("otel:after:row").Register(annotateCallback, a.annotate),
		cb.Raw().Before("otel:before:raw").Register(startCallback, markStart),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register(annotateCallback, a.annotate),
	} {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return fmt.Errorf("register span callbacks: %w", result)
	}

	log.Info("Database tracing enabled",
		zap.String("dialect", db.Dialector.Name()),
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", cfg.DBSlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
}

type annotator struct {
	slow time.Duration
}

func (a annotator) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if m := logger.GetMigration(ctx); m != "" {
		span.SetAttributes(MigrationKey.String(m))
	}
	if kind := logger.StatementKind(db.Statement.SQL.String()); kind != "" {
		span.SetAttributes(attribute.String("db.operation", kind))
	}

	v, ok := db.InstanceGet(startKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); a.slow > 0 && elapsed > a.slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", a.slow.Milliseconds()),
		))
	}
}
