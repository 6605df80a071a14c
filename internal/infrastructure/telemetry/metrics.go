package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/xerocraft/backend/ledger"

// PendingCounter reports how many ledger migrations are not applied yet.
type PendingCounter interface {
	Pending(ctx context.Context) (int, error)
}

// RegisterLedgerMetrics exports ledger_pending_migrations, read from ledger at
// every collection. A failed read skips the observation.
func RegisterLedgerMetrics(mp metric.MeterProvider, ledger PendingCounter, log *zap.Logger) error {
	meter := mp.Meter(meterName)
	pending, err := meter.Int64ObservableGauge(
		"ledger_pending_migrations",
		metric.WithDescription("Migrations in the graph that are not recorded as applied"),
		metric.WithUnit("{migration}"),
	)
	if err != nil {
		return fmt.Errorf("create pending migrations gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := ledger.Pending(ctx)
		if err != nil {
			log.Warn("Pending migrations unavailable for metrics", zap.Error(err))
			return nil
		}
		o.ObserveInt64(pending, int64(n))
		return nil
	}, pending)
	if err != nil {
		return fmt.Errorf("register pending migrations callback: %w", err)
	}
	return nil
}
