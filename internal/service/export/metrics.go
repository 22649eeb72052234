package export

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Additional-Code/florex/service/export"

type metrics struct {
	committed metric.Int64Counter
	exported  metric.Int64Counter
	failed    metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	committed, err := meter.Int64Counter("florex.exports.committed",
		metric.WithDescription("Export batches committed"))
	if err != nil {
		return nil, err
	}
	exported, err := meter.Int64Counter("florex.exports.orders",
		metric.WithDescription("Orders linked to committed export batches"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("florex.exports.failed",
		metric.WithDescription("Export commits that were rejected or rolled back"))
	if err != nil {
		return nil, err
	}
	return &metrics{committed: committed, exported: exported, failed: failed}, nil
}

func (m *metrics) recordCommit(ctx context.Context, orders int) {
	if m == nil {
		return
	}
	m.committed.Add(ctx, 1)
	m.exported.Add(ctx, int64(orders))
}

func (m *metrics) recordFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
