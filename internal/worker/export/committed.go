// Package export holds worker handlers reacting to committed export batches.
package export

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/messaging"
	exportsvc "github.com/Additional-Code/florex/internal/service/export"
	"github.com/Additional-Code/florex/internal/worker"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/florex/worker/export")

// Module registers export-related worker handlers.
var Module = fx.Module("worker_export",
	fx.Provide(
		fx.Annotate(
			NewCommittedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// CacheWarmer loads a batch detail into the cache.
type CacheWarmer interface {
	WarmCache(ctx context.Context, id int64) error
}

// NewCommittedHandler warms the batch detail cache after each commit so the
// first registry read is served from cache.
func NewCommittedHandler(svc *exportsvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:     cfg.Messaging.Kafka.Topic,
		EventType: exportsvc.EventTypeCommitted,
		Handler:   committedHandler(svc, logger),
	}
}

func committedHandler(warmer CacheWarmer, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.exports.committed", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event exportsvc.CommittedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode export committed", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.Int64("export.id", event.ExportID))

		if err := warmer.WarmCache(ctx, event.ExportID); err != nil {
			// A batch that no longer resolves will never resolve; drop the message.
			if errorbank.IsKind(err, errorbank.KindNotFound) {
				logger.Warn("export committed for unknown batch", zap.Int64("exportacion_id", event.ExportID))
				return nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "warm cache failed")
			return err
		}

		logger.Info("export committed event processed",
			zap.String("event_id", event.EventID),
			zap.Int64("exportacion_id", event.ExportID),
			zap.Int("pedidos", len(event.OrderIDs)),
		)
		return nil
	}
}
