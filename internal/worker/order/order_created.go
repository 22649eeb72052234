// Package order holds worker handlers reacting to new sales orders.
package order

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
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/messaging"
	ordersvc "github.com/Additional-Code/florex/internal/service/order"
	"github.com/Additional-Code/florex/internal/worker"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/florex/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderCreatedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Loader reads an order through the service cache.
type Loader interface {
	Get(ctx context.Context, id int64) (*entity.Order, error)
}

// NewOrderCreatedHandler loads every new order once so its expanded view is
// cached before the export preview asks for it.
func NewOrderCreatedHandler(svc *ordersvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:     cfg.Messaging.Kafka.Topic,
		EventType: ordersvc.EventTypeCreated,
		Handler:   createdHandler(svc, logger),
	}
}

func createdHandler(loader Loader, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.created", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event ordersvc.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order created", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.Int64("order.id", event.ID))

		if _, err := loader.Get(ctx, event.ID); err != nil {
			if errorbank.IsKind(err, errorbank.KindNotFound) {
				logger.Warn("order created for unknown order", zap.Int64("id", event.ID))
				return nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
			return err
		}

		logger.Info("order created event processed",
			zap.Int64("id", event.ID),
			zap.String("codigo", event.Code),
			zap.Int64("cliente_id", event.ClientID),
			zap.Int("total_cajas", event.Boxes),
		)
		return nil
	}
}
