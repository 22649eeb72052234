package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/cache"
	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/messaging"
	repo "github.com/Additional-Code/florex/internal/repository/order"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/florex/service/order")

// EventTypeCreated tags messages emitted when an order is stored.
const EventTypeCreated = "order.created"

// Service encapsulates business logic around orders.
type Service struct {
	repo      *repo.Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	publish   bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    logger,
		publisher: p.Publisher,
		publish:   p.Config.Messaging.Enabled,
	}
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("load order failed", zap.Int64("id", id), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return order, nil
}

// Create stores a new draft order. Text fields are upper-cased and amounts
// are recomputed from the lines.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	order, err := in.toEntity()
	if err != nil {
		return nil, err
	}
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("order.code", order.Code)))
	defer span.End()

	exists, err := s.repo.ExistsByCode(ctx, order.Code)
	if err != nil {
		s.logger.Error("check order code failed", zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	if exists {
		return nil, errorbank.Conflict("order code already exists", errorbank.WithDetail("codigo", order.Code))
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("create order failed", zap.String("codigo", order.Code), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}

	s.publishCreated(ctx, order)
	return order, nil
}

// Confirm moves a draft order to CONFIRMADO, making it eligible for export.
func (s *Service) Confirm(ctx context.Context, id int64) (*entity.Order, error) {
	return s.transition(ctx, id, []entity.OrderStatus{entity.OrderStatusDraft}, entity.OrderStatusConfirmed)
}

// Void cancels a draft or confirmed order. Exported orders cannot be voided.
func (s *Service) Void(ctx context.Context, id int64) (*entity.Order, error) {
	return s.transition(ctx, id, []entity.OrderStatus{entity.OrderStatusDraft, entity.OrderStatusConfirmed}, entity.OrderStatusVoided)
}

func (s *Service) transition(ctx context.Context, id int64, from []entity.OrderStatus, to entity.OrderStatus) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(to)),
	))
	defer span.End()

	err := s.repo.UpdateStatus(ctx, id, from, to)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, errorbank.NotFound("order not found", errorbank.WithDetail("id", id))
	case errors.Is(err, repo.ErrStatusConflict):
		return nil, errorbank.Conflict(fmt.Sprintf("order cannot move to %s", to), errorbank.WithDetail("id", id))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("order status update failed", zap.Int64("id", id), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
			s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return s.Get(ctx, id)
}

func (s *Service) publishCreated(ctx context.Context, order *entity.Order) {
	if !s.publish || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		ID:        order.ID,
		Code:      order.Code,
		ClientID:  order.ClientID,
		Status:    string(order.Status),
		Boxes:     order.Boxes(),
		CreatedAt: order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	headers := map[string]string{messaging.HeaderEventType: EventTypeCreated}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload, headers); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, cacheKey(order.ID), order, s.cacheTTL)
}

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"codigo"`
	ClientID  int64     `json:"cliente_id"`
	Status    string    `json:"estado"`
	Boxes     int       `json:"total_cajas"`
	CreatedAt time.Time `json:"created_at"`
}
