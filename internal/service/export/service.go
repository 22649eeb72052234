package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/cache"
	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/messaging"
	"github.com/Additional-Code/florex/internal/observability"
	exportrepo "github.com/Additional-Code/florex/internal/repository/export"
	orderrepo "github.com/Additional-Code/florex/internal/repository/order"
	"github.com/Additional-Code/florex/internal/service/aggregate"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/florex/service/export")

var (
	errIneligible     = errors.New("orders not eligible for export")
	errConcurrentMark = errors.New("orders changed during export")
)

// Preview is a candidate order set together with its rollups.
type Preview struct {
	Orders  []*entity.Order
	Summary aggregate.Result
}

// Committed describes a freshly created batch and the orders it claimed.
type Committed struct {
	Batch    *entity.ExportBatch
	OrderIDs []int64
}

// Page is one page of the export registry.
type Page struct {
	Items      []*entity.ExportBatch
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Service runs the export workflow: candidate selection, preview, atomic
// commit and registry reads.
type Service struct {
	orders    *orderrepo.Repository
	exports   *exportrepo.Repository
	conns     *database.Connections
	cache     cache.Store
	publisher messaging.Client
	logger    *zap.Logger
	cfg       config.Export
	publish   bool
	metrics   *metrics
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders      *orderrepo.Repository
	Exports     *exportrepo.Repository
	Connections *database.Connections
	Cache       cache.Store
	Publisher   messaging.Client
	Config      config.Config
	Logger      *zap.Logger
	Metrics     *observability.Manager `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(meterName)
	if p.Metrics != nil {
		meter = p.Metrics.Meter(meterName)
	}
	m, err := newMetrics(meter)
	if err != nil {
		logger.Warn("export metrics disabled", zap.Error(err))
	}
	return &Service{
		orders:    p.Orders,
		exports:   p.Exports,
		conns:     p.Connections,
		cache:     p.Cache,
		publisher: p.Publisher,
		logger:    logger,
		cfg:       p.Config.Export,
		publish:   p.Config.Messaging.Enabled,
		metrics:   m,
	}
}

// ListOrders returns the orders matching q with their lines fully expanded.
func (s *Service) ListOrders(ctx context.Context, q OrdersQuery) ([]*entity.Order, error) {
	filter, err := q.filter()
	if err != nil {
		return nil, err
	}
	ctx, span := serviceTracer.Start(ctx, "ExportService.ListOrders", trace.WithAttributes(
		attribute.String("filter.start", q.Start),
		attribute.String("filter.end", q.End),
		attribute.Bool("filter.exclude_exported", q.ExcludeExported),
	))
	defer span.End()

	orders, err := s.orders.ListForExport(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("list orders for export failed", zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	return orders, nil
}

// Preview lists the unexported orders matching q and summarises them.
func (s *Service) Preview(ctx context.Context, q OrdersQuery) (*Preview, error) {
	q.ExcludeExported = true
	orders, err := s.ListOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Preview{Orders: orders, Summary: aggregate.Summarize(orders)}, nil
}

// Commit creates an export batch and links every requested order to it.
//
// Either every order moves to EXPORTADO under the new batch or nothing is
// written. Orders that are missing, not confirmed or already exported abort
// the commit with a conflict naming them.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*Committed, error) {
	if err := in.validate(); err != nil {
		s.metrics.recordFailure(ctx, "validation")
		return nil, err
	}
	date, _ := time.Parse(time.DateOnly, in.Date)
	ids := uniqueIDs(in.OrderIDs)

	ctx, span := serviceTracer.Start(ctx, "ExportService.Commit", trace.WithAttributes(
		attribute.String("export.date", in.Date),
		attribute.Int64("export.user_id", in.UserID),
		attribute.Int("orders.requested", len(ids)),
	))
	defer span.End()

	if s.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommitTimeout)
		defer cancel()
	}

	batch := &entity.ExportBatch{
		Date:      date,
		UserID:    in.UserID,
		Status:    entity.ExportStatusProcessed,
		CreatedAt: time.Now().UTC(),
	}
	var rejected []int64

	err := s.conns.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		eligible, err := s.orders.LockEligible(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(eligible) != len(ids) {
			rejected = missing(ids, eligible)
			return errIneligible
		}
		if err := s.exports.Create(ctx, tx, batch); err != nil {
			return err
		}
		marked, err := s.orders.MarkExported(ctx, tx, batch.ID, ids)
		if err != nil {
			return err
		}
		if marked != len(ids) {
			return fmt.Errorf("%w: marked %d of %d", errConcurrentMark, marked, len(ids))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		if errors.Is(err, errIneligible) {
			s.metrics.recordFailure(ctx, "ineligible")
			s.logger.Info("export rejected ineligible orders", zap.Int64s("pedido_ids", rejected))
			return nil, errorbank.Conflict("some orders cannot be exported",
				errorbank.WithCause(err),
				errorbank.WithDetail("pedido_ids", rejected),
			)
		}
		s.metrics.recordFailure(ctx, "transaction")
		s.logger.Error("export commit failed", zap.Error(err), zap.Int("orders", len(ids)))
		return nil, errorbank.TransactionFailed(err)
	}

	batch.OrderCount = len(ids)
	span.SetAttributes(attribute.Int64("export.id", batch.ID))
	s.metrics.recordCommit(ctx, len(ids))
	s.logger.Info("export committed",
		zap.Int64("exportacion_id", batch.ID),
		zap.String("fecha", in.Date),
		zap.Int("orders", len(ids)),
	)

	s.publishCommitted(ctx, batch, ids)
	return &Committed{Batch: batch, OrderIDs: ids}, nil
}

// List returns one page of the export registry, newest first.
func (s *Service) List(ctx context.Context, p Paging) (*Page, error) {
	p = p.normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	ctx, span := serviceTracer.Start(ctx, "ExportService.List", trace.WithAttributes(
		attribute.Int("page", p.Page),
		attribute.Int("page_size", p.PageSize),
	))
	defer span.End()

	items, total, err := s.exports.List(ctx, p.PageSize, p.offset())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("list exports failed", zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	return &Page{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages(total, p.PageSize),
	}, nil
}

// Get returns a batch with its creator and expanded orders. Batches never
// change after commit, so the detail is served from cache when present.
func (s *Service) Get(ctx context.Context, id int64) (*entity.ExportBatch, error) {
	if id <= 0 {
		return nil, errorbank.Validation("export id must be positive", errorbank.WithDetail("id", id))
	}
	ctx, span := serviceTracer.Start(ctx, "ExportService.Get", trace.WithAttributes(attribute.Int64("export.id", id)))
	defer span.End()

	if batch, err := s.getFromCache(ctx, id); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return batch, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("exports cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	batch, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	if err := s.storeInCache(ctx, batch); err != nil {
		s.logger.Warn("exports cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return batch, nil
}

// WarmCache loads batch id from the store and caches its detail.
func (s *Service) WarmCache(ctx context.Context, id int64) error {
	batch, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.storeInCache(ctx, batch)
}

func (s *Service) load(ctx context.Context, id int64) (*entity.ExportBatch, error) {
	batch, err := s.exports.GetByID(ctx, id)
	if errors.Is(err, exportrepo.ErrNotFound) {
		return nil, errorbank.NotFound("export not found", errorbank.WithDetail("id", id))
	}
	if err != nil {
		s.logger.Error("load export failed", zap.Int64("id", id), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	orders, err := s.orders.ListByExport(ctx, id)
	if err != nil {
		s.logger.Error("load export orders failed", zap.Int64("id", id), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	batch.Orders = orders
	batch.OrderCount = len(orders)
	return batch, nil
}

func (s *Service) publishCommitted(ctx context.Context, batch *entity.ExportBatch, ids []int64) {
	if !s.publish || s.publisher == nil {
		return
	}
	event := CommittedEvent{
		EventID:    uuid.NewString(),
		Type:       EventTypeCommitted,
		ExportID:   batch.ID,
		Date:       batch.Date.Format(time.DateOnly),
		UserID:     batch.UserID,
		OrderIDs:   ids,
		OccurredAt: batch.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal export committed", zap.Error(err))
		return
	}
	key := []byte(strconv.FormatInt(batch.ID, 10))
	headers := map[string]string{messaging.HeaderEventType: EventTypeCommitted}
	if err := s.publisher.Publish(ctx, key, payload, headers); err != nil {
		s.logger.Warn("publish export committed failed", zap.Int64("exportacion_id", batch.ID), zap.Error(err))
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("exports:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.ExportBatch, error) {
	var batch entity.ExportBatch
	if err := cache.GetJSON(ctx, s.cache, cacheKey(id), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *Service) storeInCache(ctx context.Context, batch *entity.ExportBatch) error {
	if batch == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, cacheKey(batch.ID), batch, s.cfg.CacheTTL)
}
