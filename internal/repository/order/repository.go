package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/florex/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when a transition finds the order in an unexpected status.
	ErrStatusConflict = errors.New("order status conflict")
)

// ExportFilter selects candidate orders for an export.
type ExportFilter struct {
	Start           time.Time
	End             *time.Time
	ExcludeExported bool
}

// Bounds returns the half-open [from, to) interval covered by the filter.
// Without an end date the filter matches the start day only.
func (f ExportFilter) Bounds() (time.Time, time.Time) {
	from := truncateDay(f.Start)
	last := from
	if f.End != nil {
		last = truncateDay(*f.End)
	}
	return from, last.AddDate(0, 0, 1)
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order with its lines and assorted items in one transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.code", order.Code),
		attribute.Int("order.lines", len(order.Lines)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		// Lines go one by one so every dialect reports the generated id
		// needed by the assorted sub-lines.
		for _, line := range order.Lines {
			line.OrderID = order.ID
			if _, err := tx.NewInsert().Model(line).Exec(ctx); err != nil {
				return err
			}
			for _, item := range line.Assorted {
				item.LineID = line.ID
				if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ExistsByCode reports whether an order with the given code exists.
func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ExistsByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	exists, err := r.reader.NewSelect().Model((*entity.Order)(nil)).Where("o.codigo = ?", code).Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return exists, err
}

// GetByID fetches an order with client and expanded lines.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Relation("Client").Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}

	if err := Expand(ctx, r.reader, []*entity.Order{order}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "expand failed")
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves an order to status `to` when it is currently in one of `from`.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from []entity.OrderStatus, to entity.OrderStatus) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(to)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("estado = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("estado IN (?)", bun.In(from)).
		Where("exportacion_id IS NULL").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		exists, err := r.writer.NewSelect().Model((*entity.Order)(nil)).Where("o.id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// ListForExport returns candidate orders for an export with full expansion.
//
// With ExcludeExported only confirmed orders without a batch qualify; otherwise
// confirmed and exported orders are both returned.
func (r *Repository) ListForExport(ctx context.Context, filter ExportFilter) ([]*entity.Order, error) {
	from, to := filter.Bounds()
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListForExport", trace.WithAttributes(
		attribute.String("filter.from", from.Format(time.DateOnly)),
		attribute.String("filter.to", to.Format(time.DateOnly)),
		attribute.Bool("filter.exclude_exported", filter.ExcludeExported),
	))
	defer span.End()

	orders := make([]*entity.Order, 0)
	q := r.reader.NewSelect().
		Model(&orders).
		Relation("Client").
		Where("o.fecha >= ?", from).
		Where("o.fecha < ?", to)
	if filter.ExcludeExported {
		q = q.Where("o.estado = ?", entity.OrderStatusConfirmed).Where("o.exportacion_id IS NULL")
	} else {
		q = q.Where("o.estado IN (?)", bun.In([]entity.OrderStatus{entity.OrderStatusConfirmed, entity.OrderStatusExported}))
	}
	q = q.OrderExpr("o.fecha ASC, o.codigo ASC, o.id ASC")

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	if err := Expand(ctx, r.reader, orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "expand failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// ListByExport returns the orders linked to an export batch with full expansion.
func (r *Repository) ListByExport(ctx context.Context, exportID int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByExport", trace.WithAttributes(attribute.Int64("export.id", exportID)))
	defer span.End()

	orders := make([]*entity.Order, 0)
	err := r.reader.NewSelect().
		Model(&orders).
		Relation("Client").
		Where("o.exportacion_id = ?", exportID).
		OrderExpr("o.codigo ASC, o.id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	if err := Expand(ctx, r.reader, orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "expand failed")
		return nil, err
	}
	return orders, nil
}

// ListInRange returns orders dated within [from, to) with their client, without lines.
func (r *Repository) ListInRange(ctx context.Context, from, to time.Time) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListInRange")
	defer span.End()

	orders := make([]*entity.Order, 0)
	err := r.reader.NewSelect().
		Model(&orders).
		Relation("Client").
		Where("o.fecha >= ?", from).
		Where("o.fecha < ?", to).
		OrderExpr("o.fecha ASC, o.id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// LockEligible returns, in ascending order, the subset of ids that are
// confirmed and not linked to any export. On dialects that support it the
// matching rows are locked until db's transaction ends.
func (r *Repository) LockEligible(ctx context.Context, db bun.IDB, ids []int64) ([]int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.LockEligible", trace.WithAttributes(attribute.Int("orders.requested", len(ids))))
	defer span.End()

	eligible := make([]int64, 0, len(ids))
	if len(ids) == 0 {
		return eligible, nil
	}

	q := db.NewSelect().
		Model((*entity.Order)(nil)).
		Column("o.id").
		Where("o.id IN (?)", bun.In(ids)).
		Where("o.estado = ?", entity.OrderStatusConfirmed).
		Where("o.exportacion_id IS NULL").
		OrderExpr("o.id ASC")
	switch db.Dialect().Name() {
	case dialect.PG, dialect.MySQL:
		q = q.For("UPDATE")
	}

	if err := q.Scan(ctx, &eligible); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return eligible, nil
}

// MarkExported links ids to exportID and flags them EXPORTADO. Only orders that
// are still confirmed and unexported are touched; the number of updated rows is
// returned so callers can detect concurrent claims.
func (r *Repository) MarkExported(ctx context.Context, db bun.IDB, exportID int64, ids []int64) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkExported", trace.WithAttributes(
		attribute.Int64("export.id", exportID),
		attribute.Int("orders.requested", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	res, err := db.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("estado = ?", entity.OrderStatusExported).
		Set("exportacion_id = ?", exportID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Where("estado = ?", entity.OrderStatusConfirmed).
		Where("exportacion_id IS NULL").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
