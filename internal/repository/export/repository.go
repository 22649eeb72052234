package export

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/florex/repository/export")

// ErrNotFound is returned when an export batch is missing.
var ErrNotFound = errors.New("export not found")

// Repository is the export registry. Batches are only ever inserted.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// Create inserts batch using db, which is expected to be the commit transaction.
func (r *Repository) Create(ctx context.Context, db bun.IDB, batch *entity.ExportBatch) error {
	if batch == nil {
		return errors.New("nil export batch")
	}
	ctx, span := repoTracer.Start(ctx, "ExportRepository.Create", trace.WithAttributes(
		attribute.String("export.date", batch.Date.Format(time.DateOnly)),
		attribute.Int64("export.user_id", batch.UserID),
	))
	defer span.End()

	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(batch).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// List returns one page of batches, newest first, with creator and order
// count, plus the total number of batches.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*entity.ExportBatch, int, error) {
	ctx, span := repoTracer.Start(ctx, "ExportRepository.List", trace.WithAttributes(
		attribute.Int("page.limit", limit),
		attribute.Int("page.offset", offset),
	))
	defer span.End()

	batches := make([]*entity.ExportBatch, 0, limit)
	total, err := r.reader.NewSelect().
		Model(&batches).
		Relation("User").
		OrderExpr("e.fecha DESC, e.created_at DESC, e.id DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}

	if err := r.attachCounts(ctx, batches); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return nil, 0, err
	}
	return batches, total, nil
}

// GetByID fetches a batch with its creator. Orders are loaded by the caller.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.ExportBatch, error) {
	ctx, span := repoTracer.Start(ctx, "ExportRepository.GetByID", trace.WithAttributes(attribute.Int64("export.id", id)))
	defer span.End()

	batch := new(entity.ExportBatch)
	err := r.reader.NewSelect().Model(batch).Relation("User").Where("e.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return batch, nil
}

type orderCount struct {
	ExportID int64 `bun:"exportacion_id"`
	Orders   int   `bun:"pedidos"`
}

func (r *Repository) attachCounts(ctx context.Context, batches []*entity.ExportBatch) error {
	if len(batches) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}

	var counts []orderCount
	err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		Column("o.exportacion_id").
		ColumnExpr("COUNT(*) AS pedidos").
		Where("o.exportacion_id IN (?)", bun.In(ids)).
		Group("o.exportacion_id").
		Scan(ctx, &counts)
	if err != nil {
		return err
	}

	byID := make(map[int64]int, len(counts))
	for _, c := range counts {
		byID[c.ExportID] = c.Orders
	}
	for _, b := range batches {
		b.OrderCount = byID[b.ID]
	}
	return nil
}
