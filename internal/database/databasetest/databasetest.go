// Package databasetest provides in-memory sqlite databases with the florex
// schema for repository, service and transport tests.
package databasetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/migration"
)

var dbSeq atomic.Int64

// New opens a private in-memory database and applies the embedded sqlite
// migrations to it.
func New(t testing.TB) *database.Connections {
	t.Helper()

	// A single connection keeps the in-memory database alive and serialises writers.
	cfg := config.Config{Database: config.Database{
		Driver:       "sqlite",
		WriterDSN:    fmt.Sprintf("file:florex_test_%d?mode=memory&cache=shared", dbSeq.Add(1)),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}}
	conns, err := database.Open(cfg.Database, nil, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conns.Writer.Close()
	})

	m, err := migration.New(cfg, conns, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))

	return conns
}

// Fixtures holds the master data inserted by Seed.
type Fixtures struct {
	User      *entity.User
	Clients   []*entity.Client
	Family    *entity.Family
	Products  []*entity.Product
	Variants  []*entity.Variant
	Size      *entity.Size
	Packaging *entity.Packaging
	Provider  *entity.Provider
}

// Seed inserts a small, fixed set of master data.
func Seed(t testing.TB, conns *database.Connections) Fixtures {
	t.Helper()
	ctx := context.Background()
	db := conns.Writer

	fx := Fixtures{
		User:      &entity.User{Name: "ANA MORA", Email: "ana@florex.test"},
		Clients:   []*entity.Client{{Name: "BLOEM BV", Agency: "KLM CARGO", Terminal: "AMS"}, {Name: "ANDES FLOWERS", Agency: "AVIANCA", Terminal: "MIA"}},
		Family:    &entity.Family{Name: "ROSAS"},
		Size:      &entity.Size{Name: "60CM"},
		Packaging: &entity.Packaging{Name: "HB"},
		Provider:  &entity.Provider{Name: "FINCA LA ESPERANZA"},
	}

	mustInsert(t, ctx, db, fx.User)
	for _, c := range fx.Clients {
		mustInsert(t, ctx, db, c)
	}
	mustInsert(t, ctx, db, fx.Family)
	mustInsert(t, ctx, db, fx.Size)
	mustInsert(t, ctx, db, fx.Packaging)
	mustInsert(t, ctx, db, fx.Provider)

	fx.Products = []*entity.Product{
		{Name: "ROSA FREEDOM", FamilyID: &fx.Family.ID},
		{Name: "ROSA MONDIAL", FamilyID: &fx.Family.ID},
	}
	for _, p := range fx.Products {
		mustInsert(t, ctx, db, p)
	}

	fx.Variants = []*entity.Variant{
		{ProductID: fx.Products[0].ID, Name: "ROJA"},
		{ProductID: fx.Products[1].ID, Name: "BLANCA"},
	}
	for _, v := range fx.Variants {
		mustInsert(t, ctx, db, v)
	}

	return fx
}

// OrderSpec describes an order inserted by InsertOrder.
type OrderSpec struct {
	Code     string
	Client   *entity.Client
	Date     string
	Status   entity.OrderStatus
	ExportID *int64
	Lines    []*entity.OrderLine
}

// InsertOrder writes an order with its lines, bypassing services.
func InsertOrder(t testing.TB, conns *database.Connections, fx Fixtures, spec OrderSpec) *entity.Order {
	t.Helper()
	ctx := context.Background()

	date, err := time.Parse(time.DateOnly, spec.Date)
	require.NoError(t, err)

	client := spec.Client
	if client == nil {
		client = fx.Clients[0]
	}
	status := spec.Status
	if status == "" {
		status = entity.OrderStatusConfirmed
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Code:      spec.Code,
		ClientID:  client.ID,
		Date:      date,
		Currency:  entity.CurrencyUSD,
		Status:    status,
		ExportID:  spec.ExportID,
		Agency:    client.Agency,
		Terminal:  client.Terminal,
		UserID:    fx.User.ID,
		CreatedAt: now,
		UpdatedAt: now,
		Lines:     spec.Lines,
	}
	for _, line := range order.Lines {
		if line.UnitPrice.IsZero() {
			line.UnitPrice = decimal.NewFromFloat(12.5)
		}
	}
	order.RecomputeTotals()
	mustInsert(t, ctx, conns.Writer, order)

	for _, line := range order.Lines {
		line.OrderID = order.ID
		mustInsert(t, ctx, conns.Writer, line)
		for _, item := range line.Assorted {
			item.LineID = line.ID
			mustInsert(t, ctx, conns.Writer, item)
		}
	}
	return order
}

// InsertExport writes an export batch row directly.
func InsertExport(t testing.TB, conns *database.Connections, fx Fixtures, date string, createdAt time.Time) *entity.ExportBatch {
	t.Helper()

	d, err := time.Parse(time.DateOnly, date)
	require.NoError(t, err)

	batch := &entity.ExportBatch{
		Date:      d,
		UserID:    fx.User.ID,
		Status:    entity.ExportStatusProcessed,
		CreatedAt: createdAt.UTC(),
	}
	mustInsert(t, context.Background(), conns.Writer, batch)
	return batch
}

func mustInsert(t testing.TB, ctx context.Context, db bun.IDB, model any) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Exec(ctx)
	require.NoError(t, err)
}
