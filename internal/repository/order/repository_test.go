package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/florex/internal/database/databasetest"
	"github.com/Additional-Code/florex/internal/entity"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func orderCodes(orders []*entity.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Code)
	}
	return out
}

func TestExportFilterBounds(t *testing.T) {
	start := time.Date(2026, 2, 2, 15, 30, 0, 0, time.UTC)

	from, to := ExportFilter{Start: start}.Bounds()
	assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), to)

	end := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	from, to = ExportFilter{Start: start, End: &end}.Bounds()
	assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC), to)
}

func TestListForExport(t *testing.T) {
	ctx := context.Background()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	repo := NewRepository(conns)

	batch := databasetest.InsertExport(t, conns, fx, "2026-02-01", time.Now())

	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-001", Date: "2026-02-02", Status: entity.OrderStatusConfirmed})
	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-002", Date: "2026-02-02", Status: entity.OrderStatusConfirmed})
	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-003", Date: "2026-02-02", Status: entity.OrderStatusDraft})
	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-004", Date: "2026-02-02", Status: entity.OrderStatusExported, ExportID: &batch.ID})
	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-005", Date: "2026-02-03", Status: entity.OrderStatusConfirmed})
	databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-006", Date: "2026-02-02", Status: entity.OrderStatusVoided})

	end := day(t, "2026-02-03")
	tests := []struct {
		name   string
		filter ExportFilter
		want   []string
	}{
		{
			name:   "exact day excluding exported",
			filter: ExportFilter{Start: day(t, "2026-02-02"), ExcludeExported: true},
			want:   []string{"PV-001", "PV-002"},
		},
		{
			name:   "exact day including exported",
			filter: ExportFilter{Start: day(t, "2026-02-02")},
			want:   []string{"PV-001", "PV-002", "PV-004"},
		},
		{
			name:   "inclusive range",
			filter: ExportFilter{Start: day(t, "2026-02-02"), End: &end, ExcludeExported: true},
			want:   []string{"PV-001", "PV-002", "PV-005"},
		},
		{
			name:   "empty day",
			filter: ExportFilter{Start: day(t, "2026-03-01"), ExcludeExported: true},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := repo.ListForExport(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, orderCodes(orders))
		})
	}

	t.Run("repeated calls return identical sets", func(t *testing.T) {
		filter := ExportFilter{Start: day(t, "2026-02-02"), ExcludeExported: true}
		first, err := repo.ListForExport(ctx, filter)
		require.NoError(t, err)
		second, err := repo.ListForExport(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, orderCodes(first), orderCodes(second))
	})
}

func TestCreateAndGetByIDExpandsLines(t *testing.T) {
	ctx := context.Background()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	repo := NewRepository(conns)

	now := time.Now().UTC()
	order := &entity.Order{
		Code:      "PV-100",
		ClientID:  fx.Clients[1].ID,
		Date:      day(t, "2026-02-02"),
		Currency:  entity.CurrencyUSD,
		Status:    entity.OrderStatusDraft,
		UserID:    fx.User.ID,
		CreatedAt: now,
		UpdatedAt: now,
		Lines: []*entity.OrderLine{
			{
				ProductID:   fx.Products[0].ID,
				VariantID:   &fx.Variants[0].ID,
				SizeID:      &fx.Size.ID,
				PackagingID: &fx.Packaging.ID,
				ProviderID:  &fx.Provider.ID,
				Boxes:       4,
				UnitPrice:   decimal.RequireFromString("20"),
			},
			{
				ProductID: fx.Products[1].ID,
				Boxes:     2,
				UnitPrice: decimal.RequireFromString("15.5"),
				Assorted: []*entity.AssortedItem{
					{VariantID: &fx.Variants[1].ID, SizeID: &fx.Size.ID, Stems: 100},
					{VariantID: &fx.Variants[0].ID, Stems: 50},
				},
			},
		},
	}
	order.RecomputeTotals()
	require.NoError(t, repo.Create(ctx, order))
	require.NotZero(t, order.ID)

	exists, err := repo.ExistsByCode(ctx, "PV-100")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByCode(ctx, "PV-404")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Client)
	assert.Equal(t, "ANDES FLOWERS", got.Client.Name)
	require.Len(t, got.Lines, 2)
	assert.True(t, decimal.RequireFromString("111").Equal(got.Total), "total %s", got.Total)

	first := got.Lines[0]
	require.NotNil(t, first.Product)
	require.NotNil(t, first.Product.Family)
	assert.Equal(t, "ROSAS", first.Product.Family.Name)
	require.NotNil(t, first.Variant)
	assert.Equal(t, "ROJA", first.Variant.Name)
	require.NotNil(t, first.Packaging)
	require.NotNil(t, first.Provider)
	assert.Empty(t, first.Assorted)

	second := got.Lines[1]
	assert.Nil(t, second.Variant)
	assert.Nil(t, second.Packaging)
	require.Len(t, second.Assorted, 2)
	assert.Equal(t, 100, second.Assorted[0].Stems)
	require.NotNil(t, second.Assorted[0].Variant)
	assert.Equal(t, "BLANCA", second.Assorted[0].Variant.Name)
	assert.Nil(t, second.Assorted[1].Size)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	repo := NewRepository(conns)

	draft := databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-200", Date: "2026-02-02", Status: entity.OrderStatusDraft})

	err := repo.UpdateStatus(ctx, draft.ID, []entity.OrderStatus{entity.OrderStatusDraft}, entity.OrderStatusConfirmed)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, got.Status)

	err = repo.UpdateStatus(ctx, draft.ID, []entity.OrderStatus{entity.OrderStatusDraft}, entity.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrStatusConflict)

	err = repo.UpdateStatus(ctx, 999, []entity.OrderStatus{entity.OrderStatusDraft}, entity.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLockEligibleAndMarkExported(t *testing.T) {
	ctx := context.Background()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	repo := NewRepository(conns)

	batch := databasetest.InsertExport(t, conns, fx, "2026-02-02", time.Now())
	o1 := databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-301", Date: "2026-02-02"})
	o2 := databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-302", Date: "2026-02-02", Status: entity.OrderStatusDraft})
	o3 := databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-303", Date: "2026-02-02"})

	eligible, err := repo.LockEligible(ctx, conns.Writer, []int64{o3.ID, o2.ID, o1.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []int64{o1.ID, o3.ID}, eligible)

	n, err := repo.MarkExported(ctx, conns.Writer, batch.ID, []int64{o1.ID, o2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exported, err := repo.ListByExport(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, o1.ID, exported[0].ID)
	assert.Equal(t, entity.OrderStatusExported, exported[0].Status)
	require.NotNil(t, exported[0].ExportID)
	assert.Equal(t, batch.ID, *exported[0].ExportID)

	n, err = repo.MarkExported(ctx, conns.Writer, batch.ID, []int64{o1.ID})
	require.NoError(t, err)
	assert.Zero(t, n, "an exported order must not be claimed twice")
}

func TestSchemaTiesExportToStatus(t *testing.T) {
	ctx := context.Background()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	batch := databasetest.InsertExport(t, conns, fx, "2026-02-02", time.Now())

	tests := []struct {
		name     string
		code     string
		status   entity.OrderStatus
		exportID *int64
		wantErr  bool
	}{
		{name: "exported with batch", code: "PV-400", status: entity.OrderStatusExported, exportID: &batch.ID},
		{name: "confirmed without batch", code: "PV-401", status: entity.OrderStatusConfirmed},
		{name: "exported without batch", code: "PV-402", status: entity.OrderStatusExported, wantErr: true},
		{name: "confirmed with batch", code: "PV-403", status: entity.OrderStatusConfirmed, exportID: &batch.ID, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &entity.Order{
				Code:     tt.code,
				ClientID: fx.Clients[0].ID,
				Date:     day(t, "2026-02-02"),
				Currency: entity.CurrencyUSD,
				Status:   tt.status,
				ExportID: tt.exportID,
				UserID:   fx.User.ID,
			}
			_, err := conns.Writer.NewInsert().Model(order).Exec(ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, order.ID)
		})
	}

	t.Run("status change without batch", func(t *testing.T) {
		repo := NewRepository(conns)
		o := databasetest.InsertOrder(t, conns, fx, databasetest.OrderSpec{Code: "PV-499", Date: "2026-02-02"})

		err := repo.UpdateStatus(ctx, o.ID, []entity.OrderStatus{entity.OrderStatusConfirmed}, entity.OrderStatusExported)
		require.Error(t, err)

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.OrderStatusConfirmed, got.Status)
		assert.Nil(t, got.ExportID)
	})
}
