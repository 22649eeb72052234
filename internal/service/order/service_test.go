package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/florex/internal/cache/cachetest"
	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database/databasetest"
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/messaging"
	"github.com/Additional-Code/florex/internal/messaging/messagingtest"
	repo "github.com/Additional-Code/florex/internal/repository/order"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

func newTestService(t *testing.T) (*Service, databasetest.Fixtures, *cachetest.Store, *messagingtest.Recorder) {
	t.Helper()
	conns := databasetest.New(t)
	fx := databasetest.Seed(t, conns)
	store := cachetest.New()
	bus := messagingtest.NewRecorder("florex.events")
	svc := NewService(Params{
		Repository: repo.NewRepository(conns),
		Cache:      store,
		Config:     config.Config{Messaging: config.Messaging{Enabled: true}},
		Publisher:  bus,
	})
	return svc, fx, store, bus
}

func validInput(fx databasetest.Fixtures) CreateInput {
	return CreateInput{
		Code:     " pv-900 ",
		ClientID: fx.Clients[0].ID,
		Date:     "2026-02-02",
		Currency: "usd",
		UserID:   fx.User.ID,
		Agency:   "klm cargo",
		Lines: []LineInput{
			{
				ProductID:   fx.Products[0].ID,
				VariantID:   &fx.Variants[0].ID,
				PackagingID: &fx.Packaging.ID,
				Boxes:       3,
				UnitPrice:   decimal.RequireFromString("10.333"),
				Description: "rosa roja",
			},
			{
				ProductID: fx.Products[1].ID,
				Boxes:     2,
				UnitPrice: decimal.RequireFromString("7.5"),
				Assorted:  []AssortedInput{{VariantID: &fx.Variants[1].ID, Stems: 25}},
			},
		},
	}
}

func TestCreate(t *testing.T) {
	svc, fx, _, bus := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(fx))
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	assert.Equal(t, "PV-900", order.Code)
	assert.Equal(t, entity.CurrencyUSD, order.Currency)
	assert.Equal(t, "KLM CARGO", order.Agency)
	assert.Equal(t, entity.OrderStatusDraft, order.Status)
	assert.Equal(t, "ROSA ROJA", order.Lines[0].Description)
	assert.True(t, decimal.RequireFromString("31").Equal(order.Lines[0].Subtotal), order.Lines[0].Subtotal.String())
	assert.True(t, decimal.RequireFromString("46").Equal(order.Total), order.Total.String())

	msgs := bus.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, EventTypeCreated, msgs[0].Headers[messaging.HeaderEventType])
	var event OrderCreatedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Value, &event))
	assert.Equal(t, order.ID, event.ID)
	assert.Equal(t, 5, event.Boxes)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	require.Len(t, got.Lines[1].Assorted, 1)

	_, err = svc.Create(ctx, validInput(fx))
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
}

func TestCreateValidation(t *testing.T) {
	svc, fx, _, bus := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{name: "no lines", mutate: func(in *CreateInput) { in.Lines = nil }, field: "lineas"},
		{name: "bad currency", mutate: func(in *CreateInput) { in.Currency = "eur" }, field: "moneda"},
		{name: "zero boxes", mutate: func(in *CreateInput) { in.Lines[0].Boxes = 0 }, field: "lineas[0].cajas"},
		{name: "negative price", mutate: func(in *CreateInput) { in.Lines[1].UnitPrice = decimal.NewFromInt(-1) }, field: "lineas[1].precio_unitario"},
		{name: "blank code", mutate: func(in *CreateInput) { in.Code = "   " }, field: "codigo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(fx)
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			appErr := errorbank.From(err)
			assert.Equal(t, errorbank.KindValidation, appErr.Kind())
			assert.Contains(t, appErr.Details(), tt.field)
		})
	}
	assert.Empty(t, bus.Messages())
}

func TestGetUsesCache(t *testing.T) {
	svc, fx, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(fx))
	require.NoError(t, err)

	_, err = svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, store.Has(cacheKey(order.ID)))

	_, err = svc.Get(ctx, 404)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestTransitions(t *testing.T) {
	svc, fx, store, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(fx))
	require.NoError(t, err)
	_, err = svc.Get(ctx, order.ID)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, confirmed.Status)

	_, err = svc.Confirm(ctx, order.ID)
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))

	voided, err := svc.Void(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusVoided, voided.Status)
	assert.True(t, store.Has(cacheKey(order.ID)))

	cached, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusVoided, cached.Status)

	_, err = svc.Void(ctx, order.ID)
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))

	_, err = svc.Confirm(ctx, 12345)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}
