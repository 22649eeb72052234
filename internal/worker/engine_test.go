package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/messaging"
)

func TestDispatchRoutesByEventType(t *testing.T) {
	var calls []string
	record := func(name string, err error) messaging.Handler {
		return func(context.Context, messaging.Message) error {
			calls = append(calls, name)
			return err
		}
	}

	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Registrations: []HandlerRegistration{
			{Topic: "florex.events", EventType: "order.created", Handler: record("orders", nil)},
			{Topic: "florex.events", EventType: "export.committed", Handler: record("exports", nil)},
			{Topic: "florex.events", Handler: record("audit", nil)},
			{Topic: "", Handler: record("ignored", nil)},
			{Topic: "other", Handler: record("failing", errors.New("boom"))},
		},
	})

	msg := func(topic, eventType string) messaging.Message {
		return messaging.Message{Topic: topic, Headers: map[string]string{messaging.HeaderEventType: eventType}}
	}

	assert.NoError(t, engine.Dispatch(context.Background(), msg("florex.events", "export.committed")))
	assert.Equal(t, []string{"exports", "audit"}, calls)

	calls = nil
	assert.NoError(t, engine.Dispatch(context.Background(), msg("florex.events", "order.created")))
	assert.Equal(t, []string{"orders", "audit"}, calls)

	calls = nil
	assert.NoError(t, engine.Dispatch(context.Background(), msg("unknown", "")))
	assert.Empty(t, calls)

	assert.Error(t, engine.Dispatch(context.Background(), msg("other", "")))
}

func TestDispatchRecoversPanicsAndAppliesTimeout(t *testing.T) {
	var hadDeadline bool
	engine := NewEngine(Params{
		Config: config.Config{Messaging: config.Messaging{Workers: config.Worker{HandlerTimeout: time.Minute}}},
		Registrations: []HandlerRegistration{
			{Topic: "deadline", Handler: func(ctx context.Context, _ messaging.Message) error {
				_, hadDeadline = ctx.Deadline()
				return nil
			}},
			{Topic: "panics", Handler: func(context.Context, messaging.Message) error {
				panic("nil catalog")
			}},
		},
	})

	require.NoError(t, engine.Dispatch(context.Background(), messaging.Message{Topic: "deadline"}))
	assert.True(t, hadDeadline)

	err := engine.Dispatch(context.Background(), messaging.Message{Topic: "panics"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil catalog")
}

// chanClient delivers queued messages and then blocks until ctx ends.
type chanClient struct {
	msgs chan messaging.Message
}

func (c chanClient) Publish(context.Context, []byte, []byte, map[string]string) error { return nil }

func (c chanClient) Topic() string { return "florex.events" }

func (c chanClient) Consume(ctx context.Context, handler messaging.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.msgs:
			_ = handler(ctx, msg)
		}
	}
}

func TestEngineConsumesUntilStopped(t *testing.T) {
	client := chanClient{msgs: make(chan messaging.Message, 2)}
	handled := make(chan int64, 2)
	engine := NewEngine(Params{
		Client: client,
		Config: config.Config{Messaging: config.Messaging{
			Enabled: true,
			Workers: config.Worker{Enabled: true, Concurrency: 2},
		}},
		Registrations: []HandlerRegistration{{
			Topic:     "florex.events",
			EventType: "export.committed",
			Handler: func(_ context.Context, msg messaging.Message) error {
				handled <- msg.Offset
				return nil
			},
		}},
	})

	ctx := context.Background()
	require.NoError(t, engine.Start(ctx))
	for offset := range int64(2) {
		client.msgs <- messaging.Message{
			Topic:   "florex.events",
			Offset:  offset,
			Headers: map[string]string{messaging.HeaderEventType: "export.committed"},
		}
	}

	got := []int64{<-handled, <-handled}
	assert.ElementsMatch(t, []int64{0, 1}, got)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Stop(stopCtx))
}

func TestDisabledEngineDoesNotStart(t *testing.T) {
	engine := NewEngine(Params{
		Client:        chanClient{},
		Registrations: []HandlerRegistration{{Topic: "florex.events", Handler: func(context.Context, messaging.Message) error { return nil }}},
	})
	require.NoError(t, engine.Start(context.Background()))
	assert.NoError(t, engine.Stop(context.Background()))
}
