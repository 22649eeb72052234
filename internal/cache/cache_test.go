package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/florex/internal/cache"
	"github.com/Additional-Code/florex/internal/cache/cachetest"
)

type snapshot struct {
	ID     int64  `json:"id"`
	Estado string `json:"estado"`
}

func TestJSONRoundTripThroughPrefix(t *testing.T) {
	ctx := context.Background()
	backend := cachetest.New()
	store := cache.WithPrefix(backend, " florex: ")

	require.NoError(t, cache.SetJSON(ctx, store, "exports:7", snapshot{ID: 7, Estado: "EXPORTADO"}, time.Minute))
	assert.True(t, backend.Has("florex:exports:7"))
	assert.False(t, backend.Has("exports:7"))

	var got snapshot
	require.NoError(t, cache.GetJSON(ctx, store, "exports:7", &got))
	assert.Equal(t, snapshot{ID: 7, Estado: "EXPORTADO"}, got)

	require.NoError(t, store.Delete(ctx, "exports:7"))
	assert.ErrorIs(t, cache.GetJSON(ctx, store, "exports:7", &got), cache.ErrCacheMiss)
}

func TestGetJSONRejectsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	backend := cachetest.New()
	require.NoError(t, backend.Set(ctx, "orders:1", []byte("{not json"), 0))

	var got snapshot
	err := cache.GetJSON(ctx, backend, "orders:1", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrCacheMiss)
}

func TestNilAndNoopStores(t *testing.T) {
	ctx := context.Background()
	var got snapshot

	assert.ErrorIs(t, cache.GetJSON(ctx, nil, "orders:1", &got), cache.ErrCacheMiss)
	assert.NoError(t, cache.SetJSON(ctx, nil, "orders:1", snapshot{ID: 1}, 0))

	noop := cache.WithPrefix(cache.Noop(), "")
	require.NoError(t, cache.SetJSON(ctx, noop, "orders:1", snapshot{ID: 1}, 0))
	assert.ErrorIs(t, cache.GetJSON(ctx, noop, "orders:1", &got), cache.ErrCacheMiss)
}
