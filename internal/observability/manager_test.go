package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/florex/internal/config"
)

func TestPrometheusEndpointServesCounters(t *testing.T) {
	ctx := context.Background()
	mgr, err := Build(ctx, config.Observability{
		ServiceName:     "florex",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	assert.True(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())

	counter, err := mgr.Meter("test").Int64Counter("florex.exports.committed")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "florex_exports_committed")
}

func TestDisabledExporters(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Observability
	}{
		{name: "all off", cfg: config.Observability{}},
		{name: "none exporters", cfg: config.Observability{EnableTracing: true, TraceExporter: "none", EnableMetrics: true, MetricsExporter: "none"}},
		{name: "unknown exporters", cfg: config.Observability{EnableTracing: true, TraceExporter: "zipkin", EnableMetrics: true, MetricsExporter: "statsd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := Build(context.Background(), tt.cfg, nil)
			require.NoError(t, err)
			assert.False(t, mgr.TracingEnabled())
			assert.False(t, mgr.MetricsEnabled())
			assert.Nil(t, mgr.MetricsHandler())
			assert.NotNil(t, mgr.Meter("test"))
			assert.NoError(t, mgr.Shutdown(context.Background()))
		})
	}
}
