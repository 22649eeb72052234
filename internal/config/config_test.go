package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "florex", cfg.Observability.ServiceName)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, 20, cfg.Export.DefaultPageSize)
	assert.Equal(t, 100, cfg.Export.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.Export.CommitTimeout)
}

func TestNewOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg Config)
	}{
		{
			name: "disabled cache falls back to noop",
			env:  map[string]string{"CACHE_ENABLED": "false"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "noop", cfg.Cache.Driver)
			},
		},
		{
			name: "disabled messaging falls back to noop",
			env:  map[string]string{"MESSAGING_ENABLED": "false"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "noop", cfg.Messaging.Driver)
			},
		},
		{
			name: "default page size clamped to max",
			env:  map[string]string{"EXPORT_DEFAULT_PAGE_SIZE": "500", "EXPORT_MAX_PAGE_SIZE": "50"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 50, cfg.Export.DefaultPageSize)
			},
		},
		{
			name: "prometheus path gets leading slash",
			env:  map[string]string{"OBS_PROMETHEUS_PATH": "metrics"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
			},
		},
		{
			name: "unparsable numbers keep defaults",
			env:  map[string]string{"HTTP_PORT": "eighty", "EXPORT_COMMIT_TIMEOUT": "soon"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 8080, cfg.HTTP.Port)
				assert.Equal(t, 30*time.Second, cfg.Export.CommitTimeout)
			},
		},
		{
			name: "cache key prefix",
			env:  map[string]string{"CACHE_KEY_PREFIX": "florex-staging"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "florex-staging", cfg.Cache.KeyPrefix)
			},
		},
		{
			name: "brokers are split and trimmed",
			env:  map[string]string{"KAFKA_BROKERS": "kafka-1:9092, kafka-2:9092,,"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Messaging.Kafka.Brokers)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := New()
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad http port", map[string]string{"HTTP_PORT": "0"}},
		{"unknown cache driver", map[string]string{"CACHE_DRIVER": "memcached"}},
		{"unknown messaging driver", map[string]string{"MESSAGING_DRIVER": "nats"}},
		{"empty writer dsn", map[string]string{"DB_WRITER_DSN": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}
