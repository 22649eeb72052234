package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database/databasetest"
	"github.com/Additional-Code/florex/internal/presentation/http/response"
)

func TestRouterEnvelopeAndProbes(t *testing.T) {
	conns := databasetest.New(t)
	e := NewEcho(config.Config{}, nil, conns, zap.NewNop())

	tests := []struct {
		name   string
		method string
		target string
		status int
		kind   string
	}{
		{name: "liveness", method: http.MethodGet, target: "/health", status: http.StatusOK},
		{name: "readiness", method: http.MethodGet, target: "/health/ready", status: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, target: "/nope", status: http.StatusNotFound, kind: "not_found"},
		{name: "wrong method", method: http.MethodDelete, target: "/health", status: http.StatusMethodNotAllowed, kind: "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.kind == "" {
				return
			}
			var body response.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.kind, body.Error.Kind)
			assert.NotEmpty(t, body.Meta["request_id"])
			assert.Equal(t, body.Meta["request_id"], rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestReadinessFailsWhenDatabaseIsClosed(t *testing.T) {
	conns := databasetest.New(t)
	require.NoError(t, conns.Writer.Close())
	e := NewEcho(config.Config{}, nil, conns, zap.NewNop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
