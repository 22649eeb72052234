package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    codes.Code
		message string
	}{
		{name: "not found", err: errorbank.NotFound("export not found"), code: codes.NotFound, message: "export not found"},
		{name: "transaction", err: errorbank.TransactionFailed(errors.New("deadlock")), code: codes.Aborted, message: errorbank.MessageTransactionFailed},
		{name: "plain error", err: errors.New("boom"), code: codes.Internal, message: "internal error"},
		{name: "existing status", err: status.Error(codes.Unauthenticated, "nope"), code: codes.Unauthenticated, message: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(toStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.message, st.Message())
		})
	}
}

func TestHealthService(t *testing.T) {
	hs := health.NewServer()
	hs.SetServingStatus(ExportService, healthpb.HealthCheckResponse_SERVING)
	server := NewServer(config.Config{GRPC: config.GRPC{Reflection: true}}, zap.NewNop(), hs)

	ln := bufconn.Listen(1 << 16)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return ln.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ExportService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestObserveRecoversPanics(t *testing.T) {
	var err error
	func() {
		defer observe(zap.NewNop(), "/florex.export/Commit", time.Now(), &err)
		panic("nil batch")
	}()
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}

func TestObserveMapsApplicationErrors(t *testing.T) {
	err := error(errorbank.Validation("pedido_ids is required"))
	func() {
		defer observe(zap.NewNop(), "/florex.export/Commit", time.Now(), &err)
	}()
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "pedido_ids is required", st.Message())
}
