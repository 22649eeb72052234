package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

// ExportService is the health service name reported for the export workflow.
const ExportService = "florex.export"

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, health.NewServer),
	fx.Invoke(Run),
)

// NewServer builds a gRPC server whose interceptors log each call, recover
// panics and turn application errors into gRPC statuses. The standard health
// service is registered on it, plus reflection when enabled.
func NewServer(cfg config.Config, logger *zap.Logger, hs *health.Server) *grpc.Server {
	unary := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer observe(logger, info.FullMethod, time.Now(), &err)
		return handler(ctx, req)
	}
	stream := func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer observe(logger, info.FullMethod, time.Now(), &err)
		return handler(srv, ss)
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	healthpb.RegisterHealthServer(server, hs)
	if cfg.GRPC.Reflection {
		reflection.Register(server)
	}
	return server
}

// observe runs deferred after a call. It converts a panic into an Internal
// status, logs the outcome and rewrites *errp into a gRPC status.
func observe(logger *zap.Logger, method string, start time.Time, errp *error) {
	if r := recover(); r != nil {
		logger.Error("grpc handler panic", zap.String("method", method), zap.Any("panic", r))
		*errp = errorbank.Internal("internal error")
	}
	fields := []zap.Field{zap.String("method", method), zap.Duration("duration", time.Since(start))}
	if *errp == nil {
		logger.Debug("grpc call finished", fields...)
		return
	}
	*errp = toStatus(*errp)
	logger.Warn("grpc call failed", append(fields, zap.Error(*errp))...)
}

// toStatus keeps existing gRPC statuses and maps application errors by kind.
// Only the public message crosses the wire.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	appErr := errorbank.From(err)
	return status.Error(appErr.GRPCCode(), appErr.Message())
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, hs *health.Server, logger *zap.Logger) {
	if !cfg.GRPC.Enabled {
		logger.Info("grpc server disabled")
		return
	}
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	var listener net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln
			hs.Resume()
			for _, svc := range []string{"", ExportService} {
				hs.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
			}
			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Error("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			hs.Shutdown()
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				if listener != nil {
					_ = listener.Close()
				}
				return nil
			}
		},
	})
}
