package dashboard

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	repo "github.com/Additional-Code/florex/internal/repository/order"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/florex/service/dashboard")

// Module provides the dashboard service to Fx.
var Module = fx.Provide(NewService)

// Service serves dashboard rollups.
type Service struct {
	orders *repo.Repository
	logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(orders *repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, logger: logger}
}

// Sales returns the rollups for year.
func (s *Service) Sales(ctx context.Context, year int) (*Sales, error) {
	if year < 2000 || year > 2100 {
		return nil, errorbank.Validation("year out of range", errorbank.WithDetail("year", "year must be between 2000 and 2100"))
	}
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Sales", trace.WithAttributes(attribute.Int("year", year)))
	defer span.End()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	orders, err := s.orders.ListInRange(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("dashboard sales query failed", zap.Int("year", year), zap.Error(err))
		return nil, errorbank.DataAccess(err)
	}
	sales := Build(year, orders)
	return &sales, nil
}
