package order

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/florex/internal/dto"
	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/presentation/http/response"
	service "github.com/Additional-Code/florex/internal/service/order"
	"github.com/Additional-Code/florex/internal/transport/http/params"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/florex/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/void", h.void)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := params.ID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var in service.CreateInput
	if err := params.Body(c, &in); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	order, err := h.svc.Create(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) confirm(c echo.Context) error {
	return h.transition(c, "orders.confirm", h.svc.Confirm)
}

func (h *Handler) void(c echo.Context) error {
	return h.transition(c, "orders.void", h.svc.Void)
}

func (h *Handler) transition(c echo.Context, name string, apply func(context.Context, int64) (*entity.Order, error)) error {
	b := response.New(c)

	id, err := params.ID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), name, trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := apply(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}
