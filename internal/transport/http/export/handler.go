package export

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/florex/internal/dto"
	"github.com/Additional-Code/florex/internal/presentation/http/response"
	service "github.com/Additional-Code/florex/internal/service/export"
	"github.com/Additional-Code/florex/internal/transport/http/params"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/florex/transport/http/export")

// Handler exposes the export workflow over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an export Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/exports")
	g.GET("/orders", h.listOrders)
	g.GET("/preview", h.preview)
	g.POST("", h.commit)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
}

func (h *Handler) listOrders(c echo.Context) error {
	b := response.New(c)

	q := service.OrdersQuery{ExcludeExported: true}
	if err := params.Query(c, &q); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "exports.listOrders")
	defer span.End()

	orders, err := h.svc.ListOrders(ctx, q)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponses(orders)).WithMeta("total", len(orders)).Build()
}

func (h *Handler) preview(c echo.Context) error {
	b := response.New(c)

	var q service.OrdersQuery
	if err := params.Query(c, &q); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "exports.preview")
	defer span.End()

	preview, err := h.svc.Preview(ctx, q)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewPreviewResponse(preview.Orders, preview.Summary)).Build()
}

func (h *Handler) commit(c echo.Context) error {
	b := response.New(c)

	var in service.CommitInput
	if err := params.Body(c, &in); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "exports.commit", trace.WithAttributes(
		attribute.Int("orders.requested", len(in.OrderIDs)),
	))
	defer span.End()

	res, err := h.svc.Commit(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewCommitResponse(res.Batch, res.OrderIDs)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	var p service.Paging
	if err := params.Query(c, &p); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "exports.list")
	defer span.End()

	page, err := h.svc.List(ctx, p)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewExportResponses(page.Items)).
		WithPagination(page.Page, page.PageSize, page.Total, page.TotalPages).
		Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := params.ID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "exports.getByID", trace.WithAttributes(attribute.Int64("export.id", id)))
	defer span.End()

	batch, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewExportDetailResponse(batch)).Build()
}
