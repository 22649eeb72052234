package dashboard

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/florex/internal/presentation/http/response"
	service "github.com/Additional-Code/florex/internal/service/dashboard"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

// Module wires HTTP dashboard handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		e.GET("/dashboard/sales", h.sales)
	}),
)

// Handler exposes dashboard rollups.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) sales(c echo.Context) error {
	b := response.New(c)

	year := time.Now().UTC().Year()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.Validation("invalid year", errorbank.WithDetail("year", raw))).Build()
		}
		year = y
	}

	sales, err := h.svc.Sales(c.Request().Context(), year)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(sales).Build()
}
