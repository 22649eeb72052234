package http

import (
	"go.uber.org/fx"

	dashboardtransport "github.com/Additional-Code/florex/internal/transport/http/dashboard"
	exporttransport "github.com/Additional-Code/florex/internal/transport/http/export"
	ordertransport "github.com/Additional-Code/florex/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	exporttransport.Module,
	dashboardtransport.Module,
)
