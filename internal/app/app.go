package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/florex/internal/cache"
	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/logger"
	"github.com/Additional-Code/florex/internal/messaging"
	"github.com/Additional-Code/florex/internal/observability"
	repositoryexport "github.com/Additional-Code/florex/internal/repository/export"
	repositoryorder "github.com/Additional-Code/florex/internal/repository/order"
	grpcserver "github.com/Additional-Code/florex/internal/server/grpc"
	httpserver "github.com/Additional-Code/florex/internal/server/http"
	servicedashboard "github.com/Additional-Code/florex/internal/service/dashboard"
	serviceexport "github.com/Additional-Code/florex/internal/service/export"
	serviceorder "github.com/Additional-Code/florex/internal/service/order"
	transporthttp "github.com/Additional-Code/florex/internal/transport/http"
	"github.com/Additional-Code/florex/internal/worker"
	workerexport "github.com/Additional-Code/florex/internal/worker/export"
	workerorder "github.com/Additional-Code/florex/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositoryexport.Module,
	serviceorder.Module,
	serviceexport.Module,
	servicedashboard.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
	workerexport.Module,
)

// Module is the default application wiring.
var Module = HTTP
