// Command api runs the HTTP and gRPC servers without the CLI wrapper, for
// container images that only serve traffic.
package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/florex/internal/app"
	"github.com/Additional-Code/florex/internal/logger"
)

func main() {
	fx.New(app.Module, logger.FxEvents).Run()
}
