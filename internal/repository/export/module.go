package export

import "go.uber.org/fx"

// Module provides the export registry repository to Fx.
var Module = fx.Provide(NewRepository)
