package findings

import (
	"go.uber.org/fx"
)

var Module = fx.Module("findings",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
