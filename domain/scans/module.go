package scans

import (
	"go.uber.org/fx"
)

var Module = fx.Module("scans",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
