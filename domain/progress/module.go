package progress

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("progress",
	fx.Provide(
		NewRepository,
		NewRefresher,
	),
	fx.Invoke(func(lc fx.Lifecycle, r *Refresher) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return r.Start(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return r.Stop(ctx)
			},
		})
	}),
)
