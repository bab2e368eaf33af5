package worker

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/oversec/bucketscan/domain/findings"
	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/storage"
)

var Module = fx.Module("worker",
	fx.Provide(
		func(s *storage.Service, sr *scans.Repository, fr *findings.Repository, cfg *config.Config, log *slog.Logger) *Processor {
			return NewProcessor(s, sr, fr, cfg, log)
		},
		func(q *queue.Service, p *Processor, cfg *config.Config, log *slog.Logger) *Consumer {
			return NewConsumer(q, p, cfg, log)
		},
	),
	fx.Invoke(StartConsumer),
)

// StartConsumer runs the consumer loop for the lifetime of the process.
func StartConsumer(lc fx.Lifecycle, c *Consumer, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := c.Run(ctx); err != nil {
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
