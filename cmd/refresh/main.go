// Package main refreshes the job_progress materialized view once and exits
// 0 on success, 1 on failure. Suitable for cron or EventBridge scheduling.
package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/oversec/bucketscan/domain/progress"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/database"
	"github.com/oversec/bucketscan/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		logger.Module,
		config.Module,
		database.Module,

		fx.Provide(progress.NewRepository),

		fx.Invoke(runRefresh),
	).Run()
}

func runRefresh(lc fx.Lifecycle, repo *progress.Repository, log *slog.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				result, err := repo.Refresh(context.Background())
				if err != nil {
					log.Error("refresh failed", logger.Error(err))
					code = 1
				} else {
					log.Info("refresh completed",
						slog.String("type", result.RefreshType),
						slog.Float64("duration_seconds", result.DurationSeconds),
						slog.Int("total_jobs", result.Statistics.TotalJobs),
						slog.Int64("total_objects", result.Statistics.TotalObjects),
						slog.Int64("total_findings", result.Statistics.TotalFindings),
					)
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
