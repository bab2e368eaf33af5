// Package main provides the entry point for the bucketscan queue worker.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/oversec/bucketscan/domain/findings"
	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/database"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/storage"
	"github.com/oversec/bucketscan/internal/worker"
	"github.com/oversec/bucketscan/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		storage.Module,
		queue.Module,

		// Repositories only; the worker has no HTTP surface
		fx.Provide(
			scans.NewRepository,
			findings.NewRepository,
		),

		worker.Module,
	).Run()
}
