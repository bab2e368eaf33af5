// Package main provides the entry point for the bucketscan API server.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/oversec/bucketscan/domain/findings"
	"github.com/oversec/bucketscan/domain/health"
	"github.com/oversec/bucketscan/domain/lister"
	"github.com/oversec/bucketscan/domain/progress"
	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/database"
	"github.com/oversec/bucketscan/internal/migrate"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/server"
	"github.com/oversec/bucketscan/internal/stepfn"
	"github.com/oversec/bucketscan/internal/storage"
	"github.com/oversec/bucketscan/pkg/logger"
)

func main() {
	// Load .env if present (for local development)
	_ = godotenv.Load()

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		storage.Module,
		queue.Module,
		stepfn.Module,

		// Domain modules
		health.Module,
		scans.Module,
		findings.Module,
		lister.Module,
		progress.Module,
	).Run()
}
