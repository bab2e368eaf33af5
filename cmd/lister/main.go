// Package main runs one listing/enqueue iteration. The durable loop driver
// feeds the previous state JSON on stdin and persists the state JSON
// written to stdout, re-invoking until "done" is true.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/oversec/bucketscan/domain/lister"
	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/database"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/storage"
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
		storage.Module,
		queue.Module,

		fx.Provide(scans.NewRepository),
		lister.Module,

		fx.Invoke(runIteration),
	).Run()
}

func runIteration(lc fx.Lifecycle, l *lister.Lister, log *slog.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := run(l); err != nil {
					log.Error("lister iteration failed", logger.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}

func run(l *lister.Lister) error {
	var state lister.State
	if err := json.NewDecoder(os.Stdin).Decode(&state); err != nil {
		return err
	}

	out, err := l.Run(context.Background(), state)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(out)
}
