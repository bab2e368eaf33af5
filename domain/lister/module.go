package lister

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/storage"
)

var Module = fx.Module("lister",
	fx.Provide(
		func(s *storage.Service, q *queue.Service, r *scans.Repository, log *slog.Logger) *Lister {
			return New(s, q, r, log)
		},
		func(l *Lister) scans.SyncLister { return l },
	),
)
