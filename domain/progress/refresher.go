package progress

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/pkg/logger"
)

type refreshRunner interface {
	Refresh(ctx context.Context) (*RefreshResult, error)
}

// Refresher periodically refreshes the progress projection so status reads
// stay cheap. A missing projection is logged and skipped, not fatal.
type Refresher struct {
	repo refreshRunner
	cron *cron.Cron
	cfg  *config.Config
	log  *slog.Logger
}

// NewRefresher creates a new refresher
func NewRefresher(repo *Repository, cfg *config.Config, log *slog.Logger) *Refresher {
	return &Refresher{
		repo: repo,
		cron: cron.New(),
		cfg:  cfg,
		log:  log.With(logger.Scope("progress.refresher")),
	}
}

// Start schedules the periodic refresh and starts the cron runner.
func (r *Refresher) Start(ctx context.Context) error {
	if !r.cfg.Refresher.Enabled {
		r.log.Info("progress refresher disabled")
		return nil
	}

	schedule := "@every " + r.cfg.Refresher.Interval.String()
	if _, err := r.cron.AddFunc(schedule, func() {
		r.RunOnce(context.Background())
	}); err != nil {
		return err
	}

	r.cron.Start()
	r.log.Info("progress refresher started", slog.String("schedule", schedule))
	return nil
}

// Stop stops the cron runner, waiting for a running refresh to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		r.log.Warn("refresher stop timeout")
	}
	return nil
}

// RunOnce performs a single refresh and logs the outcome.
func (r *Refresher) RunOnce(ctx context.Context) *RefreshResult {
	result, err := r.repo.Refresh(ctx)
	if err != nil {
		if errors.Is(err, ErrViewMissing) {
			r.log.Warn("job_progress view missing, skipping refresh")
		} else {
			r.log.Error("progress refresh failed", logger.Error(err))
		}
		return &RefreshResult{Success: false}
	}

	r.log.Info("progress view refreshed",
		slog.String("type", result.RefreshType),
		slog.Float64("duration_seconds", result.DurationSeconds),
		slog.Int("total_jobs", result.Statistics.TotalJobs),
		slog.Int64("total_objects", result.Statistics.TotalObjects),
		slog.Int("active_jobs", result.Statistics.ActiveJobs),
	)
	return result
}
