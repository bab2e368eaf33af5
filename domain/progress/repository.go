package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/oversec/bucketscan/pkg/logger"
)

const viewName = "job_progress"

// ErrViewMissing distinguishes the non-fatal case where the projection has
// not been created yet. Callers fall back to real-time queries.
var ErrViewMissing = errors.New("materialized view job_progress does not exist")

// Repository handles the cached progress projection and its refresh log
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new progress repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("progress.repo")),
	}
}

// ViewExists reports whether the projection has been created.
func (r *Repository) ViewExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.NewSelect().
		ColumnExpr("EXISTS (SELECT 1 FROM pg_matviews WHERE schemaname = 'public' AND matviewname = ?)", viewName).
		Scan(ctx, &exists)
	if err != nil {
		return false, fmt.Errorf("check view exists: %w", err)
	}
	return exists, nil
}

// GetJobProgress returns the cached projection row for a job together with
// the refresh-log metadata, or (nil, nil, nil) when the projection has no
// row for the job yet.
func (r *Repository) GetJobProgress(ctx context.Context, jobID uuid.UUID) (*JobProgress, *RefreshLogEntry, error) {
	row := &JobProgress{}
	err := r.db.NewSelect().
		Model(row).
		Where("job_id = ?", jobID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get job progress: %w", err)
	}

	meta := &RefreshLogEntry{}
	err = r.db.NewSelect().
		Model(meta).
		Where("view_name = ?", viewName).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, nil, nil
		}
		return nil, nil, fmt.Errorf("get refresh log: %w", err)
	}

	return row, meta, nil
}

// Refresh refreshes the projection, preferring a concurrent refresh and
// falling back to a blocking one, then reads aggregate statistics and
// upserts the refresh log. Returns ErrViewMissing when the projection has
// not been created.
func (r *Repository) Refresh(ctx context.Context) (*RefreshResult, error) {
	exists, err := r.ViewExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrViewMissing
	}

	refreshType := "concurrent"
	start := time.Now()

	_, err = r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY job_progress")
	if err != nil {
		r.log.Warn("concurrent refresh failed, trying regular refresh", logger.Error(err))
		refreshType = "regular"
		if _, err = r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW job_progress"); err != nil {
			return nil, fmt.Errorf("refresh materialized view: %w", err)
		}
	}

	end := time.Now()
	duration := end.Sub(start)

	stats := RefreshStats{}
	err = r.db.NewSelect().
		TableExpr("job_progress").
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(total_objects), 0)").
		ColumnExpr("COALESCE(SUM(succeeded_count), 0)").
		ColumnExpr("COALESCE(SUM(total_findings), 0)").
		ColumnExpr("COALESCE(SUM(CASE WHEN queued_count > 0 OR processing_count > 0 THEN 1 ELSE 0 END), 0)").
		Scan(ctx, &stats.TotalJobs, &stats.TotalObjects, &stats.ProcessedObjects, &stats.TotalFindings, &stats.ActiveJobs)
	if err != nil {
		return nil, fmt.Errorf("read refresh statistics: %w", err)
	}

	entry := &RefreshLogEntry{
		ViewName:          viewName,
		LastRefreshedAt:   end,
		RefreshDurationMS: int(duration.Milliseconds()),
		TotalJobs:         stats.TotalJobs,
		TotalObjects:      stats.TotalObjects,
	}
	_, err = r.db.NewInsert().
		Model(entry).
		On("CONFLICT (view_name) DO UPDATE").
		Set("last_refreshed_at = EXCLUDED.last_refreshed_at").
		Set("refresh_duration_ms = EXCLUDED.refresh_duration_ms").
		Set("total_jobs = EXCLUDED.total_jobs").
		Set("total_objects = EXCLUDED.total_objects").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert refresh log: %w", err)
	}

	return &RefreshResult{
		Success:         true,
		DurationSeconds: duration.Seconds(),
		RefreshType:     refreshType,
		Timestamp:       end,
		Statistics:      stats,
	}, nil
}
