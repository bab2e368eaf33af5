package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/oversec/bucketscan/pkg/apperror"
	"github.com/oversec/bucketscan/pkg/logger"
)

// Repository handles database operations for jobs and job objects
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new scans repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("scans.repo")),
	}
}

// CreateJob persists a new job row
func (r *Repository) CreateJob(ctx context.Context, job *Job) error {
	_, err := r.db.NewInsert().Model(job).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create job",
			slog.String("job_id", job.JobID.String()),
			logger.Error(err),
		)
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id
func (r *Repository) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job := &Job{}
	err := r.db.NewSelect().
		Model(job).
		Where("job_id = ?", jobID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrNotFound.WithMessage("job not found")
		}
		r.log.Error("failed to get job", logger.Error(err))
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	return job, nil
}

// InsertObjects inserts listed objects as queued work units. Conflicts on
// the composite key are ignored so a re-run lister iteration is idempotent.
func (r *Repository) InsertObjects(ctx context.Context, objects []*JobObject) error {
	if len(objects) == 0 {
		return nil
	}

	_, err := r.db.NewInsert().
		Model(&objects).
		On("CONFLICT (job_id, bucket, key, etag) DO NOTHING").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to insert job objects",
			slog.Int("count", len(objects)),
			logger.Error(err),
		)
		return fmt.Errorf("insert job objects: %w", err)
	}
	return nil
}

// UpdateObjectStatus performs a targeted status update and reports whether
// any row matched the composite key.
func (r *Repository) UpdateObjectStatus(ctx context.Context, jobID uuid.UUID, bucket, key, etag string, status ObjectStatus, lastError *string) (bool, error) {
	q := r.db.NewUpdate().
		Model((*JobObject)(nil)).
		Set("status = ?", status).
		Set("updated_at = now()").
		Where("job_id = ?", jobID).
		Where("bucket = ?", bucket).
		Where("key = ?", key).
		Where("etag = ?", etag)

	if lastError != nil {
		q = q.Set("last_error = ?", *lastError)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		r.log.Error("failed to update object status",
			slog.String("job_id", jobID.String()),
			slog.String("key", key),
			logger.Error(err),
		)
		return false, fmt.Errorf("update object status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetJobStats returns real-time status counts and the findings total for a
// job, zero-filled when the job has no objects.
func (r *Repository) GetJobStats(ctx context.Context, jobID uuid.UUID) (*JobStats, error) {
	stats := &JobStats{}

	err := r.db.NewSelect().
		TableExpr("job_objects").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'queued')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'processing')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'succeeded')").
		ColumnExpr("COUNT(*) FILTER (WHERE status = 'failed')").
		ColumnExpr("COUNT(*)").
		Where("job_id = ?", jobID).
		Scan(ctx, &stats.Queued, &stats.Processing, &stats.Succeeded, &stats.Failed, &stats.Total)
	if err != nil {
		r.log.Error("failed to get job stats", logger.Error(err))
		return nil, fmt.Errorf("get job stats: %w", err)
	}

	err = r.db.NewSelect().
		TableExpr("findings").
		ColumnExpr("COUNT(*)").
		Where("job_id = ?", jobID).
		Scan(ctx, &stats.TotalFindings)
	if err != nil {
		r.log.Error("failed to count findings", logger.Error(err))
		return nil, fmt.Errorf("count findings: %w", err)
	}

	return stats, nil
}
