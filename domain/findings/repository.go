package findings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/oversec/bucketscan/pkg/detect"
	"github.com/oversec/bucketscan/pkg/logger"
)

// Repository handles database operations for findings
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new findings repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("findings.repo")),
	}
}

// InsertBatch inserts detection results for one object version in a single
// statement with conflict-do-nothing on the uniqueness key. Returns the
// count offered, not the count actually inserted; duplicates from
// redelivered messages collapse silently.
func (r *Repository) InsertBatch(ctx context.Context, jobID uuid.UUID, bucket, key, etag string, results []detect.Finding) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	rows := make([]*Finding, 0, len(results))
	for _, res := range results {
		rows = append(rows, &Finding{
			JobID:       jobID,
			Bucket:      bucket,
			Key:         key,
			ETag:        etag,
			Detector:    res.Detector,
			MaskedMatch: res.MaskedMatch,
			Context:     res.Context,
			ByteOffset:  res.ByteOffset,
		})
	}

	_, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (bucket, key, etag, detector, byte_offset) DO NOTHING").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to insert findings",
			slog.String("job_id", jobID.String()),
			slog.String("key", key),
			logger.Error(err),
		)
		return 0, fmt.Errorf("insert findings: %w", err)
	}

	return len(results), nil
}

// CountByJob returns the number of findings recorded for a job.
func (r *Repository) CountByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	count, err := r.db.NewSelect().
		Model((*Finding)(nil)).
		Where("job_id = ?", jobID).
		Count(ctx)
	if err != nil {
		r.log.Error("failed to count findings", logger.Error(err))
		return 0, fmt.Errorf("count findings: %w", err)
	}
	return count, nil
}

// Query returns one page of findings under the filter plus the total count
// computed under the same filter. Exactly one pagination mode is active
// per call.
func (r *Repository) Query(ctx context.Context, filter Filter, page Pagination, limit int) (*Page, error) {
	if limit <= 0 {
		limit = 100
	}

	// The cursor restriction participates in the count, matching the
	// has_more contract for each mode.
	countQ := r.applyFilter(r.db.NewSelect().Model((*Finding)(nil)), filter)
	if c, ok := page.(Cursor); ok && c.LastID > 0 {
		countQ = countQ.Where("id < ?", c.LastID)
	}
	total, err := countQ.Count(ctx)
	if err != nil {
		r.log.Error("failed to count findings", logger.Error(err))
		return nil, fmt.Errorf("count findings: %w", err)
	}

	rows := make([]*Finding, 0, limit)
	q := r.applyFilter(r.db.NewSelect().Model(&rows), filter).Limit(limit)

	switch p := page.(type) {
	case Cursor:
		if p.LastID > 0 {
			q = q.Where("id < ?", p.LastID)
		}
		q = q.Order("id DESC")
	case Offset:
		q = q.Order("created_at DESC").Offset(p.N)
	default:
		q = q.Order("created_at DESC")
	}

	if err := q.Scan(ctx); err != nil {
		r.log.Error("failed to query findings", logger.Error(err))
		return nil, fmt.Errorf("query findings: %w", err)
	}

	return &Page{Findings: rows, Total: total}, nil
}

func (r *Repository) applyFilter(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.JobID != nil {
		q = q.Where("job_id = ?", *filter.JobID)
	}
	if filter.Bucket != "" {
		q = q.Where("bucket = ?", filter.Bucket)
	}
	if filter.KeyPrefix != "" {
		q = q.Where("key LIKE ?", filter.KeyPrefix+"%")
	}
	return q
}
