package progress

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// JobProgress is one row of the cached progress projection. It is owned by
// the refresher; everything else reads it and tolerates staleness bounded
// by the refresh interval.
type JobProgress struct {
	bun.BaseModel `bun:"table:job_progress,alias:jp"`

	JobID           uuid.UUID `bun:"job_id,type:uuid" json:"job_id"`
	QueuedCount     int       `bun:"queued_count" json:"queued_count"`
	ProcessingCount int       `bun:"processing_count" json:"processing_count"`
	SucceededCount  int       `bun:"succeeded_count" json:"succeeded_count"`
	FailedCount     int       `bun:"failed_count" json:"failed_count"`
	TotalObjects    int       `bun:"total_objects" json:"total_objects"`
	TotalFindings   int       `bun:"total_findings" json:"total_findings"`
	ProgressPercent float64   `bun:"progress_percent" json:"progress_percent"`
}

// RefreshLogEntry records the last refresh of a materialized view.
type RefreshLogEntry struct {
	bun.BaseModel `bun:"table:materialized_view_refresh_log,alias:rl"`

	ViewName          string    `bun:"view_name,pk" json:"view_name"`
	LastRefreshedAt   time.Time `bun:"last_refreshed_at,notnull" json:"last_refreshed_at"`
	RefreshDurationMS int       `bun:"refresh_duration_ms,notnull" json:"refresh_duration_ms"`
	TotalJobs         int       `bun:"total_jobs,notnull,default:0" json:"total_jobs"`
	TotalObjects      int64     `bun:"total_objects,notnull,default:0" json:"total_objects"`
}

// RefreshStats are aggregate statistics read from the projection after a
// refresh.
type RefreshStats struct {
	TotalJobs        int   `json:"total_jobs"`
	TotalObjects     int64 `json:"total_objects"`
	ProcessedObjects int64 `json:"processed_objects"`
	TotalFindings    int64 `json:"total_findings"`
	ActiveJobs       int   `json:"active_jobs"`
}

// RefreshResult is the structured outcome of one refresh run.
type RefreshResult struct {
	Success         bool         `json:"success"`
	DurationSeconds float64      `json:"duration_seconds"`
	RefreshType     string       `json:"refresh_type"`
	Timestamp       time.Time    `json:"timestamp"`
	Statistics      RefreshStats `json:"statistics"`
}
