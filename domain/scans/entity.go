package scans

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Job is one user-initiated scan over a bucket/prefix.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	JobID        uuid.UUID `bun:"job_id,pk,type:uuid" json:"job_id"`
	Bucket       string    `bun:"bucket,notnull" json:"bucket"`
	Prefix       string    `bun:"prefix,notnull,default:''" json:"prefix"`
	ExecutionARN *string   `bun:"execution_arn" json:"execution_arn,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}

// ObjectStatus is the lifecycle state of a JobObject. Transitions advance
// queued → processing → {succeeded, failed}; terminal states absorb
// redeliveries.
type ObjectStatus string

const (
	StatusQueued     ObjectStatus = "queued"
	StatusProcessing ObjectStatus = "processing"
	StatusSucceeded  ObjectStatus = "succeeded"
	StatusFailed     ObjectStatus = "failed"
)

// JobObject is a single object version scheduled for scanning within a job.
// A re-listed object with a different etag produces a new row.
type JobObject struct {
	bun.BaseModel `bun:"table:job_objects,alias:jo"`

	JobID     uuid.UUID    `bun:"job_id,pk,type:uuid" json:"job_id"`
	Bucket    string       `bun:"bucket,pk" json:"bucket"`
	Key       string       `bun:"key,pk" json:"key"`
	ETag      string       `bun:"etag,pk" json:"etag"`
	Status    ObjectStatus `bun:"status,notnull,default:'queued'" json:"status"`
	LastError *string      `bun:"last_error" json:"last_error,omitempty"`
	UpdatedAt time.Time    `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}

// JobStats holds status-bucketed object counts and the findings total for
// one job, zero-filled when the job has no objects yet.
type JobStats struct {
	Queued        int `json:"queued"`
	Processing    int `json:"processing"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	Total         int `json:"total"`
	TotalFindings int `json:"total_findings"`
}

// Completed counts objects in a terminal state.
func (s *JobStats) Completed() int {
	return s.Succeeded + s.Failed
}

// ProgressPercent is completed/total as a percentage, zero when total is zero.
func (s *JobStats) ProgressPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed()) / float64(s.Total) * 100
}
