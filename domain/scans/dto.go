package scans

import (
	"time"

	"github.com/google/uuid"
)

// CreateScanRequest is the request body for POST /scan
type CreateScanRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// CreateScanResponse is the response for POST /scan. ObjectsProcessed and
// MessagesEnqueued are only present for the synchronous fallback path.
type CreateScanResponse struct {
	JobID            uuid.UUID `json:"job_id"`
	Bucket           string    `json:"bucket"`
	Prefix           string    `json:"prefix"`
	Status           string    `json:"status"`
	ExecutionARN     string    `json:"execution_arn,omitempty"`
	ObjectsProcessed *int      `json:"objects_processed,omitempty"`
	MessagesEnqueued *int      `json:"messages_enqueued,omitempty"`
}

// JobStatusResponse is the aggregated status returned by GET /jobs/:id
type JobStatusResponse struct {
	JobID           uuid.UUID `json:"job_id"`
	Bucket          string    `json:"bucket"`
	Prefix          string    `json:"prefix"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	Queued          int       `json:"queued"`
	Processing      int       `json:"processing"`
	Succeeded       int       `json:"succeeded"`
	Failed          int       `json:"failed"`
	Total           int       `json:"total"`
	TotalFindings   int       `json:"total_findings"`
	ProgressPercent float64   `json:"progress_percent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	DataSource             string     `json:"data_source"`
	CacheUpdatedAt         *time.Time `json:"cache_updated_at,omitempty"`
	CacheRefreshDurationMS *int       `json:"cache_refresh_duration_ms,omitempty"`
}
