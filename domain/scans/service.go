package scans

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oversec/bucketscan/domain/progress"
	"github.com/oversec/bucketscan/internal/stepfn"
	"github.com/oversec/bucketscan/pkg/apperror"
	"github.com/oversec/bucketscan/pkg/logger"
)

// syncMaxObjects bounds the synchronous fallback when no durable loop
// driver is configured.
const syncMaxObjects = 200_000

// SyncLister drives listing+enqueue iterations inline. Implemented by the
// lister package; an interface here keeps the dependency one-directional.
type SyncLister interface {
	RunToCompletion(ctx context.Context, jobID uuid.UUID, bucket, prefix string, maxObjects int) (processed int, enqueued int, err error)
}

// Service implements scan orchestration and status aggregation.
type Service struct {
	repo     *Repository
	progress *progress.Repository
	sfn      *stepfn.Service
	lister   SyncLister
	log      *slog.Logger
}

// NewService creates a new scans service
func NewService(repo *Repository, progressRepo *progress.Repository, sfn *stepfn.Service, lister SyncLister, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		progress: progressRepo,
		sfn:      sfn,
		lister:   lister,
		log:      log.With(logger.Scope("scans.service")),
	}
}

// CreateScan mints a job, hands listing to the durable loop when one is
// configured, and persists the job row. When the loop starts but the row
// insert fails, the scan is already running — log loudly and still report
// success to the caller.
func (s *Service) CreateScan(ctx context.Context, bucket, prefix string) (*CreateScanResponse, error) {
	jobID := uuid.New()

	if s.sfn.Enabled() {
		input := map[string]any{
			"job_id":             jobID.String(),
			"bucket":             bucket,
			"prefix":             prefix,
			"continuation_token": nil,
			"objects_processed":  0,
		}

		arn, err := s.sfn.StartExecution(ctx, jobID.String(), input)
		if err != nil {
			s.log.Error("failed to start lister execution", logger.Error(err))
			return nil, apperror.NewInternal("failed to start scan", err)
		}

		job := &Job{JobID: jobID, Bucket: bucket, Prefix: prefix, ExecutionARN: &arn}
		if err := s.repo.CreateJob(ctx, job); err != nil {
			// The execution is already enumerating; the job row can be
			// reconstructed but the scan must not be reported as failed.
			s.log.Error("job row insert failed after execution start",
				slog.String("job_id", jobID.String()),
				slog.String("execution_arn", arn),
				logger.Error(err),
			)
		}

		return &CreateScanResponse{
			JobID:        jobID,
			Bucket:       bucket,
			Prefix:       prefix,
			Status:       JobStatusListing,
			ExecutionARN: arn,
		}, nil
	}

	// Synchronous fallback: list and enqueue inline, bounded.
	job := &Job{JobID: jobID, Bucket: bucket, Prefix: prefix}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}

	processed, enqueued, err := s.lister.RunToCompletion(ctx, jobID, bucket, prefix, syncMaxObjects)
	if err != nil {
		s.log.Error("synchronous listing failed", logger.Error(err))
		return nil, apperror.NewInternal("failed to enumerate bucket", err)
	}

	return &CreateScanResponse{
		JobID:            jobID,
		Bucket:           bucket,
		Prefix:           prefix,
		Status:           JobStatusProcessing,
		ObjectsProcessed: &processed,
		MessagesEnqueued: &enqueued,
	}, nil
}

// GetJobStatus produces the aggregated status for a job, reading counters
// from the cached projection unless real-time is requested or the
// projection has no row yet for the job.
func (s *Service) GetJobStatus(ctx context.Context, jobID uuid.UUID, realTime bool) (*JobStatusResponse, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &JobStatusResponse{
		JobID:      job.JobID,
		Bucket:     job.Bucket,
		Prefix:     job.Prefix,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		DataSource: "real_time",
	}

	var stats *JobStats

	if !realTime {
		cached, meta, err := s.progress.GetJobProgress(ctx, jobID)
		if err != nil {
			s.log.Warn("cached progress lookup failed, falling back to real-time", logger.Error(err))
		} else if cached != nil {
			stats = &JobStats{
				Queued:        cached.QueuedCount,
				Processing:    cached.ProcessingCount,
				Succeeded:     cached.SucceededCount,
				Failed:        cached.FailedCount,
				Total:         cached.TotalObjects,
				TotalFindings: cached.TotalFindings,
			}
			resp.DataSource = "cached"
			if meta != nil {
				resp.CacheUpdatedAt = &meta.LastRefreshedAt
				resp.CacheRefreshDurationMS = &meta.RefreshDurationMS
			}
		}
	}

	if stats == nil {
		stats, err = s.repo.GetJobStats(ctx, jobID)
		if err != nil {
			return nil, apperror.ErrInternal.WithInternal(err)
		}
	}

	var execStatus stepfn.ExecutionStatus
	if job.ExecutionARN != nil && *job.ExecutionARN != "" && s.sfn.Enabled() {
		execStatus, err = s.sfn.DescribeExecution(ctx, *job.ExecutionARN)
		if err != nil {
			s.log.Warn("execution lookup failed, deriving from counters",
				slog.String("execution_arn", *job.ExecutionARN),
				logger.Error(err),
			)
			execStatus = ""
		}
	}

	resp.Status, resp.Message = deriveStatus(execStatus, stats)
	resp.Queued = stats.Queued
	resp.Processing = stats.Processing
	resp.Succeeded = stats.Succeeded
	resp.Failed = stats.Failed
	resp.Total = stats.Total
	resp.TotalFindings = stats.TotalFindings
	resp.ProgressPercent = stats.ProgressPercent()

	return resp, nil
}
