// Package worker drains the scan queue: it long-polls envelopes, fans them
// out to a bounded pool, runs detection, persists results, and acknowledges
// classified messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/pkg/detect"
	"github.com/oversec/bucketscan/pkg/logger"
)

// Outcome classifies the result of processing one envelope. Classified
// outcomes are acknowledged; an unclassified error leaves the message for
// redelivery.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Extensions eligible for scanning. Everything else is skipped.
var allowedExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// ObjectStore fetches object metadata and bodies.
type ObjectStore interface {
	Head(ctx context.Context, bucket, key string) (int64, string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// StatusUpdater advances a JobObject's status.
type StatusUpdater interface {
	UpdateObjectStatus(ctx context.Context, jobID uuid.UUID, bucket, key, etag string, status scans.ObjectStatus, lastError *string) (bool, error)
}

// FindingsWriter persists detection results for one object version.
type FindingsWriter interface {
	InsertBatch(ctx context.Context, jobID uuid.UUID, bucket, key, etag string, results []detect.Finding) (int, error)
}

// Processor runs the per-envelope scan pipeline.
type Processor struct {
	store    ObjectStore
	status   StatusUpdater
	findings FindingsWriter
	detector *detect.Detector
	maxSize  int64
	log      *slog.Logger
}

// NewProcessor creates a new processor
func NewProcessor(store ObjectStore, status StatusUpdater, findings FindingsWriter, cfg *config.Config, log *slog.Logger) *Processor {
	return &Processor{
		store:    store,
		status:   status,
		findings: findings,
		detector: detect.New(),
		maxSize:  cfg.Scanner.MaxFileSizeBytes(),
		log:      log.With(logger.Scope("worker.processor")),
	}
}

// Process runs the pipeline for one envelope: mark processing, gate by
// extension and size, fetch, decode, detect, persist, mark terminal. A
// non-nil error means the outcome could not be recorded and the message
// must not be acknowledged.
func (p *Processor) Process(ctx context.Context, env queue.Envelope) (Outcome, error) {
	jobID, err := uuid.Parse(env.JobID)
	if err != nil {
		// Unparseable job ids cannot be recorded against any row; treat
		// as a poison message for the bus redrive policy.
		return "", fmt.Errorf("invalid job id %q: %w", env.JobID, err)
	}

	if _, err := p.status.UpdateObjectStatus(ctx, jobID, env.Bucket, env.Key, env.ETag, scans.StatusProcessing, nil); err != nil {
		return p.fail(ctx, jobID, env, fmt.Sprintf("mark processing: %v", err))
	}

	size, contentType, err := p.store.Head(ctx, env.Bucket, env.Key)
	if err != nil {
		return p.fail(ctx, jobID, env, fmt.Sprintf("head object: %v", err))
	}

	ext := strings.ToLower(filepath.Ext(env.Key))
	if !allowedExtensions[ext] || size > p.maxSize {
		p.log.Debug("object skipped",
			slog.String("key", env.Key),
			slog.String("ext", ext),
			slog.Int64("size", size),
			slog.String("content_type", contentType),
		)
		if _, err := p.status.UpdateObjectStatus(ctx, jobID, env.Bucket, env.Key, env.ETag, scans.StatusSucceeded, nil); err != nil {
			return "", fmt.Errorf("mark skipped object succeeded: %w", err)
		}
		return OutcomeSkipped, nil
	}

	data, err := p.store.Get(ctx, env.Bucket, env.Key)
	if err != nil {
		return p.fail(ctx, jobID, env, fmt.Sprintf("get object: %v", err))
	}

	content, err := detect.DecodeText(data)
	if err != nil {
		msg := "Could not decode file"
		if _, err := p.status.UpdateObjectStatus(ctx, jobID, env.Bucket, env.Key, env.ETag, scans.StatusSucceeded, &msg); err != nil {
			return "", fmt.Errorf("mark undecodable object succeeded: %w", err)
		}
		return OutcomeSkipped, nil
	}

	results := p.detector.Detect(content)

	if _, err := p.findings.InsertBatch(ctx, jobID, env.Bucket, env.Key, env.ETag, results); err != nil {
		return p.fail(ctx, jobID, env, fmt.Sprintf("insert findings: %v", err))
	}

	if _, err := p.status.UpdateObjectStatus(ctx, jobID, env.Bucket, env.Key, env.ETag, scans.StatusSucceeded, nil); err != nil {
		return p.fail(ctx, jobID, env, fmt.Sprintf("mark succeeded: %v", err))
	}

	if len(results) > 0 {
		p.log.Info("findings recorded",
			slog.String("job_id", env.JobID),
			slog.String("key", env.Key),
			slog.Int("count", len(results)),
		)
	}

	return OutcomeSucceeded, nil
}

// fail records a failed terminal status with the error text. If even that
// write fails the outcome is unclassified and the message stays visible.
func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, env queue.Envelope, errText string) (Outcome, error) {
	p.log.Error("object processing failed",
		slog.String("job_id", env.JobID),
		slog.String("key", env.Key),
		slog.String("error", errText),
	)

	if _, err := p.status.UpdateObjectStatus(ctx, jobID, env.Bucket, env.Key, env.ETag, scans.StatusFailed, &errText); err != nil {
		return "", fmt.Errorf("mark failed: %w", err)
	}
	return OutcomeFailed, nil
}
