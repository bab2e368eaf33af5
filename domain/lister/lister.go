// Package lister implements one iteration of the listing/enqueue state
// machine. The durable loop driver (Step Functions, or the orchestrator's
// synchronous fallback) re-invokes Run with the returned state until Done.
package lister

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oversec/bucketscan/domain/scans"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/internal/storage"
	"github.com/oversec/bucketscan/pkg/logger"
)

const (
	// Objects handled per iteration before handing the token back to the
	// driver.
	batchLimit = 10_000
	// Object store page size.
	pageSize = 1_000
	// Bus batch maximum.
	sendGroupSize = 10
	// Concurrent in-flight send groups.
	sendConcurrency = 20
)

// State is the input and output of one iteration. The driver persists it
// between invocations.
type State struct {
	JobID             string  `json:"job_id"`
	Bucket            string  `json:"bucket"`
	Prefix            string  `json:"prefix"`
	ContinuationToken *string `json:"continuation_token"`
	ObjectsProcessed  int     `json:"objects_processed"`

	BatchSize        int  `json:"batch_size"`
	MessagesEnqueued int  `json:"messages_enqueued"`
	Done             bool `json:"done"`
}

// ObjectLister lists one page of a bucket.
type ObjectLister interface {
	ListPage(ctx context.Context, bucket, prefix, continuationToken string, pageSize int32) (*storage.Page, error)
}

// BatchSender submits one group of envelopes to the bus.
type BatchSender interface {
	SendBatch(ctx context.Context, envelopes []queue.Envelope) error
}

// ObjectInserter persists listed objects as queued work units.
type ObjectInserter interface {
	InsertObjects(ctx context.Context, objects []*scans.JobObject) error
}

// Lister runs listing/enqueue iterations.
type Lister struct {
	store    ObjectLister
	sender   BatchSender
	inserter ObjectInserter
	log      *slog.Logger
}

// New creates a new lister
func New(store ObjectLister, sender BatchSender, inserter ObjectInserter, log *slog.Logger) *Lister {
	return &Lister{
		store:    store,
		sender:   sender,
		inserter: inserter,
		log:      log.With(logger.Scope("lister")),
	}
}

// Run executes one iteration: page through the store up to the batch
// limit, insert the objects as queued, fan the envelopes out to the bus in
// groups, and return the trailing continuation token. Listing and insert
// errors fail the whole iteration so the driver can retry it; partial send
// failures are logged and tallied, not fatal.
func (l *Lister) Run(ctx context.Context, in State) (State, error) {
	jobID, err := uuid.Parse(in.JobID)
	if err != nil {
		return in, fmt.Errorf("invalid job id %q: %w", in.JobID, err)
	}

	token := ""
	if in.ContinuationToken != nil {
		token = *in.ContinuationToken
	}

	var listed []storage.ObjectInfo
	for len(listed) < batchLimit {
		size := min(pageSize, batchLimit-len(listed))

		page, err := l.store.ListPage(ctx, in.Bucket, in.Prefix, token, int32(size))
		if err != nil {
			return in, fmt.Errorf("list page: %w", err)
		}

		listed = append(listed, page.Objects...)
		token = page.NextToken
		if token == "" {
			break
		}
	}

	enqueued := 0
	if len(listed) > 0 {
		objects := make([]*scans.JobObject, 0, len(listed))
		envelopes := make([]queue.Envelope, 0, len(listed))
		for _, obj := range listed {
			objects = append(objects, &scans.JobObject{
				JobID:  jobID,
				Bucket: in.Bucket,
				Key:    obj.Key,
				ETag:   obj.ETag,
				Status: scans.StatusQueued,
			})
			envelopes = append(envelopes, queue.Envelope{
				JobID:  in.JobID,
				Bucket: in.Bucket,
				Key:    obj.Key,
				ETag:   obj.ETag,
			})
		}

		if err := l.inserter.InsertObjects(ctx, objects); err != nil {
			return in, fmt.Errorf("insert objects: %w", err)
		}

		enqueued = l.sendAll(ctx, envelopes)
	}

	out := State{
		JobID:            in.JobID,
		Bucket:           in.Bucket,
		Prefix:           in.Prefix,
		ObjectsProcessed: in.ObjectsProcessed + len(listed),
		BatchSize:        len(listed),
		MessagesEnqueued: enqueued,
		Done:             token == "",
	}
	if token != "" {
		out.ContinuationToken = &token
	}

	l.log.Info("lister iteration complete",
		slog.String("job_id", in.JobID),
		slog.Int("batch_size", out.BatchSize),
		slog.Int("messages_enqueued", out.MessagesEnqueued),
		slog.Int("objects_processed", out.ObjectsProcessed),
		slog.Bool("done", out.Done),
	)

	return out, nil
}

// sendAll submits envelopes in groups of 10 across 20 concurrent workers
// and returns the number successfully enqueued.
func (l *Lister) sendAll(ctx context.Context, envelopes []queue.Envelope) int {
	var sent atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)

	for start := 0; start < len(envelopes); start += sendGroupSize {
		group := envelopes[start:min(start+sendGroupSize, len(envelopes))]

		g.Go(func() error {
			if err := l.sender.SendBatch(gctx, group); err != nil {
				l.log.Warn("batch send failed",
					slog.Int("group_size", len(group)),
					logger.Error(err),
				)
				return nil
			}
			sent.Add(int64(len(group)))
			return nil
		})
	}

	// Workers never return errors; this is purely the join barrier.
	_ = g.Wait()

	return int(sent.Load())
}

// RunToCompletion loops iterations inline until Done or maxObjects is
// reached. Used by the orchestrator when no durable loop driver is
// configured.
func (l *Lister) RunToCompletion(ctx context.Context, jobID uuid.UUID, bucket, prefix string, maxObjects int) (int, int, error) {
	state := State{
		JobID:  jobID.String(),
		Bucket: bucket,
		Prefix: prefix,
	}

	enqueued := 0
	for {
		var err error
		state, err = l.Run(ctx, state)
		if err != nil {
			return state.ObjectsProcessed, enqueued, err
		}
		enqueued += state.MessagesEnqueued

		if state.Done {
			return state.ObjectsProcessed, enqueued, nil
		}
		if state.ObjectsProcessed >= maxObjects {
			l.log.Warn("synchronous listing truncated",
				slog.String("job_id", jobID.String()),
				slog.Int("objects_processed", state.ObjectsProcessed),
				slog.Int("max_objects", maxObjects),
			)
			return state.ObjectsProcessed, enqueued, nil
		}
	}
}
