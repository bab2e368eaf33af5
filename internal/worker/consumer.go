package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/queue"
	"github.com/oversec/bucketscan/pkg/logger"
)

const (
	idleSleep    = time.Second
	errorBackoff = 5 * time.Second
)

// MessageSource receives and acknowledges queue messages.
type MessageSource interface {
	Receive(ctx context.Context, maxMessages int32) ([]queue.Message, error)
	DeleteBatch(ctx context.Context, receiptHandles []string) error
}

// Consumer runs the worker main loop: receive, dispatch, acknowledge.
type Consumer struct {
	source     MessageSource
	processor  *Processor
	batchSize  int32
	maxWorkers int
	log        *slog.Logger
}

// NewConsumer creates a new consumer
func NewConsumer(source MessageSource, processor *Processor, cfg *config.Config, log *slog.Logger) *Consumer {
	return &Consumer{
		source:     source,
		processor:  processor,
		batchSize:  int32(cfg.Scanner.BatchSize),
		maxWorkers: cfg.Scanner.MaxWorkers,
		log:        log.With(logger.Scope("worker.consumer")),
	}
}

// Run loops until ctx is cancelled. The current batch always completes
// before shutdown; only the next long-poll is skipped.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("worker started",
		slog.Int("batch_size", int(c.batchSize)),
		slog.Int("max_workers", c.maxWorkers),
	)

	for {
		if ctx.Err() != nil {
			c.log.Info("worker shutting down")
			return nil
		}

		messages, err := c.source.Receive(ctx, c.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("worker shutting down")
				return nil
			}
			c.log.Error("receive failed, backing off", logger.Error(err))
			sleep(ctx, errorBackoff)
			continue
		}

		if len(messages) > 0 {
			c.processBatch(ctx, messages)
		}

		sleep(ctx, idleSleep)
	}
}

// processBatch fans the batch out to the bounded pool and acknowledges
// every message whose outcome was classified. The batch runs on a
// background context so an in-flight batch completes during shutdown.
func (c *Consumer) processBatch(ctx context.Context, messages []queue.Message) {
	batchCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	acks := make([]string, 0, len(messages))

	g, gctx := errgroup.WithContext(batchCtx)
	g.SetLimit(c.maxWorkers)

	for _, msg := range messages {
		g.Go(func() error {
			outcome, err := c.processor.Process(gctx, msg.Envelope)
			if err != nil {
				c.log.Warn("message left for redelivery",
					slog.String("key", msg.Envelope.Key),
					logger.Error(err),
				)
				return nil
			}

			c.log.Debug("message processed",
				slog.String("key", msg.Envelope.Key),
				slog.String("outcome", string(outcome)),
			)

			mu.Lock()
			acks = append(acks, msg.ReceiptHandle)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	if len(acks) > 0 {
		if err := c.source.DeleteBatch(batchCtx, acks); err != nil {
			c.log.Error("failed to acknowledge messages", logger.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
