// Package queue wraps SQS for enqueuing and consuming scan work items.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/fx"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/pkg/logger"
)

var Module = fx.Module("queue",
	fx.Provide(NewService),
)

// Envelope is the message body for a single object to scan.
type Envelope struct {
	JobID  string `json:"job_id"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag"`
}

// Message pairs a decoded envelope with its SQS receipt handle.
type Message struct {
	Envelope      Envelope
	ReceiptHandle string
}

// SQS batch APIs accept at most 10 entries per call.
const maxBatchEntries = 10

// Service provides queue operations against a single configured queue.
type Service struct {
	client   *sqs.Client
	queueURL string
	log      *slog.Logger
}

// NewService creates a queue service bound to cfg.AWS.QueueURL.
func NewService(awsCfg aws.Config, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.AWS.QueueURL,
		log:      log.With(logger.Scope("queue")),
	}
}

// SendBatch enqueues envelopes in chunks of up to 10. Per-entry failures
// are collected and returned as a single error; successfully sent entries
// stay sent.
func (s *Service) SendBatch(ctx context.Context, envelopes []Envelope) error {
	var failed int

	for start := 0; start < len(envelopes); start += maxBatchEntries {
		end := min(start+maxBatchEntries, len(envelopes))
		chunk := envelopes[start:end]

		entries := make([]types.SendMessageBatchRequestEntry, 0, len(chunk))
		for i, env := range chunk {
			body, err := json.Marshal(env)
			if err != nil {
				return fmt.Errorf("marshal envelope: %w", err)
			}

			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:                     aws.String(strconv.Itoa(i)),
				MessageBody:            aws.String(string(body)),
				MessageGroupId:         aws.String(env.Bucket),
				MessageDeduplicationId: aws.String(dedupID(env)),
			})
		}

		result, err := s.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(s.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("send message batch: %w", err)
		}

		for _, f := range result.Failed {
			failed++
			s.log.Warn("message send failed",
				slog.String("id", aws.ToString(f.Id)),
				slog.String("code", aws.ToString(f.Code)),
				slog.String("message", aws.ToString(f.Message)),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed to send", failed, len(envelopes))
	}
	return nil
}

// Receive long-polls the queue for up to maxMessages (capped at 10),
// waiting at most 20 seconds. Messages with malformed bodies are skipped
// without acknowledgement so the redrive policy can dead-letter them.
func (s *Service) Receive(ctx context.Context, maxMessages int32) ([]Message, error) {
	if maxMessages > maxBatchEntries {
		maxMessages = maxBatchEntries
	}

	result, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	messages := make([]Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		var env Envelope
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &env); err != nil {
			s.log.Warn("dropping malformed message",
				slog.String("message_id", aws.ToString(m.MessageId)),
				logger.Error(err),
			)
			continue
		}

		messages = append(messages, Message{
			Envelope:      env,
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}

	return messages, nil
}

// Delete acknowledges a single message.
func (s *Service) Delete(ctx context.Context, receiptHandle string) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// DeleteBatch acknowledges up to 10 messages per call.
func (s *Service) DeleteBatch(ctx context.Context, receiptHandles []string) error {
	for start := 0; start < len(receiptHandles); start += maxBatchEntries {
		end := min(start+maxBatchEntries, len(receiptHandles))
		chunk := receiptHandles[start:end]

		entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(chunk))
		for i, handle := range chunk {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(i)),
				ReceiptHandle: aws.String(handle),
			})
		}

		result, err := s.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(s.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("delete message batch: %w", err)
		}

		for _, f := range result.Failed {
			s.log.Warn("message delete failed",
				slog.String("id", aws.ToString(f.Id)),
				slog.String("code", aws.ToString(f.Code)),
			)
		}
	}

	return nil
}

// dedupID derives a stable content-based deduplication id so re-enqueuing
// the same object version within the dedup window is a no-op.
func dedupID(env Envelope) string {
	sum := sha256.Sum256([]byte(env.JobID + ":" + env.Bucket + ":" + env.Key + ":" + env.ETag))
	return hex.EncodeToString(sum[:])
}
