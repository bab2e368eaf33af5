// Package stepfn wraps Step Functions for driving durable listing loops.
package stepfn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"go.uber.org/fx"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/pkg/logger"
)

var Module = fx.Module("stepfn",
	fx.Provide(NewService),
)

// ExecutionStatus mirrors the Step Functions execution status values.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusSucceeded ExecutionStatus = "SUCCEEDED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusTimedOut  ExecutionStatus = "TIMED_OUT"
	StatusAborted   ExecutionStatus = "ABORTED"
)

// Service starts and inspects state machine executions.
type Service struct {
	client          *sfn.Client
	stateMachineARN string
	log             *slog.Logger
}

// NewService creates a Step Functions service. Enabled() reports false when
// no state machine ARN is configured, in which case callers fall back to
// synchronous listing.
func NewService(awsCfg aws.Config, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		client:          sfn.NewFromConfig(awsCfg),
		stateMachineARN: cfg.AWS.StateMachineARN,
		log:             log.With(logger.Scope("stepfn")),
	}
}

// Enabled reports whether a state machine is configured.
func (s *Service) Enabled() bool {
	return s.stateMachineARN != ""
}

// StartExecution launches an execution named scan-<jobID> with the given
// input payload and returns the execution ARN.
func (s *Service) StartExecution(ctx context.Context, jobID string, input any) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal execution input: %w", err)
	}

	result, err := s.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Name:            aws.String("scan-" + jobID),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		return "", fmt.Errorf("start execution: %w", err)
	}

	arn := aws.ToString(result.ExecutionArn)
	s.log.Info("execution started",
		slog.String("job_id", jobID),
		slog.String("execution_arn", arn),
	)

	return arn, nil
}

// DescribeExecution returns the current status of an execution.
func (s *Service) DescribeExecution(ctx context.Context, executionARN string) (ExecutionStatus, error) {
	result, err := s.client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
		ExecutionArn: aws.String(executionARN),
	})
	if err != nil {
		return "", fmt.Errorf("describe execution: %w", err)
	}

	return ExecutionStatus(result.Status), nil
}
