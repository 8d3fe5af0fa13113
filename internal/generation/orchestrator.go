package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-service/internal/model"

	"go.uber.org/zap"
)

// Job lifecycle errors.
var (
	// ErrSubmissionFailed signals that the gateway rejected a submission.
	ErrSubmissionFailed = errors.New("job submission failed")

	// ErrJobFailed signals that a job reached the failed state. The remote
	// error message travels verbatim in the wrapping JobError.
	ErrJobFailed = errors.New("job failed")

	// ErrJobTimeout signals that awaiting a job exceeded the client-side
	// timeout. The job itself is not cancelled server-side.
	ErrJobTimeout = errors.New("job polling timed out")
)

// JobError carries the remote error message of a failed job for display.
type JobError struct {
	JobID   string
	Message string
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

func (e *JobError) Unwrap() error { return ErrJobFailed }

// Orchestrator submits generation jobs and polls them to completion.
// Multiple jobs may be awaited concurrently; it does not serialize
// submissions. Guarding against a duplicate job for the same target is the
// caller's job, via Tracker.
type Orchestrator struct {
	gateway      Gateway
	pollInterval time.Duration
	timeout      time.Duration
	logger       *zap.Logger
}

// NewOrchestrator creates an orchestrator polling at pollInterval with a
// per-await timeout.
func NewOrchestrator(gateway Gateway, pollInterval, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:      gateway,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       logger,
	}
}

// Submit sends the request to the gateway. Domain preconditions (selection
// counts and the like) are the caller's to validate before calling; the
// orchestrator only knows the job lifecycle.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	jobID, err := o.gateway.Submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	return jobID, nil
}

// AwaitCompletion polls the job at the configured interval until it reaches
// a terminal state, the timeout elapses, or ctx is cancelled. Once any of
// those happens no further poll is issued. On success the final status
// response is returned; a failed job yields a *JobError with the remote
// message; timeout yields ErrJobTimeout.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, jobID string) (*StatusResponse, error) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(o.timeout)
	defer deadline.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			// Abandoned by the consumer; the remote job keeps running.
			o.logger.Info("Job polling abandoned",
				zap.String("job_id", jobID),
				zap.Int("polls", polls))
			return nil, ctx.Err()

		case <-deadline.C:
			o.logger.Warn("Job polling timed out",
				zap.String("job_id", jobID),
				zap.Duration("timeout", o.timeout),
				zap.Int("polls", polls))
			return nil, fmt.Errorf("%w after %s", ErrJobTimeout, o.timeout)

		case <-ticker.C:
			status, err := o.gateway.Status(ctx, jobID)
			if err != nil {
				return nil, err
			}
			polls++

			switch status.Status {
			case model.JobStatusSucceeded:
				o.logger.Info("Job succeeded",
					zap.String("job_id", jobID),
					zap.Int("polls", polls))
				return status, nil
			case model.JobStatusFailed:
				o.logger.Warn("Job failed",
					zap.String("job_id", jobID),
					zap.String("error_message", status.ErrorMessage))
				return nil, &JobError{JobID: jobID, Message: status.ErrorMessage}
			}
			// queued or running: keep polling.
		}
	}
}
