package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"mipgate/src/core/job"
)

// TasksTopic is the in-process topic completion tasks are published on.
const TasksTopic = "agent.tasks"

// DefaultResult is the payload written on successful completion. It stands
// in for real agent output until an execution backend is plugged in.
const DefaultResult = "Task executed successfully"

// taskMessage is the wire form of one scheduled completion task.
type taskMessage struct {
	JobID string `json:"job_id"`
}

// Runner executes the deferred completion step of a confirmed job: wait out
// the simulated work delay, then drive the job to COMPLETED. It consumes
// from TasksTopic so scheduling a task never blocks request handling.
type Runner struct {
	svc       *job.Service
	repo      job.Repository
	publisher message.Publisher
	delay     time.Duration
	logger    watermill.LoggerAdapter
}

func NewRunner(
	svc *job.Service,
	repo job.Repository,
	publisher message.Publisher,
	delay time.Duration,
	logger watermill.LoggerAdapter,
) *Runner {
	return &Runner{
		svc:       svc,
		repo:      repo,
		publisher: publisher,
		delay:     delay,
		logger:    logger,
	}
}

// Enqueue schedules the completion task for a job. The message is handed to
// the queue and the call returns immediately; the caller never waits on the
// task's outcome.
func (r *Runner) Enqueue(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(taskMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal task message: %w", err)
	}

	// The message deliberately does not inherit the request context: the
	// task outlives the request that scheduled it.
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := r.publisher.Publish(TasksTopic, msg); err != nil {
		return fmt.Errorf("failed to publish task message: %w", err)
	}

	return nil
}

// Handle processes one completion task from the queue.
//
// The task can observe the job in either AWAITING_PAYMENT or RUNNING
// depending on which entry path scheduled it, and in AWAITING_INPUT when the
// job was parked for more input in the meantime. Any non-terminal start is
// first advanced to RUNNING, then RUNNING advances to COMPLETED.
//
// This is a best-effort background operation with no caller waiting on it:
// every failure is logged and swallowed so the router never retries and
// never crashes.
func (r *Runner) Handle(msg *message.Message) error {
	var task taskMessage
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		r.logger.Error("Failed to unmarshal task message", err, nil)
		return nil
	}

	// Placeholder for real agent work (model inference, external queries).
	time.Sleep(r.delay)

	ctx := context.Background()

	current, err := r.repo.Get(ctx, task.JobID)
	if err != nil {
		r.logger.Error("Failed to load job for completion", err, watermill.LogFields{
			"job_id": task.JobID,
		})
		return nil
	}

	if current.Status == job.StatusAwaitingPayment || current.Status == job.StatusAwaitingInput {
		if _, err := r.svc.AdvanceState(ctx, task.JobID, job.StatusRunning, nil, nil); err != nil {
			r.logger.Error("Failed to advance job to running", err, watermill.LogFields{
				"job_id": task.JobID,
			})
			return nil
		}
	}

	result := DefaultResult
	if _, err := r.svc.AdvanceState(ctx, task.JobID, job.StatusCompleted, &result, nil); err != nil {
		r.logger.Error("Failed to complete job", err, watermill.LogFields{
			"job_id": task.JobID,
		})
		return nil
	}

	r.logger.Info("Job completed", watermill.LogFields{
		"job_id": task.JobID,
	})
	return nil
}
