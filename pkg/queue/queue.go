package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/eventbus"
	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// Submission is a request to run a workflow asynchronously.
type Submission struct {
	WorkflowID     string
	OrganizationID string
	SubmittedBy    string
	TriggerID      string
	Input          map[string]any
}

// Queue accepts workflow execution requests and returns immediately
// with a task id. The task is persisted before the broker sees it, so
// it is retrievable even if no worker has picked it up yet.
type Queue struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	broker      Broker
	publisher   eventbus.EventPublisher
}

// NewQueue builds a queue. A nil publisher disables task event
// publication.
func NewQueue(logger *slog.Logger, persist persistence.Persistence, broker Broker, publisher eventbus.EventPublisher) *Queue {
	return &Queue{
		logger:      logger,
		persistence: persist,
		broker:      broker,
		publisher:   publisher,
	}
}

// Enqueue creates a pending task for the workflow and schedules it for
// execution.
func (q *Queue) Enqueue(ctx context.Context, submission Submission) (*models.Task, error) {
	if _, err := q.persistence.Workflows().GetByID(ctx, submission.WorkflowID); err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", submission.WorkflowID, err)
	}

	task := &models.Task{
		ID:             "task-" + uuid.New().String(),
		WorkflowID:     submission.WorkflowID,
		OrganizationID: submission.OrganizationID,
		SubmittedBy:    submission.SubmittedBy,
		TriggerID:      submission.TriggerID,
		Status:         models.TaskStatusPending,
		Input:          submission.Input,
		CreatedAt:      time.Now().UTC(),
	}

	if err := q.persistence.Tasks().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	if err := q.broker.Publish(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("failed to publish task %s: %w", task.ID, err)
	}

	q.logger.InfoContext(ctx, "Task enqueued",
		"task_id", task.ID, "workflow_id", task.WorkflowID)

	if q.publisher != nil {
		event := events.TaskEnqueued{
			BaseEvent: events.BaseEvent{
				ID:         "evt-" + uuid.New().String(),
				Type:       events.TaskEnqueuedEvent,
				Timestamp:  task.CreatedAt,
				WorkflowID: task.WorkflowID,
			},
			TaskID:    task.ID,
			TriggerID: task.TriggerID,
		}

		if err := q.publisher.Publish(ctx, task.ID, event); err != nil {
			q.logger.ErrorContext(ctx, "Failed to publish event",
				"event_type", event.GetType(), "error", err)
		}
	}

	return task, nil
}

// Task returns the current state of a task, including its result or
// error once terminal.
func (q *Queue) Task(ctx context.Context, taskID string) (*models.Task, error) {
	return q.persistence.Tasks().GetByID(ctx, taskID)
}

// Cancel stops a task. A pending task is cancelled immediately and
// never runs. Cancelling a running task is cooperative: the request is
// flagged on the task and the executing worker stops the run between
// node executions, so the returned task still reports running until
// the worker observes the flag.
func (q *Queue) Cancel(ctx context.Context, taskID string) (*models.Task, error) {
	now := time.Now().UTC()

	task, err := q.persistence.Tasks().Transition(ctx, taskID, models.TaskStatusPending, func(t *models.Task) {
		t.Status = models.TaskStatusCancelled
		t.CompletedAt = &now
	})
	if err == nil {
		q.logger.InfoContext(ctx, "Task cancelled", "task_id", taskID)

		return task, nil
	}

	if !errors.Is(err, persistence.ErrInvalidTaskTransition) {
		return nil, err
	}

	task, err = q.persistence.Tasks().Transition(ctx, taskID, models.TaskStatusRunning, func(t *models.Task) {
		t.CancelRequested = true
	})
	if err != nil {
		return nil, err
	}

	q.logger.InfoContext(ctx, "Task cancellation requested", "task_id", taskID)

	return task, nil
}

// StuckTasks lists running tasks whose startedAt is older than the
// liveness threshold. The queue never requeues them; detection is for
// external intervention.
func (q *Queue) StuckTasks(ctx context.Context, threshold time.Duration) ([]*models.Task, error) {
	running, err := q.persistence.Tasks().ListByStatus(ctx, models.TaskStatusRunning)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-threshold)

	var stuck []*models.Task

	for _, task := range running {
		if task.StartedAt != nil && task.StartedAt.Before(cutoff) {
			stuck = append(stuck, task)
		}
	}

	return stuck, nil
}
