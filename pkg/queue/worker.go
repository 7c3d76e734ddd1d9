package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/eventbus"
	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// Worker consumes task ids from the broker and executes them through
// the engine. Claiming a task is a conditional pending to running
// transition, so a task id delivered twice is executed once.
type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	broker      Broker
	publisher   eventbus.EventPublisher
	concurrency int
	cancelPoll  time.Duration
}

const defaultCancelPoll = 250 * time.Millisecond

func NewWorker(logger *slog.Logger, persist persistence.Persistence, eng *engine.Engine, broker Broker, publisher eventbus.EventPublisher, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}

	id := "worker-" + uuid.New().String()

	return &Worker{
		id:          id,
		logger:      logger.With("worker_id", id),
		persistence: persist,
		engine:      eng,
		broker:      broker,
		publisher:   publisher,
		concurrency: concurrency,
		cancelPoll:  defaultCancelPoll,
	}
}

func (w *Worker) ID() string { return w.id }

// Run consumes tasks until ctx is cancelled or the broker closes.
func (w *Worker) Run(ctx context.Context) error {
	taskIDs, err := w.broker.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming tasks: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started", "concurrency", w.concurrency)

	var wg sync.WaitGroup

	for range w.concurrency {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for taskID := range taskIDs {
				w.handle(ctx, taskID)
			}
		}()
	}

	wg.Wait()

	w.logger.InfoContext(ctx, "Worker stopped")

	return nil
}

func (w *Worker) handle(ctx context.Context, taskID string) {
	now := time.Now().UTC()

	task, err := w.persistence.Tasks().Transition(ctx, taskID, models.TaskStatusPending, func(t *models.Task) {
		t.Status = models.TaskStatusRunning
		t.StartedAt = &now
	})
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidTaskTransition) {
			w.logger.DebugContext(ctx, "Task already claimed or cancelled", "task_id", taskID)

			return
		}

		w.logger.ErrorContext(ctx, "Failed to claim task", "task_id", taskID, "error", err)

		return
	}

	w.logger.InfoContext(ctx, "Task started", "task_id", task.ID, "workflow_id", task.WorkflowID)
	w.publish(ctx, task.ID, events.TaskStarted{
		BaseEvent: w.baseEvent(events.TaskStartedEvent, task.WorkflowID),
		TaskID:    task.ID,
	})

	// The run gets its own cancellable context so a caller-requested
	// cancel stops this task without touching the worker's lifetime.
	runCtx, cancelRun := context.WithCancel(ctx)
	go w.watchCancellation(runCtx, task.ID, cancelRun)

	result, runErr := w.execute(runCtx, task)
	cancelRun()

	w.complete(ctx, task, result, runErr)
}

// watchCancellation polls the running task and cancels the run context
// once a caller has flagged it; the engine then stops between node
// executions. It exits when the run context ends.
func (w *Worker) watchCancellation(ctx context.Context, taskID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(w.cancelPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, err := w.persistence.Tasks().GetByID(ctx, taskID)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to poll task for cancellation",
					"task_id", taskID, "error", err)

				continue
			}

			if task.CancelRequested {
				w.logger.InfoContext(ctx, "Task cancellation observed", "task_id", taskID)
				cancel()

				return
			}
		}
	}
}

func (w *Worker) execute(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, task.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", task.WorkflowID, err)
	}

	return w.engine.Execute(ctx, workflow, task.Input)
}

func (w *Worker) complete(ctx context.Context, task *models.Task, result *models.ExecutionResult, runErr error) {
	now := time.Now().UTC()

	status := models.TaskStatusCompleted
	errorMessage := ""
	approvalID := ""

	switch {
	case runErr != nil:
		status = models.TaskStatusFailed
		errorMessage = runErr.Error()
	case result.Status == models.ExecutionStatusFailed:
		status = models.TaskStatusFailed

		if result.Error != nil {
			errorMessage = fmt.Sprintf("node %s: %s", result.Error.NodeID, result.Error.Message)
		}
	case result.Status == models.ExecutionStatusCancelled:
		status = models.TaskStatusCancelled
	case result.Status == models.ExecutionStatusSuspended:
		status = models.TaskStatusSuspended
		approvalID = result.ApprovalID
	}

	updated, err := w.persistence.Tasks().Transition(ctx, task.ID, models.TaskStatusRunning, func(t *models.Task) {
		t.Status = status
		t.Result = result
		t.Error = errorMessage
		t.ApprovalID = approvalID
		t.CompletedAt = &now
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to finish task", "task_id", task.ID, "error", err)

		return
	}

	w.logger.InfoContext(ctx, "Task finished",
		"task_id", task.ID, "status", updated.Status, "error", errorMessage)

	w.publish(ctx, task.ID, events.TaskFinished{
		BaseEvent: w.baseEvent(events.TaskFinishedEvent, task.WorkflowID),
		TaskID:    task.ID,
		Status:    status,
		Error:     errorMessage,
	})

	if task.TriggerID != "" {
		w.recordTriggerResult(ctx, updated, errorMessage)
	}
}

// recordTriggerResult writes a trigger log entry and updates the
// trigger's fire counters for tasks created by a webhook trigger.
func (w *Worker) recordTriggerResult(ctx context.Context, task *models.Task, errorMessage string) {
	now := time.Now().UTC()

	// A suspended run is not a trigger failure; the trigger delivered.
	status := models.TriggerLogSuccess
	if task.Status != models.TaskStatusCompleted && task.Status != models.TaskStatusSuspended {
		status = models.TriggerLogFailed
	}

	durationMs := int64(0)
	if task.StartedAt != nil {
		durationMs = now.Sub(*task.StartedAt).Milliseconds()
	}

	log := &models.TriggerLog{
		ID:           "tlog-" + uuid.New().String(),
		TriggerID:    task.TriggerID,
		WorkflowID:   task.WorkflowID,
		Status:       status,
		Attempt:      1,
		ErrorMessage: errorMessage,
		FiredAt:      now,
		DurationMs:   durationMs,
	}

	if err := w.persistence.TriggerLogs().Create(ctx, log); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record trigger log",
			"trigger_id", task.TriggerID, "error", err)
	}

	trigger, err := w.persistence.Triggers().GetByID(ctx, task.TriggerID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to load trigger for counter update",
			"trigger_id", task.TriggerID, "error", err)

		return
	}

	trigger.TriggerCount++
	trigger.LastTriggeredAt = &now

	if status == models.TriggerLogSuccess {
		trigger.LastSuccessAt = &now
	} else {
		trigger.LastFailureAt = &now
	}

	if err := w.persistence.Triggers().Update(ctx, trigger); err != nil {
		w.logger.ErrorContext(ctx, "Failed to update trigger counters",
			"trigger_id", task.TriggerID, "error", err)
	}
}

func (w *Worker) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         "evt-" + uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		WorkerID:   w.id,
	}
}

func (w *Worker) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.Publish(ctx, key, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
