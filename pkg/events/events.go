// Package events defines event types for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
)

type EventType string

// Topic is the message bus topic all lifecycle events are published on.
const Topic = "fluxion.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionSuspendedEvent EventType = "execution.suspended"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Task lifecycle events.
	TaskEnqueuedEvent EventType = "task.enqueued"
	TaskStartedEvent  EventType = "task.started"
	TaskFinishedEvent EventType = "task.finished"

	// Trigger and approval events.
	TriggerFiredEvent      EventType = "trigger.fired"
	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalDecidedEvent   EventType = "approval.decided"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Input       map[string]any `json:"input,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Output      map[string]any `json:"output,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionSuspended struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	ApprovalID  string `json:"approval_id"`
}

func (e ExecutionSuspended) GetType() EventType { return ExecutionSuspendedEvent }

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	ApprovalID  string `json:"approval_id"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type TaskEnqueued struct {
	BaseEvent

	TaskID    string `json:"task_id"`
	TriggerID string `json:"trigger_id,omitempty"`
}

func (e TaskEnqueued) GetType() EventType { return TaskEnqueuedEvent }

type TaskStarted struct {
	BaseEvent

	TaskID string `json:"task_id"`
}

func (e TaskStarted) GetType() EventType { return TaskStartedEvent }

type TaskFinished struct {
	BaseEvent

	TaskID string            `json:"task_id"`
	Status models.TaskStatus `json:"status"`
	Error  string            `json:"error,omitempty"`
}

func (e TaskFinished) GetType() EventType { return TaskFinishedEvent }

type TriggerFired struct {
	BaseEvent

	TriggerID string                  `json:"trigger_id"`
	Status    models.TriggerLogStatus `json:"status"`
	Attempt   int                     `json:"attempt"`
}

func (e TriggerFired) GetType() EventType { return TriggerFiredEvent }

type ApprovalRequested struct {
	BaseEvent

	ApprovalID  string `json:"approval_id"`
	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Message     string `json:"message,omitempty"`
}

func (e ApprovalRequested) GetType() EventType { return ApprovalRequestedEvent }

type ApprovalDecided struct {
	BaseEvent

	ApprovalID string                `json:"approval_id"`
	Status     models.ApprovalStatus `json:"status"`
	UserID     string                `json:"user_id,omitempty"`
}

func (e ApprovalDecided) GetType() EventType { return ApprovalDecidedEvent }
