package models

import "time"

// TaskStatus defines the queue lifecycle of an asynchronously executed
// run. Transitions are strictly monotonic: pending -> running -> terminal.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusSuspended means the run reached an APPROVAL node. The
	// queue's part is done; the run continues through the approval flow
	// and its outcome is visible on the approval request.
	TaskStatusSuspended TaskStatus = "suspended"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed ||
		s == TaskStatusCancelled || s == TaskStatusSuspended
}

// Task is one queued workflow run. Result is set on finished tasks,
// Error only on failed ones, ApprovalID only on suspended ones. A
// running task whose StartedAt is older than a liveness threshold
// should be treated as stuck by an external monitor; the queue never
// requeues on its own.
type Task struct {
	ID             string           `json:"id"`
	WorkflowID     string           `json:"workflow_id"     validate:"required"`
	OrganizationID string           `json:"organization_id"`
	SubmittedBy    string           `json:"submitted_by"`
	TriggerID      string           `json:"trigger_id,omitempty"`
	Status         TaskStatus       `json:"status"`
	Input          map[string]any   `json:"input,omitempty"`
	Result         *ExecutionResult `json:"result,omitempty"`
	Error          string           `json:"error,omitempty"`
	ApprovalID     string           `json:"approval_id,omitempty"`
	// CancelRequested is set on a running task whose caller asked for
	// cancellation; the executing worker honors it between nodes.
	CancelRequested bool       `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
