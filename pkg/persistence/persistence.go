// Package persistence provides the data storage abstraction for workflows,
// tasks, triggers and suspended runs.
package persistence

import (
	"context"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// Persistence bundles the repositories the engine and its orchestration
// layers need. The engine treats the store as simple CRUD behind these
// interfaces; implementations guarantee per-key atomicity for the
// conditional updates (a given task or trigger id is only mutated
// through its owning repository call).
type Persistence interface {
	Workflows() WorkflowRepository
	Tasks() TaskRepository
	Triggers() TriggerRepository
	TriggerLogs() TriggerLogRepository
	Approvals() ApprovalRepository
	Suspensions() SuspensionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow graph definitions.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	List(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// TaskRepository stores queue units. Transition applies mutate under
// the store's per-key atomicity, but only when the task currently has
// the expected status; otherwise ErrInvalidTaskTransition.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Transition(ctx context.Context, id string, from models.TaskStatus, mutate func(*models.Task)) (*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)
}

// TriggerRepository stores trigger configurations and their counters.
type TriggerRepository interface {
	Create(ctx context.Context, trigger *models.Trigger) error
	GetByID(ctx context.Context, id string) (*models.Trigger, error)
	GetByWebhookPath(ctx context.Context, path string) (*models.Trigger, error)
	Update(ctx context.Context, trigger *models.Trigger) error
	ListEnabled(ctx context.Context) ([]*models.Trigger, error)
	Delete(ctx context.Context, id string) error
}

// TriggerLogRepository records firing attempts.
type TriggerLogRepository interface {
	Create(ctx context.Context, log *models.TriggerLog) error
	ListByTrigger(ctx context.Context, triggerID string) ([]*models.TriggerLog, error)
}

// ApprovalRepository stores approval requests and their decisions.
type ApprovalRepository interface {
	Create(ctx context.Context, request *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	Update(ctx context.Context, request *models.ApprovalRequest) error
	ListExpired(ctx context.Context, now time.Time) ([]*models.ApprovalRequest, error)
}

// SuspensionRepository stores suspended-run snapshots keyed by approval
// request id.
type SuspensionRepository interface {
	Create(ctx context.Context, suspension *models.Suspension) error
	GetByApprovalID(ctx context.Context, approvalID string) (*models.Suspension, error)
	MarkDiscarded(ctx context.Context, approvalID string) error
	Delete(ctx context.Context, approvalID string) error
}
