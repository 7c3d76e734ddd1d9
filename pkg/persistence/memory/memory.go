// Package memory provides an in-memory persistence implementation used in
// tests and single-process deployments.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// Persistence implements persistence.Persistence with process-local maps.
// All repositories share one lock; entities are deep-copied on the way
// in and out so callers never alias stored state.
type Persistence struct {
	mu sync.RWMutex

	workflows   map[string]*models.Workflow
	tasks       map[string]*models.Task
	triggers    map[string]*models.Trigger
	triggerLogs map[string][]*models.TriggerLog
	approvals   map[string]*models.ApprovalRequest
	suspensions map[string]*models.Suspension
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:   make(map[string]*models.Workflow),
		tasks:       make(map[string]*models.Task),
		triggers:    make(map[string]*models.Trigger),
		triggerLogs: make(map[string][]*models.TriggerLog),
		approvals:   make(map[string]*models.ApprovalRequest),
		suspensions: make(map[string]*models.Suspension),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository     { return &workflowRepo{p} }
func (p *Persistence) Tasks() persistence.TaskRepository             { return &taskRepo{p} }
func (p *Persistence) Triggers() persistence.TriggerRepository       { return &triggerRepo{p} }
func (p *Persistence) TriggerLogs() persistence.TriggerLogRepository { return &triggerLogRepo{p} }
func (p *Persistence) Approvals() persistence.ApprovalRepository     { return &approvalRepo{p} }
func (p *Persistence) Suspensions() persistence.SuspensionRepository { return &suspensionRepo{p} }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

// clone deep-copies an entity through its JSON representation.
func clone[T any](value *T) *T {
	if value == nil {
		return nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}

	copied := new(T)
	if err := json.Unmarshal(encoded, copied); err != nil {
		panic(err)
	}

	return copied
}

type workflowRepo struct{ p *Persistence }

func (r *workflowRepo) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflow, ok := r.p.workflows[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return clone(workflow), nil
}

func (r *workflowRepo) Save(_ context.Context, workflow *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.workflows[workflow.ID] = clone(workflow)

	return nil
}

func (r *workflowRepo) List(_ context.Context) ([]*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.p.workflows))
	for _, workflow := range r.p.workflows {
		workflows = append(workflows, clone(workflow))
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })

	return workflows, nil
}

func (r *workflowRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.workflows[id]; !ok {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.p.workflows, id)

	return nil
}

type taskRepo struct{ p *Persistence }

func (r *taskRepo) Create(_ context.Context, task *models.Task) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.tasks[task.ID]; ok {
		return persistence.NewStoreError("Create", "task", task.ID, persistence.ErrAlreadyExists)
	}

	r.p.tasks[task.ID] = clone(task)

	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	task, ok := r.p.tasks[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "task", id, persistence.ErrTaskNotFound)
	}

	return clone(task), nil
}

func (r *taskRepo) Transition(_ context.Context, id string, from models.TaskStatus, mutate func(*models.Task)) (*models.Task, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	task, ok := r.p.tasks[id]
	if !ok {
		return nil, persistence.NewStoreError("Transition", "task", id, persistence.ErrTaskNotFound)
	}

	if task.Status != from {
		return nil, persistence.NewStoreError("Transition", "task", id, persistence.ErrInvalidTaskTransition)
	}

	updated := clone(task)
	mutate(updated)
	r.p.tasks[id] = updated

	return clone(updated), nil
}

func (r *taskRepo) ListByStatus(_ context.Context, status models.TaskStatus) ([]*models.Task, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var tasks []*models.Task

	for _, task := range r.p.tasks {
		if task.Status == status {
			tasks = append(tasks, clone(task))
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })

	return tasks, nil
}

type triggerRepo struct{ p *Persistence }

func (r *triggerRepo) Create(_ context.Context, trigger *models.Trigger) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.triggers[trigger.ID]; ok {
		return persistence.NewStoreError("Create", "trigger", trigger.ID, persistence.ErrAlreadyExists)
	}

	r.p.triggers[trigger.ID] = clone(trigger)

	return nil
}

func (r *triggerRepo) GetByID(_ context.Context, id string) (*models.Trigger, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	trigger, ok := r.p.triggers[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "trigger", id, persistence.ErrTriggerNotFound)
	}

	return clone(trigger), nil
}

func (r *triggerRepo) GetByWebhookPath(_ context.Context, path string) (*models.Trigger, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, trigger := range r.p.triggers {
		if trigger.Type == models.TriggerTypeWebhook && trigger.WebhookPath == path {
			return clone(trigger), nil
		}
	}

	return nil, persistence.NewStoreError("GetByWebhookPath", "trigger", path, persistence.ErrTriggerNotFound)
}

func (r *triggerRepo) Update(_ context.Context, trigger *models.Trigger) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.triggers[trigger.ID]; !ok {
		return persistence.NewStoreError("Update", "trigger", trigger.ID, persistence.ErrTriggerNotFound)
	}

	r.p.triggers[trigger.ID] = clone(trigger)

	return nil
}

func (r *triggerRepo) ListEnabled(_ context.Context) ([]*models.Trigger, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var triggers []*models.Trigger

	for _, trigger := range r.p.triggers {
		if trigger.Enabled {
			triggers = append(triggers, clone(trigger))
		}
	}

	sort.Slice(triggers, func(i, j int) bool { return triggers[i].ID < triggers[j].ID })

	return triggers, nil
}

func (r *triggerRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.triggers[id]; !ok {
		return persistence.NewStoreError("Delete", "trigger", id, persistence.ErrTriggerNotFound)
	}

	delete(r.p.triggers, id)

	return nil
}

type triggerLogRepo struct{ p *Persistence }

func (r *triggerLogRepo) Create(_ context.Context, log *models.TriggerLog) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.triggerLogs[log.TriggerID] = append(r.p.triggerLogs[log.TriggerID], clone(log))

	return nil
}

func (r *triggerLogRepo) ListByTrigger(_ context.Context, triggerID string) ([]*models.TriggerLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	logs := make([]*models.TriggerLog, 0, len(r.p.triggerLogs[triggerID]))
	for _, log := range r.p.triggerLogs[triggerID] {
		logs = append(logs, clone(log))
	}

	return logs, nil
}

type approvalRepo struct{ p *Persistence }

func (r *approvalRepo) Create(_ context.Context, request *models.ApprovalRequest) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.approvals[request.ID]; ok {
		return persistence.NewStoreError("Create", "approval", request.ID, persistence.ErrAlreadyExists)
	}

	r.p.approvals[request.ID] = clone(request)

	return nil
}

func (r *approvalRepo) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	request, ok := r.p.approvals[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
	}

	return clone(request), nil
}

func (r *approvalRepo) Update(_ context.Context, request *models.ApprovalRequest) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.approvals[request.ID]; !ok {
		return persistence.NewStoreError("Update", "approval", request.ID, persistence.ErrApprovalNotFound)
	}

	r.p.approvals[request.ID] = clone(request)

	return nil
}

func (r *approvalRepo) ListExpired(_ context.Context, now time.Time) ([]*models.ApprovalRequest, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var expired []*models.ApprovalRequest

	for _, request := range r.p.approvals {
		if request.IsExpired(now) {
			expired = append(expired, clone(request))
		}
	}

	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })

	return expired, nil
}

type suspensionRepo struct{ p *Persistence }

func (r *suspensionRepo) Create(_ context.Context, suspension *models.Suspension) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.suspensions[suspension.ApprovalID]; ok {
		return persistence.NewStoreError("Create", "suspension", suspension.ApprovalID, persistence.ErrAlreadyExists)
	}

	r.p.suspensions[suspension.ApprovalID] = clone(suspension)

	return nil
}

func (r *suspensionRepo) GetByApprovalID(_ context.Context, approvalID string) (*models.Suspension, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	suspension, ok := r.p.suspensions[approvalID]
	if !ok {
		return nil, persistence.NewStoreError("GetByApprovalID", "suspension", approvalID, persistence.ErrSuspensionNotFound)
	}

	return clone(suspension), nil
}

func (r *suspensionRepo) MarkDiscarded(_ context.Context, approvalID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	suspension, ok := r.p.suspensions[approvalID]
	if !ok {
		return persistence.NewStoreError("MarkDiscarded", "suspension", approvalID, persistence.ErrSuspensionNotFound)
	}

	suspension.Discarded = true

	return nil
}

func (r *suspensionRepo) Delete(_ context.Context, approvalID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.suspensions[approvalID]; !ok {
		return persistence.NewStoreError("Delete", "suspension", approvalID, persistence.ErrSuspensionNotFound)
	}

	delete(r.p.suspensions, approvalID)

	return nil
}
