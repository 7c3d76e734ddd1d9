package file

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

type workflowRepository struct {
	collection[models.Workflow]
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	return r.read("GetByID", id)
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	return r.write("Save", workflow.ID, workflow)
}

func (r *workflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	return r.list("List")
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	return r.remove("Delete", id)
}

type taskRepository struct {
	collection collection[models.Task]
	mu         *sync.Mutex
}

func (r *taskRepository) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.collection.create("Create", task.ID, task)
}

func (r *taskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	return r.collection.read("GetByID", id)
}

func (r *taskRepository) Transition(_ context.Context, id string, from models.TaskStatus, mutate func(*models.Task)) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.collection.read("Transition", id)
	if err != nil {
		return nil, err
	}

	if task.Status != from {
		return nil, persistence.NewStoreError("Transition", "task", id, persistence.ErrInvalidTaskTransition)
	}

	mutate(task)

	if err := r.collection.write("Transition", id, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) ListByStatus(_ context.Context, status models.TaskStatus) ([]*models.Task, error) {
	all, err := r.collection.list("ListByStatus")
	if err != nil {
		return nil, err
	}

	var tasks []*models.Task

	for _, task := range all {
		if task.Status == status {
			tasks = append(tasks, task)
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })

	return tasks, nil
}

type triggerRepository struct {
	collection[models.Trigger]
}

func (r *triggerRepository) Create(_ context.Context, trigger *models.Trigger) error {
	return r.collection.create("Create", trigger.ID, trigger)
}

func (r *triggerRepository) GetByID(_ context.Context, id string) (*models.Trigger, error) {
	return r.read("GetByID", id)
}

func (r *triggerRepository) GetByWebhookPath(_ context.Context, path string) (*models.Trigger, error) {
	all, err := r.list("GetByWebhookPath")
	if err != nil {
		return nil, err
	}

	for _, trigger := range all {
		if trigger.Type == models.TriggerTypeWebhook && trigger.WebhookPath == path {
			return trigger, nil
		}
	}

	return nil, persistence.NewStoreError("GetByWebhookPath", "trigger", path, persistence.ErrTriggerNotFound)
}

func (r *triggerRepository) Update(_ context.Context, trigger *models.Trigger) error {
	if !r.exists(trigger.ID) {
		return persistence.NewStoreError("Update", "trigger", trigger.ID, persistence.ErrTriggerNotFound)
	}

	return r.write("Update", trigger.ID, trigger)
}

func (r *triggerRepository) ListEnabled(_ context.Context) ([]*models.Trigger, error) {
	all, err := r.list("ListEnabled")
	if err != nil {
		return nil, err
	}

	var triggers []*models.Trigger

	for _, trigger := range all {
		if trigger.Enabled {
			triggers = append(triggers, trigger)
		}
	}

	return triggers, nil
}

func (r *triggerRepository) Delete(_ context.Context, id string) error {
	return r.remove("Delete", id)
}

type triggerLogRepository struct {
	collection[models.TriggerLog]
}

func (r *triggerLogRepository) Create(_ context.Context, log *models.TriggerLog) error {
	return r.write("Create", log.ID, log)
}

func (r *triggerLogRepository) ListByTrigger(_ context.Context, triggerID string) ([]*models.TriggerLog, error) {
	all, err := r.list("ListByTrigger")
	if err != nil {
		return nil, err
	}

	var logs []*models.TriggerLog

	for _, log := range all {
		if log.TriggerID == triggerID {
			logs = append(logs, log)
		}
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].FiredAt.Before(logs[j].FiredAt) })

	return logs, nil
}

type approvalRepository struct {
	collection[models.ApprovalRequest]
}

func (r *approvalRepository) Create(_ context.Context, request *models.ApprovalRequest) error {
	return r.collection.create("Create", request.ID, request)
}

func (r *approvalRepository) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	return r.read("GetByID", id)
}

func (r *approvalRepository) Update(_ context.Context, request *models.ApprovalRequest) error {
	if !r.exists(request.ID) {
		return persistence.NewStoreError("Update", "approval", request.ID, persistence.ErrApprovalNotFound)
	}

	return r.write("Update", request.ID, request)
}

func (r *approvalRepository) ListExpired(_ context.Context, now time.Time) ([]*models.ApprovalRequest, error) {
	all, err := r.list("ListExpired")
	if err != nil {
		return nil, err
	}

	var expired []*models.ApprovalRequest

	for _, request := range all {
		if request.IsExpired(now) {
			expired = append(expired, request)
		}
	}

	return expired, nil
}

type suspensionRepository struct {
	collection collection[models.Suspension]
	mu         *sync.Mutex
}

func (r *suspensionRepository) Create(_ context.Context, suspension *models.Suspension) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.collection.create("Create", suspension.ApprovalID, suspension)
}

func (r *suspensionRepository) GetByApprovalID(_ context.Context, approvalID string) (*models.Suspension, error) {
	return r.collection.read("GetByApprovalID", approvalID)
}

func (r *suspensionRepository) MarkDiscarded(_ context.Context, approvalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	suspension, err := r.collection.read("MarkDiscarded", approvalID)
	if err != nil {
		return err
	}

	suspension.Discarded = true

	return r.collection.write("MarkDiscarded", approvalID, suspension)
}

func (r *suspensionRepository) Delete(_ context.Context, approvalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.collection.remove("Delete", approvalID)
}
