package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func marshalDocument[T any](op, entity, id string, value *T) ([]byte, error) {
	document, err := json.Marshal(value)
	if err != nil {
		return nil, persistence.NewStoreError(op, entity, id, err)
	}

	return document, nil
}

func unmarshalDocument[T any](op, entity, id string, document []byte) (*T, error) {
	value := new(T)
	if err := json.Unmarshal(document, value); err != nil {
		return nil, persistence.NewStoreError(op, entity, id, err)
	}

	return value, nil
}

type workflowRepository struct {
	db *sql.DB
}

func (r *workflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM workflows WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return unmarshalDocument[models.Workflow]("GetByID", "workflow", id, document)
}

func (r *workflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	document, err := marshalDocument("Save", "workflow", workflow.ID, workflow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, owner, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner = EXCLUDED.owner,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Owner, document, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM workflows ORDER BY created_at DESC")
	if err != nil {
		return nil, persistence.NewStoreError("List", "workflow", "", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("List", "workflow", "", err)
		}

		workflow, err := unmarshalDocument[models.Workflow]("List", "workflow", "", document)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("List", "workflow", "", err)
	}

	return workflows, nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type taskRepository struct {
	db *sql.DB
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	document, err := marshalDocument("Create", "task", task.ID, task)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, workflow_id, organization_id, trigger_id, status, document, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID, task.WorkflowID, task.OrganizationID, task.TriggerID,
		string(task.Status), document, task.CreatedAt, task.StartedAt, task.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("Create", "task", task.ID, persistence.ErrAlreadyExists)
		}

		return persistence.NewStoreError("Create", "task", task.ID, err)
	}

	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM tasks WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "task", id, persistence.ErrTaskNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "task", id, err)
	}

	return unmarshalDocument[models.Task]("GetByID", "task", id, document)
}

// Transition applies mutate to the task only while its status still matches
// from. The row is locked for update so concurrent workers cannot claim the
// same task twice.
func (r *taskRepository) Transition(ctx context.Context, id string, from models.TaskStatus, mutate func(*models.Task)) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewStoreError("Transition", "task", id, err)
	}

	defer func() { _ = tx.Rollback() }()

	var document []byte

	err = tx.QueryRowContext(ctx, "SELECT document FROM tasks WHERE id = $1 FOR UPDATE", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("Transition", "task", id, persistence.ErrTaskNotFound)
		}

		return nil, persistence.NewStoreError("Transition", "task", id, err)
	}

	task, err := unmarshalDocument[models.Task]("Transition", "task", id, document)
	if err != nil {
		return nil, err
	}

	if task.Status != from {
		return nil, persistence.NewStoreError("Transition", "task", id, persistence.ErrInvalidTaskTransition)
	}

	mutate(task)

	updated, err := marshalDocument("Transition", "task", id, task)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks
		SET status = $2, document = $3, started_at = $4, completed_at = $5
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query, id, string(task.Status), updated, task.StartedAt, task.CompletedAt)
	if err != nil {
		return nil, persistence.NewStoreError("Transition", "task", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence.NewStoreError("Transition", "task", id, err)
	}

	return task, nil
}

func (r *taskRepository) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM tasks WHERE status = $1 ORDER BY created_at ASC", string(status))
	if err != nil {
		return nil, persistence.NewStoreError("ListByStatus", "task", "", err)
	}
	defer rows.Close()

	var tasks []*models.Task

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ListByStatus", "task", "", err)
		}

		task, err := unmarshalDocument[models.Task]("ListByStatus", "task", "", document)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ListByStatus", "task", "", err)
	}

	return tasks, nil
}

type triggerRepository struct {
	db *sql.DB
}

func (r *triggerRepository) Create(ctx context.Context, trigger *models.Trigger) error {
	document, err := marshalDocument("Create", "trigger", trigger.ID, trigger)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO triggers (id, workflow_id, type, webhook_path, enabled, document, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		trigger.ID, trigger.WorkflowID, string(trigger.Type), trigger.WebhookPath,
		trigger.Enabled, document, trigger.CreatedAt, trigger.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("Create", "trigger", trigger.ID, persistence.ErrAlreadyExists)
		}

		return persistence.NewStoreError("Create", "trigger", trigger.ID, err)
	}

	return nil
}

func (r *triggerRepository) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM triggers WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "trigger", id, persistence.ErrTriggerNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "trigger", id, err)
	}

	return unmarshalDocument[models.Trigger]("GetByID", "trigger", id, document)
}

func (r *triggerRepository) GetByWebhookPath(ctx context.Context, path string) (*models.Trigger, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM triggers WHERE webhook_path = $1", path).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByWebhookPath", "trigger", path, persistence.ErrTriggerNotFound)
		}

		return nil, persistence.NewStoreError("GetByWebhookPath", "trigger", path, err)
	}

	return unmarshalDocument[models.Trigger]("GetByWebhookPath", "trigger", path, document)
}

func (r *triggerRepository) Update(ctx context.Context, trigger *models.Trigger) error {
	document, err := marshalDocument("Update", "trigger", trigger.ID, trigger)
	if err != nil {
		return err
	}

	query := `
		UPDATE triggers
		SET workflow_id = $2, type = $3, webhook_path = NULLIF($4, ''), enabled = $5, document = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		trigger.ID, trigger.WorkflowID, string(trigger.Type), trigger.WebhookPath,
		trigger.Enabled, document, trigger.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Update", "trigger", trigger.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Update", "trigger", trigger.ID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", "trigger", trigger.ID, persistence.ErrTriggerNotFound)
	}

	return nil
}

func (r *triggerRepository) ListEnabled(ctx context.Context) ([]*models.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM triggers WHERE enabled ORDER BY id ASC")
	if err != nil {
		return nil, persistence.NewStoreError("ListEnabled", "trigger", "", err)
	}
	defer rows.Close()

	var triggers []*models.Trigger

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ListEnabled", "trigger", "", err)
		}

		trigger, err := unmarshalDocument[models.Trigger]("ListEnabled", "trigger", "", document)
		if err != nil {
			return nil, err
		}

		triggers = append(triggers, trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ListEnabled", "trigger", "", err)
	}

	return triggers, nil
}

func (r *triggerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM triggers WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "trigger", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "trigger", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "trigger", id, persistence.ErrTriggerNotFound)
	}

	return nil
}

type triggerLogRepository struct {
	db *sql.DB
}

func (r *triggerLogRepository) Create(ctx context.Context, log *models.TriggerLog) error {
	document, err := marshalDocument("Create", "trigger_log", log.ID, log)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trigger_logs (id, trigger_id, workflow_id, status, document, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID, log.TriggerID, log.WorkflowID, string(log.Status), document, log.FiredAt)
	if err != nil {
		return persistence.NewStoreError("Create", "trigger_log", log.ID, err)
	}

	return nil
}

func (r *triggerLogRepository) ListByTrigger(ctx context.Context, triggerID string) ([]*models.TriggerLog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM trigger_logs WHERE trigger_id = $1 ORDER BY fired_at ASC", triggerID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByTrigger", "trigger_log", triggerID, err)
	}
	defer rows.Close()

	logs := make([]*models.TriggerLog, 0)

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ListByTrigger", "trigger_log", triggerID, err)
		}

		log, err := unmarshalDocument[models.TriggerLog]("ListByTrigger", "trigger_log", triggerID, document)
		if err != nil {
			return nil, err
		}

		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ListByTrigger", "trigger_log", triggerID, err)
	}

	return logs, nil
}

type approvalRepository struct {
	db *sql.DB
}

func (r *approvalRepository) Create(ctx context.Context, request *models.ApprovalRequest) error {
	document, err := marshalDocument("Create", "approval", request.ID, request)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approvals (id, status, expires_at, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID, string(request.Status), request.ExpiresAt, document, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("Create", "approval", request.ID, persistence.ErrAlreadyExists)
		}

		return persistence.NewStoreError("Create", "approval", request.ID, err)
	}

	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM approvals WHERE id = $1", id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "approval", id, err)
	}

	return unmarshalDocument[models.ApprovalRequest]("GetByID", "approval", id, document)
}

func (r *approvalRepository) Update(ctx context.Context, request *models.ApprovalRequest) error {
	document, err := marshalDocument("Update", "approval", request.ID, request)
	if err != nil {
		return err
	}

	query := `
		UPDATE approvals
		SET status = $2, expires_at = $3, document = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		request.ID, string(request.Status), request.ExpiresAt, document, request.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Update", "approval", request.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Update", "approval", request.ID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", "approval", request.ID, persistence.ErrApprovalNotFound)
	}

	return nil
}

func (r *approvalRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT document FROM approvals
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(models.ApprovalStatusPending), now)
	if err != nil {
		return nil, persistence.NewStoreError("ListExpired", "approval", "", err)
	}
	defer rows.Close()

	var expired []*models.ApprovalRequest

	for rows.Next() {
		var document []byte

		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewStoreError("ListExpired", "approval", "", err)
		}

		request, err := unmarshalDocument[models.ApprovalRequest]("ListExpired", "approval", "", document)
		if err != nil {
			return nil, err
		}

		expired = append(expired, request)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ListExpired", "approval", "", err)
	}

	return expired, nil
}

type suspensionRepository struct {
	db *sql.DB
}

func (r *suspensionRepository) Create(ctx context.Context, suspension *models.Suspension) error {
	document, err := marshalDocument("Create", "suspension", suspension.ApprovalID, suspension)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO suspensions (approval_id, execution_id, workflow_id, discarded, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		suspension.ApprovalID, suspension.ExecutionID, suspension.WorkflowID,
		suspension.Discarded, document, suspension.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("Create", "suspension", suspension.ApprovalID, persistence.ErrAlreadyExists)
		}

		return persistence.NewStoreError("Create", "suspension", suspension.ApprovalID, err)
	}

	return nil
}

func (r *suspensionRepository) GetByApprovalID(ctx context.Context, approvalID string) (*models.Suspension, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM suspensions WHERE approval_id = $1", approvalID).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByApprovalID", "suspension", approvalID, persistence.ErrSuspensionNotFound)
		}

		return nil, persistence.NewStoreError("GetByApprovalID", "suspension", approvalID, err)
	}

	return unmarshalDocument[models.Suspension]("GetByApprovalID", "suspension", approvalID, document)
}

func (r *suspensionRepository) MarkDiscarded(ctx context.Context, approvalID string) error {
	query := `
		UPDATE suspensions
		SET discarded = true, document = jsonb_set(document, '{discarded}', 'true')
		WHERE approval_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, approvalID)
	if err != nil {
		return persistence.NewStoreError("MarkDiscarded", "suspension", approvalID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("MarkDiscarded", "suspension", approvalID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("MarkDiscarded", "suspension", approvalID, persistence.ErrSuspensionNotFound)
	}

	return nil
}

func (r *suspensionRepository) Delete(ctx context.Context, approvalID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM suspensions WHERE approval_id = $1", approvalID)
	if err != nil {
		return persistence.NewStoreError("Delete", "suspension", approvalID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "suspension", approvalID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "suspension", approvalID, persistence.ErrSuspensionNotFound)
	}

	return nil
}
