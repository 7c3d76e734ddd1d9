package web

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/queue"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	approvals   *engine.ApprovalService
	queue       *queue.Queue
	validator   *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	persist persistence.Persistence,
	eng *engine.Engine,
	approvals *engine.ApprovalService,
	q *queue.Queue,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger,
		persistence: persist,
		engine:      eng,
		approvals:   approvals,
		queue:       q,
		validator:   validate,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Workflow endpoints

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Variables:   req.Variables,
		Owner:       req.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if workflow.ID == "" {
		workflow.ID = "wf-" + uuid.New().String()
	} else if existing, err := h.persistence.Workflows().GetByID(c.Context(), workflow.ID); err == nil {
		workflow.CreatedAt = existing.CreatedAt
	}

	if _, err := engine.ValidateGraph(workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), workflow); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().List(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.Workflows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.Workflows().Delete(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Execution endpoints

// ExecuteWorkflow runs the workflow synchronously and returns the
// execution result, including the approval id when the run suspends.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.Workflows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	var req ExecuteRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	result, err := h.engine.Execute(c.Context(), workflow, req.Input)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(result)
}

// SubmitTask enqueues an async run and returns the task immediately.
func (h *APIHandlers) SubmitTask(c fiber.Ctx) error {
	var req SubmitTaskRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	task, err := h.queue.Enqueue(c.Context(), queue.Submission{
		WorkflowID:     c.Params("id"),
		OrganizationID: req.OrganizationID,
		SubmittedBy:    req.SubmittedBy,
		Input:          req.Input,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(task)
}

func (h *APIHandlers) GetTask(c fiber.Ctx) error {
	task, err := h.queue.Task(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(task)
}

// CancelTask cancels a pending task outright. For a running task it
// flags cancellation and returns the still-running task; the worker
// stops the run between node executions.
func (h *APIHandlers) CancelTask(c fiber.Ctx) error {
	task, err := h.queue.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(task)
}

// Approval endpoints

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	request, err := h.persistence.Approvals().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

// DecideApproval records a decision; when it makes the request
// terminal, the suspended run is resumed inline and its result is
// included in the response.
func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	decision := models.Decision{
		UserID:    req.UserID,
		Approved:  req.Approved,
		Comment:   req.Comment,
		DecidedAt: time.Now().UTC(),
	}

	request, result, err := h.approvals.Decide(c.Context(), c.Params("id"), decision)
	if err != nil {
		return handleError(c, err)
	}

	response := fiber.Map{"approval": request}
	if result != nil {
		response["result"] = result
	}

	return c.JSON(response)
}

func (h *APIHandlers) CancelApproval(c fiber.Ctx) error {
	request, err := h.approvals.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

// Trigger endpoints

func (h *APIHandlers) CreateTrigger(c fiber.Ctx) error {
	var req CreateTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()

	trigger := &models.Trigger{
		ID:             req.ID,
		WorkflowID:     req.WorkflowID,
		Type:           models.TriggerType(req.Type),
		Enabled:        req.Enabled,
		CronExpression: req.CronExpression,
		Timezone:       req.Timezone,
		WebhookPath:    req.WebhookPath,
		WebhookSecret:  req.WebhookSecret,
		InputTemplate:  req.InputTemplate,
		RetryOnFail:    req.RetryOnFail,
		MaxRetries:     req.MaxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if trigger.ID == "" {
		trigger.ID = "trig-" + uuid.New().String()
	}

	if err := trigger.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.persistence.Workflows().GetByID(c.Context(), trigger.WorkflowID); err != nil {
		return handleError(c, err)
	}

	if err := h.persistence.Triggers().Create(c.Context(), trigger); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(trigger)
}

func (h *APIHandlers) GetTrigger(c fiber.Ctx) error {
	trigger, err := h.persistence.Triggers().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(trigger)
}

func (h *APIHandlers) DeleteTrigger(c fiber.Ctx) error {
	if err := h.persistence.Triggers().Delete(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetTriggerLogs(c fiber.Ctx) error {
	triggerID := c.Params("id")

	if _, err := h.persistence.Triggers().GetByID(c.Context(), triggerID); err != nil {
		return handleError(c, err)
	}

	logs, err := h.persistence.TriggerLogs().ListByTrigger(c.Context(), triggerID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"logs": logs})
}
