// Package web provides HTTP handlers and REST API endpoints for workflow execution.
package web

import "github.com/fluxion-io/fluxion/pkg/models"

// SaveWorkflowRequest represents the request body for creating or
// replacing a workflow graph.
type SaveWorkflowRequest struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Nodes       []*models.Node `json:"nodes"       validate:"required,min=1,dive"`
	Edges       []*models.Edge `json:"edges"       validate:"dive"`
	Variables   map[string]any `json:"variables"`
	Owner       string         `json:"owner"`
}

// ExecuteRequest represents the request body for a synchronous run.
type ExecuteRequest struct {
	Input map[string]any `json:"input"`
}

// SubmitTaskRequest represents the request body for an async run.
type SubmitTaskRequest struct {
	OrganizationID string         `json:"organization_id"`
	SubmittedBy    string         `json:"submitted_by"`
	Input          map[string]any `json:"input"`
}

// DecisionRequest represents the request body for deciding an approval.
type DecisionRequest struct {
	UserID   string `json:"user_id"  validate:"required"`
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

// CreateTriggerRequest represents the request body for creating a trigger.
type CreateTriggerRequest struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"     validate:"required"`
	Type           string         `json:"type"            validate:"required,oneof=SCHEDULE WEBHOOK"`
	CronExpression string         `json:"cron_expression"`
	Timezone       string         `json:"timezone"`
	WebhookPath    string         `json:"webhook_path"`
	WebhookSecret  string         `json:"webhook_secret"`
	InputTemplate  map[string]any `json:"input_template"`
	RetryOnFail    bool           `json:"retry_on_fail"`
	MaxRetries     int            `json:"max_retries"     validate:"min=0,max=10"`
	Enabled        bool           `json:"enabled"`
}
