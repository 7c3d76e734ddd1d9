// Package approval provides the human-approval processor and request construction.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/template"
)

// Processor never completes synchronously: it returns a suspended
// output, which signals the engine to halt the run, persist its state
// and wait for an external decision.
type Processor struct{}

func (p *Processor) Process(_ context.Context, node *models.Node, _ *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()
	now := time.Now().UTC()

	return &models.NodeOutput{
		NodeID:      node.ID,
		Status:      models.NodeOutputSuspended,
		StartedAt:   startedAt,
		CompletedAt: now,
		DurationMs:  now.Sub(startedAt).Milliseconds(),
	}, nil
}

// BuildRequest constructs the ApprovalRequest for a reached APPROVAL
// node from its config. The engine persists it together with the run's
// suspension snapshot.
func BuildRequest(node *models.Node, execCtx *models.ExecutionContext) (*models.ApprovalRequest, error) {
	now := time.Now().UTC()

	request := &models.ApprovalRequest{
		ID:                "appr-" + uuid.New().String(),
		ExecutionID:       execCtx.ID,
		WorkflowID:        execCtx.WorkflowID,
		NodeID:            node.ID,
		Status:            models.ApprovalStatusPending,
		RequiredApprovals: 1,
		TimeoutAction:     models.TimeoutActionReject,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if message, ok := node.Config["message"].(string); ok && message != "" {
		rendered, err := template.Resolve(message, execCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render approval message: %w", err)
		}

		request.Message = fmt.Sprintf("%v", rendered)
	}

	if required, ok := node.Config["required_approvals"].(float64); ok && required >= 1 {
		request.RequiredApprovals = int(required)
	}

	if action, ok := node.Config["timeout_action"].(string); ok && action != "" {
		switch models.TimeoutAction(action) {
		case models.TimeoutActionApprove, models.TimeoutActionReject, models.TimeoutActionLeave:
			request.TimeoutAction = models.TimeoutAction(action)
		default:
			return nil, fmt.Errorf("unknown timeout_action %q", action)
		}
	}

	if hours, ok := node.Config["timeout_hours"].(float64); ok && hours > 0 {
		expiresAt := now.Add(time.Duration(hours * float64(time.Hour)))
		request.ExpiresAt = &expiresAt
	}

	return request, nil
}

// DecisionData shapes a terminal approval outcome as the APPROVAL
// node's output data for the resumed run.
func DecisionData(request *models.ApprovalRequest) map[string]any {
	decisions := make([]any, 0, len(request.Decisions))
	comments := make([]any, 0, len(request.Decisions))

	for _, decision := range request.Decisions {
		decisions = append(decisions, map[string]any{
			"user_id":    decision.UserID,
			"approved":   decision.Approved,
			"comment":    decision.Comment,
			"decided_at": decision.DecidedAt.Format(time.RFC3339),
		})

		if decision.Comment != "" {
			comments = append(comments, decision.Comment)
		}
	}

	return map[string]any{
		"approved":  request.Status == models.ApprovalStatusApproved,
		"status":    string(request.Status),
		"decisions": decisions,
		"comments":  comments,
	}
}
