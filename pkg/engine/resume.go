package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/processors/approval"
)

// Resume continues a suspended run after its approval request reached a
// terminal status. The decision outcome becomes the APPROVAL node's
// output and the walk picks up from the suspension point; outputs
// computed before the suspension are not recomputed.
//
// The snapshot is discarded before the walk restarts, so a second
// resume for the same approval fails with ErrSuspensionDiscarded.
func (e *Engine) Resume(ctx context.Context, approvalID string) (*models.ExecutionResult, error) {
	request, err := e.persistence.Approvals().GetByID(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval request: %w", err)
	}

	if !request.Status.IsTerminal() {
		return nil, ErrApprovalNotDecided
	}

	suspension, err := e.persistence.Suspensions().GetByApprovalID(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load suspension snapshot: %w", err)
	}

	if suspension.Discarded {
		return nil, ErrSuspensionDiscarded
	}

	if err := e.persistence.Suspensions().MarkDiscarded(ctx, approvalID); err != nil {
		return nil, fmt.Errorf("failed to discard suspension snapshot: %w", err)
	}

	execCtx := suspension.Context
	workflow := suspension.Workflow

	decision := models.NewNodeOutput(suspension.NodeID, approval.DecisionData(request), time.Now().UTC())
	execCtx.SetOutput(decision)

	e.logger.InfoContext(ctx, "Resuming suspended workflow execution",
		"execution_id", execCtx.ID,
		"workflow_id", workflow.ID,
		"approval_id", approvalID,
		"approval_status", request.Status,
	)

	e.publish(ctx, execCtx.ID, events.ExecutionResumed{
		BaseEvent:   e.baseEvent(events.ExecutionResumedEvent, workflow.ID),
		ExecutionID: execCtx.ID,
		ApprovalID:  approvalID,
	})

	return e.run(ctx, workflow, execCtx, nil), nil
}
