// Package engine walks workflow graphs and produces execution results.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxion-io/fluxion/pkg/eventbus"
	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/otelhelper"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/processors/approval"
	"github.com/fluxion-io/fluxion/pkg/registry"
)

// Engine executes workflow graphs. One Engine serves many concurrent
// runs; all per-run state lives in the ExecutionContext.
type Engine struct {
	logger      *slog.Logger
	registry    *registry.Registry
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
}

// NewEngine builds an engine. A nil publisher disables lifecycle event
// publication; a nil tracer falls back to the global provider.
func NewEngine(logger *slog.Logger, reg *registry.Registry, persist persistence.Persistence, publisher eventbus.EventPublisher, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = otel.Tracer("fluxion-engine")
	}

	return &Engine{
		logger:      logger,
		registry:    reg,
		persistence: persist,
		publisher:   publisher,
		tracer:      tracer,
	}
}

// Execute runs a workflow synchronously from the start. Validation
// failures are returned as errors before any node executes; once the
// walk begins, every outcome is reported as an ExecutionResult.
func (e *Engine) Execute(ctx context.Context, workflow *models.Workflow, input map[string]any) (*models.ExecutionResult, error) {
	warnings, err := ValidateGraph(workflow)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow graph: %w", err)
	}

	for _, node := range workflow.Nodes {
		if err := e.registry.ValidateConfig(node); err != nil {
			return nil, fmt.Errorf("invalid workflow graph: %w", err)
		}
	}

	execCtx := models.NewExecutionContext("exec-"+uuid.New().String(), workflow, input)

	e.logger.InfoContext(ctx, "Starting workflow execution",
		"workflow_id", workflow.ID,
		"execution_id", execCtx.ID,
	)

	e.publish(ctx, execCtx.ID, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: execCtx.ID,
		Input:       input,
	})

	return e.run(ctx, workflow, execCtx, warnings), nil
}

// run drives the walker until the graph completes, fails, suspends or
// the context is cancelled. It never panics and never returns an error;
// callers always receive a well-formed result.
func (e *Engine) run(ctx context.Context, workflow *models.Workflow, execCtx *models.ExecutionContext, warnings []string) *models.ExecutionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execCtx.ID),
	)
	defer span.End()

	w := newWalker(workflow, execCtx)

	for {
		// Cooperative cancellation, checked between node executions.
		if ctx.Err() != nil {
			e.logger.WarnContext(ctx, "Workflow execution cancelled",
				"execution_id", execCtx.ID, "reason", ctx.Err())

			e.publish(context.WithoutCancel(ctx), execCtx.ID, events.ExecutionCancelled{
				BaseEvent:   e.baseEvent(events.ExecutionCancelledEvent, workflow.ID),
				ExecutionID: execCtx.ID,
				Reason:      ctx.Err().Error(),
			})

			return e.result(execCtx, models.ExecutionStatusCancelled, nil, warnings, nil, "")
		}

		node := w.nextReady()
		if node == nil {
			break
		}

		output := e.processNode(ctx, node, execCtx)

		switch output.Status {
		case models.NodeOutputError:
			// The failure is reported through result.Error only; the
			// output map keeps just the nodes that succeeded.
			e.logger.ErrorContext(ctx, "Node execution failed",
				"execution_id", execCtx.ID, "node_id", node.ID, "error", output.Error)

			execErr := &models.ExecutionError{NodeID: node.ID, Message: output.Error}

			return e.fail(ctx, execCtx, warnings, execErr)

		case models.NodeOutputSuspended:
			return e.suspend(ctx, workflow, node, execCtx, warnings)

		case models.NodeOutputSuccess:
			execCtx.SetOutput(output)
			w.settle(node, output)
			w.cascadeSkips()
		}
	}

	output := assembleOutput(workflow, execCtx, &warnings)

	e.logger.InfoContext(ctx, "Workflow execution completed", "execution_id", execCtx.ID)

	result := e.result(execCtx, models.ExecutionStatusCompleted, output, warnings, nil, "")

	e.publish(ctx, execCtx.ID, events.ExecutionCompleted{
		BaseEvent:   e.baseEvent(events.ExecutionCompletedEvent, workflow.ID),
		ExecutionID: execCtx.ID,
		Output:      output,
		DurationMs:  result.DurationMs,
	})

	return result
}

// processNode resolves the processor for a node and invokes it. Any
// panic or returned error is converted into an error output so the run
// loop sees one uniform failure shape.
func (e *Engine) processNode(ctx context.Context, node *models.Node, execCtx *models.ExecutionContext) (output *models.NodeOutput) {
	startedAt := time.Now().UTC()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "node.process",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		attribute.String(otelhelper.ExecutionIDKey, execCtx.ID),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("processor panic: %v", r)
			otelhelper.SetError(span, err)
			output = models.NewNodeError(node.ID, err.Error(), startedAt)
		}
	}()

	processor, err := e.registry.Processor(node.Type)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.NewNodeError(node.ID, err.Error(), startedAt)
	}

	output, err = processor.Process(ctx, node, execCtx)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.NewNodeError(node.ID, err.Error(), startedAt)
	}

	if output == nil {
		return models.NewNodeError(node.ID, "processor returned no output", startedAt)
	}

	return output
}

// suspend persists the approval request and the run snapshot, then
// reports the run as suspended. The reached APPROVAL node has no entry
// in the snapshot; resume injects the decision as that node's output.
func (e *Engine) suspend(ctx context.Context, workflow *models.Workflow, node *models.Node, execCtx *models.ExecutionContext, warnings []string) *models.ExecutionResult {
	request, err := approval.BuildRequest(node, execCtx)
	if err != nil {
		execErr := &models.ExecutionError{NodeID: node.ID, Message: err.Error()}

		return e.fail(ctx, execCtx, warnings, execErr)
	}

	if err := e.persistence.Approvals().Create(ctx, request); err != nil {
		execErr := &models.ExecutionError{NodeID: node.ID, Message: fmt.Sprintf("failed to persist approval request: %v", err)}

		return e.fail(ctx, execCtx, warnings, execErr)
	}

	suspension := &models.Suspension{
		ApprovalID:  request.ID,
		ExecutionID: execCtx.ID,
		WorkflowID:  workflow.ID,
		NodeID:      node.ID,
		Context:     execCtx,
		Workflow:    workflow,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.persistence.Suspensions().Create(ctx, suspension); err != nil {
		execErr := &models.ExecutionError{NodeID: node.ID, Message: fmt.Sprintf("failed to persist suspension: %v", err)}

		return e.fail(ctx, execCtx, warnings, execErr)
	}

	e.logger.InfoContext(ctx, "Workflow execution suspended",
		"execution_id", execCtx.ID, "node_id", node.ID, "approval_id", request.ID)

	e.publish(ctx, execCtx.ID, events.ApprovalRequested{
		BaseEvent:   e.baseEvent(events.ApprovalRequestedEvent, workflow.ID),
		ApprovalID:  request.ID,
		ExecutionID: execCtx.ID,
		NodeID:      node.ID,
		Message:     request.Message,
	})
	e.publish(ctx, execCtx.ID, events.ExecutionSuspended{
		BaseEvent:   e.baseEvent(events.ExecutionSuspendedEvent, workflow.ID),
		ExecutionID: execCtx.ID,
		NodeID:      node.ID,
		ApprovalID:  request.ID,
	})

	return e.result(execCtx, models.ExecutionStatusSuspended, nil, warnings, nil, request.ID)
}

// fail builds a FAILED result and announces it on the event bus.
func (e *Engine) fail(ctx context.Context, execCtx *models.ExecutionContext, warnings []string, execErr *models.ExecutionError) *models.ExecutionResult {
	event := events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, execCtx.WorkflowID),
		ExecutionID: execCtx.ID,
	}
	if execErr != nil {
		event.NodeID = execErr.NodeID
		event.Error = execErr.Message
	}

	e.publish(ctx, execCtx.ID, event)

	return e.result(execCtx, models.ExecutionStatusFailed, nil, warnings, execErr, "")
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         "evt-" + uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) result(execCtx *models.ExecutionContext, status models.ExecutionStatus, output map[string]any, warnings []string, execErr *models.ExecutionError, approvalID string) *models.ExecutionResult {
	now := time.Now().UTC()

	return &models.ExecutionResult{
		ExecutionID: execCtx.ID,
		WorkflowID:  execCtx.WorkflowID,
		Status:      status,
		Output:      output,
		NodeOutputs: execCtx.NodeOutputs,
		Error:       execErr,
		ApprovalID:  approvalID,
		Warnings:    warnings,
		StartedAt:   execCtx.StartedAt,
		CompletedAt: now,
		DurationMs:  now.Sub(execCtx.StartedAt).Milliseconds(),
	}
}

// assembleOutput derives the run output from executed OUTPUT nodes. A
// single executed OUTPUT node contributes its data directly; several
// are keyed by node id to avoid silently merging colliding fields.
func assembleOutput(workflow *models.Workflow, execCtx *models.ExecutionContext, warnings *[]string) map[string]any {
	var executed []*models.NodeOutput

	for _, node := range workflow.NodesByType(models.NodeTypeOutput) {
		if output := execCtx.Output(node.ID); output != nil && output.Status == models.NodeOutputSuccess {
			executed = append(executed, output)
		}
	}

	switch len(executed) {
	case 0:
		return nil
	case 1:
		return executed[0].Data
	default:
		*warnings = append(*warnings, "multiple OUTPUT nodes executed; run output is keyed by node id")

		combined := make(map[string]any, len(executed))
		for _, output := range executed {
			combined[output.NodeID] = output.Data
		}

		return combined
	}
}
