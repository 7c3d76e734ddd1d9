package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/eventbus"
	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// ApprovalService records decisions on pending approval requests and
// drives the resume or cancellation that follows.
type ApprovalService struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *Engine
	publisher   eventbus.EventPublisher
}

// NewApprovalService builds the service. A nil publisher disables
// approval event publication.
func NewApprovalService(logger *slog.Logger, persist persistence.Persistence, engine *Engine, publisher eventbus.EventPublisher) *ApprovalService {
	return &ApprovalService{
		logger:      logger,
		persistence: persist,
		engine:      engine,
		publisher:   publisher,
	}
}

// Decide appends a decision to a pending request. When the decision
// makes the request terminal, the suspended run is resumed and its
// result returned; otherwise the result is nil and the request stays
// pending for further approvers.
func (s *ApprovalService) Decide(ctx context.Context, approvalID string, decision models.Decision) (*models.ApprovalRequest, *models.ExecutionResult, error) {
	request, err := s.persistence.Approvals().GetByID(ctx, approvalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load approval request: %w", err)
	}

	if request.Status.IsTerminal() {
		return nil, nil, ErrApprovalDecided
	}

	if request.IsExpired(time.Now().UTC()) {
		return nil, nil, fmt.Errorf("approval request %s expired: %w", approvalID, ErrApprovalDecided)
	}

	status := request.Record(decision)

	if err := s.persistence.Approvals().Update(ctx, request); err != nil {
		return nil, nil, fmt.Errorf("failed to persist approval decision: %w", err)
	}

	s.logger.InfoContext(ctx, "Approval decision recorded",
		"approval_id", approvalID, "user_id", decision.UserID,
		"approved", decision.Approved, "status", status)

	s.announceDecision(ctx, request, decision.UserID)

	if !status.IsTerminal() {
		return request, nil, nil
	}

	result, err := s.engine.Resume(ctx, approvalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resume execution for approval %s: %w", approvalID, err)
	}

	return request, result, nil
}

// Cancel terminates a pending request without resuming the run and
// discards the suspension snapshot so a stale resume cannot reanimate
// the suspended execution.
func (s *ApprovalService) Cancel(ctx context.Context, approvalID string) (*models.ApprovalRequest, error) {
	request, err := s.persistence.Approvals().GetByID(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval request: %w", err)
	}

	if request.Status.IsTerminal() {
		return nil, ErrApprovalDecided
	}

	request.Status = models.ApprovalStatusCancelled
	request.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Approvals().Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to persist approval cancellation: %w", err)
	}

	if err := s.persistence.Suspensions().MarkDiscarded(ctx, approvalID); err != nil {
		return nil, fmt.Errorf("failed to discard suspension snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "Approval request cancelled", "approval_id", approvalID)

	s.announceDecision(ctx, request, "")

	return request, nil
}

// announceDecision publishes the request's current status. Non-terminal
// statuses are announced too so observers can track partial quorums.
func (s *ApprovalService) announceDecision(ctx context.Context, request *models.ApprovalRequest, userID string) {
	if s.publisher == nil {
		return
	}

	event := events.ApprovalDecided{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + uuid.New().String(),
			Type:       events.ApprovalDecidedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: request.WorkflowID,
		},
		ApprovalID: request.ID,
		Status:     request.Status,
		UserID:     userID,
	}

	if err := s.publisher.Publish(ctx, request.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

// ExpireDue sweeps pending requests past their deadline and applies
// each request's timeout action: approve and reject make the request
// terminal and resume the run with that outcome, leave keeps the run
// suspended indefinitely. It returns the number of requests acted on.
func (s *ApprovalService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.persistence.Approvals().ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired approvals: %w", err)
	}

	acted := 0

	for _, request := range expired {
		switch request.TimeoutAction {
		case models.TimeoutActionApprove:
			request.Status = models.ApprovalStatusApproved
		case models.TimeoutActionReject:
			request.Status = models.ApprovalStatusExpired
		case models.TimeoutActionLeave:
			continue
		default:
			request.Status = models.ApprovalStatusExpired
		}

		request.UpdatedAt = now

		if err := s.persistence.Approvals().Update(ctx, request); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist approval expiry",
				"approval_id", request.ID, "error", err)

			continue
		}

		s.logger.InfoContext(ctx, "Approval request timed out",
			"approval_id", request.ID,
			"timeout_action", request.TimeoutAction,
			"status", request.Status,
		)

		s.announceDecision(ctx, request, "")

		if _, err := s.engine.Resume(ctx, request.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to resume execution after approval timeout",
				"approval_id", request.ID, "error", err)

			continue
		}

		acted++
	}

	return acted, nil
}
