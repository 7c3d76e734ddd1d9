package models

import "time"

// ApprovalStatus is the lifecycle state of an approval request.
// Terminal statuses are immutable once reached.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusExpired   ApprovalStatus = "EXPIRED"
	ApprovalStatusCancelled ApprovalStatus = "CANCELLED"
)

// IsTerminal reports whether s allows no further decisions.
func (s ApprovalStatus) IsTerminal() bool {
	return s != ApprovalStatusPending
}

// TimeoutAction selects what happens when an approval request passes
// ExpiresAt without a decision.
type TimeoutAction string

const (
	TimeoutActionReject  TimeoutAction = "reject"
	TimeoutActionApprove TimeoutAction = "approve"
	// TimeoutActionLeave keeps the run suspended past the deadline.
	TimeoutActionLeave TimeoutAction = "leave"
)

// Decision is a single recorded approve/reject by one user.
type Decision struct {
	UserID    string    `json:"user_id"`
	Approved  bool      `json:"approved"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ApprovalRequest is created when an APPROVAL node is reached. The
// associated run stays suspended until the request becomes terminal.
// Policy is unanimous-to-approve: a single reject is terminal, approval
// requires RequiredApprovals approving decisions.
type ApprovalRequest struct {
	ID                string         `json:"id"`
	ExecutionID       string         `json:"execution_id"`
	WorkflowID        string         `json:"workflow_id"`
	NodeID            string         `json:"node_id"`
	Status            ApprovalStatus `json:"status"`
	RequiredApprovals int            `json:"required_approvals"`
	Decisions         []Decision     `json:"decisions"`
	Message           string         `json:"message,omitempty"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	TimeoutAction     TimeoutAction  `json:"timeout_action"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Record appends a decision and recomputes the status. It reports the
// resulting status; callers must only invoke it on PENDING requests.
func (r *ApprovalRequest) Record(decision Decision) ApprovalStatus {
	r.Decisions = append(r.Decisions, decision)
	r.UpdatedAt = time.Now().UTC()

	if !decision.Approved {
		r.Status = ApprovalStatusRejected

		return r.Status
	}

	approvals := 0

	for _, d := range r.Decisions {
		if d.Approved {
			approvals++
		}
	}

	required := r.RequiredApprovals
	if required < 1 {
		required = 1
	}

	if approvals >= required {
		r.Status = ApprovalStatusApproved
	}

	return r.Status
}

// IsExpired reports whether the request passed its deadline while still
// pending.
func (r *ApprovalRequest) IsExpired(now time.Time) bool {
	return r.Status == ApprovalStatusPending && r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
