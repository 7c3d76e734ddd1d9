package engine

import "errors"

var (
	// ErrApprovalNotDecided is returned when a resume is attempted for an
	// approval request that is still pending.
	ErrApprovalNotDecided = errors.New("approval request has no terminal decision")

	// ErrApprovalDecided is returned when a decision or cancellation is
	// attempted on a request that already reached a terminal status.
	ErrApprovalDecided = errors.New("approval request already decided")

	// ErrSuspensionDiscarded is returned when a resume targets a snapshot
	// that was invalidated by cancellation or by an earlier resume.
	ErrSuspensionDiscarded = errors.New("suspension snapshot discarded")
)
