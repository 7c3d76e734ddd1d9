package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fluxion-io/fluxion/pkg/engine"
)

const defaultSweepInterval = time.Minute

// ApprovalSweeper periodically expires approval requests that passed
// their deadline, applying each request's timeout action.
type ApprovalSweeper struct {
	logger    *slog.Logger
	approvals *engine.ApprovalService
	interval  time.Duration
}

func NewApprovalSweeper(logger *slog.Logger, approvals *engine.ApprovalService, interval time.Duration) *ApprovalSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &ApprovalSweeper{
		logger:    logger,
		approvals: approvals,
		interval:  interval,
	}
}

// Run sweeps until ctx is cancelled.
func (s *ApprovalSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "Approval sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Approval sweeper stopped")

			return
		case now := <-ticker.C:
			acted, err := s.approvals.ExpireDue(ctx, now.UTC())
			if err != nil {
				s.logger.ErrorContext(ctx, "Approval expiry sweep failed", "error", err)

				continue
			}

			if acted > 0 {
				s.logger.InfoContext(ctx, "Expired approval requests processed", "count", acted)
			}
		}
	}
}
