// Package scheduler maintains cron jobs for schedule triggers and fires
// workflow runs when they come due.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/eventbus"
	"github.com/fluxion-io/fluxion/pkg/events"
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// Scheduler owns one cron runtime and a job table keyed by trigger id.
// ScheduleJob is an upsert: rescheduling a trigger replaces its job, it
// never duplicates it. Each trigger id has exactly one owner, the
// scheduler process, so the job table only needs its own lock.
type Scheduler struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	publisher   eventbus.EventPublisher

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(logger *slog.Logger, persist persistence.Persistence, eng *engine.Engine, publisher eventbus.EventPublisher) *Scheduler {
	return &Scheduler{
		logger:      logger,
		persistence: persist,
		engine:      eng,
		publisher:   publisher,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start loads every enabled schedule trigger, installs its job and
// starts the cron runtime.
func (s *Scheduler) Start(ctx context.Context) error {
	triggers, err := s.persistence.Triggers().ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled triggers: %w", err)
	}

	for _, trigger := range triggers {
		if trigger.Type != models.TriggerTypeSchedule {
			continue
		}

		if err := s.ScheduleJob(ctx, trigger); err != nil {
			s.logger.ErrorContext(ctx, "Failed to schedule trigger",
				"trigger_id", trigger.ID, "error", err)
		}
	}

	s.cron.Start()

	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(s.entries))

	return nil
}

// ScheduleJob installs or replaces the cron job for a schedule trigger.
func (s *Scheduler) ScheduleJob(ctx context.Context, trigger *models.Trigger) error {
	if trigger.Type != models.TriggerTypeSchedule {
		return fmt.Errorf("trigger %s is not a schedule trigger", trigger.ID)
	}

	if err := trigger.Validate(); err != nil {
		return fmt.Errorf("invalid trigger %s: %w", trigger.ID, err)
	}

	triggerID := trigger.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[triggerID]; ok {
		s.cron.Remove(existing)
		delete(s.entries, triggerID)
	}

	entryID, err := s.cron.AddFunc(trigger.CronSpec(), func() {
		s.fire(triggerID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for trigger %s: %w", triggerID, err)
	}

	s.entries[triggerID] = entryID

	s.logger.InfoContext(ctx, "Trigger scheduled",
		"trigger_id", triggerID, "cron", trigger.CronSpec())

	return nil
}

// Sync reconciles the job table with the store: enabled schedule
// triggers are upserted and jobs whose trigger disappeared or was
// disabled are removed. The scheduler process calls this on a timer so
// triggers edited through the API take effect without a restart.
func (s *Scheduler) Sync(ctx context.Context) error {
	triggers, err := s.persistence.Triggers().ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled triggers: %w", err)
	}

	wanted := make(map[string]bool, len(triggers))

	for _, trigger := range triggers {
		if trigger.Type != models.TriggerTypeSchedule {
			continue
		}

		wanted[trigger.ID] = true

		if err := s.ScheduleJob(ctx, trigger); err != nil {
			s.logger.ErrorContext(ctx, "Failed to schedule trigger",
				"trigger_id", trigger.ID, "error", err)
		}
	}

	for _, id := range s.Jobs() {
		if !wanted[id] {
			s.RemoveJob(id)
			s.logger.InfoContext(ctx, "Trigger unscheduled", "trigger_id", id)
		}
	}

	return nil
}

// RemoveJob uninstalls the cron job for a trigger id. Removing an
// unknown id is a no-op.
func (s *Scheduler) RemoveJob(triggerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[triggerID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, triggerID)
	}
}

// Jobs reports the trigger ids with an installed cron job.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}

	return ids
}

// Stop halts the cron runtime and waits for in-flight jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Scheduler stopped")

	return nil
}

// fire runs one due tick of a trigger. The trigger is reloaded first so
// a trigger disabled after scheduling is skipped, not silently dropped.
func (s *Scheduler) fire(triggerID string) {
	ctx := context.Background()

	trigger, err := s.persistence.Triggers().GetByID(ctx, triggerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load trigger for firing",
			"trigger_id", triggerID, "error", err)

		return
	}

	if !trigger.Enabled {
		s.recordAttempt(ctx, trigger, models.TriggerLogSkipped, 1, "trigger disabled", 0)
		s.logger.InfoContext(ctx, "Trigger disabled, skipping fire", "trigger_id", triggerID)

		return
	}

	input := make(map[string]any, len(trigger.InputTemplate)+1)
	for k, v := range trigger.InputTemplate {
		input[k] = v
	}

	input["triggered_at"] = time.Now().UTC().Format(time.RFC3339)

	attempts := 1
	if trigger.RetryOnFail && trigger.MaxRetries > 0 {
		attempts += trigger.MaxRetries
	}

	succeeded := false

	for attempt := 1; attempt <= attempts; attempt++ {
		startedAt := time.Now().UTC()

		errorMessage := s.execute(ctx, trigger, input)
		durationMs := time.Since(startedAt).Milliseconds()

		if errorMessage == "" {
			s.recordAttempt(ctx, trigger, models.TriggerLogSuccess, attempt, "", durationMs)

			succeeded = true

			break
		}

		s.recordAttempt(ctx, trigger, models.TriggerLogFailed, attempt, errorMessage, durationMs)
		s.logger.WarnContext(ctx, "Trigger fire attempt failed",
			"trigger_id", triggerID, "attempt", attempt, "error", errorMessage)
	}

	s.updateCounters(ctx, trigger, succeeded)
}

// execute runs the trigger's workflow once and reports a failure
// message, or empty on success. A suspended run counts as a successful
// fire; the approval flow owns it from there.
func (s *Scheduler) execute(ctx context.Context, trigger *models.Trigger, input map[string]any) string {
	workflow, err := s.persistence.Workflows().GetByID(ctx, trigger.WorkflowID)
	if err != nil {
		return fmt.Sprintf("failed to load workflow %s: %v", trigger.WorkflowID, err)
	}

	result, err := s.engine.Execute(ctx, workflow, input)
	if err != nil {
		return err.Error()
	}

	if result.Status == models.ExecutionStatusFailed {
		if result.Error != nil {
			return fmt.Sprintf("node %s: %s", result.Error.NodeID, result.Error.Message)
		}

		return "execution failed"
	}

	return ""
}

func (s *Scheduler) recordAttempt(ctx context.Context, trigger *models.Trigger, status models.TriggerLogStatus, attempt int, errorMessage string, durationMs int64) {
	log := &models.TriggerLog{
		ID:           "tlog-" + uuid.New().String(),
		TriggerID:    trigger.ID,
		WorkflowID:   trigger.WorkflowID,
		Status:       status,
		Attempt:      attempt,
		ErrorMessage: errorMessage,
		FiredAt:      time.Now().UTC(),
		DurationMs:   durationMs,
	}

	if err := s.persistence.TriggerLogs().Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record trigger log",
			"trigger_id", trigger.ID, "error", err)
	}

	if s.publisher != nil {
		event := events.TriggerFired{
			BaseEvent: events.BaseEvent{
				ID:         "evt-" + uuid.New().String(),
				Type:       events.TriggerFiredEvent,
				Timestamp:  time.Now().UTC(),
				WorkflowID: trigger.WorkflowID,
			},
			TriggerID: trigger.ID,
			Status:    status,
			Attempt:   attempt,
		}

		if err := s.publisher.Publish(ctx, trigger.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish trigger event",
				"trigger_id", trigger.ID, "error", err)
		}
	}
}

func (s *Scheduler) updateCounters(ctx context.Context, trigger *models.Trigger, succeeded bool) {
	now := time.Now().UTC()

	trigger.TriggerCount++
	trigger.LastTriggeredAt = &now

	if succeeded {
		trigger.LastSuccessAt = &now
	} else {
		trigger.LastFailureAt = &now
	}

	trigger.UpdatedAt = now

	if err := s.persistence.Triggers().Update(ctx, trigger); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update trigger counters",
			"trigger_id", trigger.ID, "error", err)
	}
}
