package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerType distinguishes cron-driven from webhook-driven triggers.
type TriggerType string

const (
	TriggerTypeSchedule TriggerType = "SCHEDULE"
	TriggerTypeWebhook  TriggerType = "WEBHOOK"
)

// ErrInvalidTrigger is returned when trigger validation fails.
var ErrInvalidTrigger = errors.New("invalid trigger configuration")

// Trigger is a configured source of new runs. The scheduler is the sole
// mutator of the runtime job bound to a trigger id; counters are updated
// by the firing path after each attempt.
type Trigger struct {
	ID         string      `json:"id"          validate:"required"`
	WorkflowID string      `json:"workflow_id" validate:"required"`
	Type       TriggerType `json:"type"        validate:"required"`
	Enabled    bool        `json:"enabled"`

	// SCHEDULE only.
	CronExpression string `json:"cron_expression,omitempty"`
	Timezone       string `json:"timezone,omitempty"`

	// WEBHOOK only.
	WebhookPath   string `json:"webhook_path,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	InputTemplate map[string]any `json:"input_template,omitempty"`
	RetryOnFail   bool           `json:"retry_on_fail"`
	MaxRetries    int            `json:"max_retries"`

	TriggerCount    int64      `json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt   *time.Time `json:"last_failure_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CronSpec returns the cron expression with the trigger's timezone
// applied, in the form the cron parser accepts.
func (t *Trigger) CronSpec() string {
	if t.Timezone == "" {
		return t.CronExpression
	}

	return "CRON_TZ=" + t.Timezone + " " + t.CronExpression
}

// Validate checks the per-type required fields and, for schedules, the
// cron expression itself.
func (t *Trigger) Validate() error {
	if t.ID == "" || t.WorkflowID == "" {
		return ErrInvalidTrigger
	}

	switch t.Type {
	case TriggerTypeSchedule:
		if t.CronExpression == "" {
			return ErrInvalidTrigger
		}

		if _, err := cron.ParseStandard(t.CronSpec()); err != nil {
			return err
		}
	case TriggerTypeWebhook:
		if t.WebhookPath == "" {
			return ErrInvalidTrigger
		}
	default:
		return ErrInvalidTrigger
	}

	return nil
}

// TriggerLogStatus is the recorded outcome of one firing attempt.
type TriggerLogStatus string

const (
	TriggerLogSuccess TriggerLogStatus = "SUCCESS"
	TriggerLogFailed  TriggerLogStatus = "FAILED"
	// TriggerLogSkipped covers a trigger disabled between scheduling and firing.
	TriggerLogSkipped TriggerLogStatus = "SKIPPED"
)

// TriggerLog records one firing attempt of a trigger.
type TriggerLog struct {
	ID           string           `json:"id"`
	TriggerID    string           `json:"trigger_id"`
	WorkflowID   string           `json:"workflow_id"`
	Status       TriggerLogStatus `json:"status"`
	Attempt      int              `json:"attempt"`
	ErrorMessage string           `json:"error_message,omitempty"`
	FiredAt      time.Time        `json:"fired_at"`
	DurationMs   int64            `json:"duration_ms"`
}
