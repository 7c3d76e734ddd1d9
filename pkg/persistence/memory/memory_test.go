package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

func TestWorkflows_CRUD(t *testing.T) {
	store := NewPersistence()
	workflow := testutil.LinearWorkflow()

	require.NoError(t, store.Workflows().Save(t.Context(), workflow))

	loaded, err := store.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Len(t, loaded.Nodes, 2)

	all, err := store.Workflows().List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Workflows().Delete(t.Context(), workflow.ID))

	_, err = store.Workflows().GetByID(t.Context(), workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflows_ReturnedCopyDoesNotAliasStore(t *testing.T) {
	store := NewPersistence()
	workflow := testutil.LinearWorkflow()

	require.NoError(t, store.Workflows().Save(t.Context(), workflow))

	loaded, err := store.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)

	loaded.Name = "mutated"
	loaded.Nodes[0].Config["fields"] = nil

	reloaded, err := store.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, reloaded.Name)
	assert.NotNil(t, reloaded.Nodes[0].Config["fields"])
}

func TestTasks_Transition(t *testing.T) {
	store := NewPersistence()

	task := &models.Task{ID: "task-1", WorkflowID: "wf-1", Status: models.TaskStatusPending}
	require.NoError(t, store.Tasks().Create(t.Context(), task))

	// Duplicate ids are rejected.
	err := store.Tasks().Create(t.Context(), task)
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	now := time.Now().UTC()

	claimed, err := store.Tasks().Transition(t.Context(), "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
		tk.StartedAt = &now
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, claimed.Status)

	// A second claim observes the changed status and fails.
	_, err = store.Tasks().Transition(t.Context(), "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
	})
	require.ErrorIs(t, err, persistence.ErrInvalidTaskTransition)

	running, err := store.Tasks().ListByStatus(t.Context(), models.TaskStatusRunning)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	_, err = store.Tasks().Transition(t.Context(), "task-ghost", models.TaskStatusPending, func(*models.Task) {})
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestTriggers_WebhookPathLookup(t *testing.T) {
	store := NewPersistence()

	require.NoError(t, store.Triggers().Create(t.Context(), &models.Trigger{
		ID: "trig-hook", WorkflowID: "wf-1", Type: models.TriggerTypeWebhook,
		WebhookPath: "orders", Enabled: true,
	}))
	require.NoError(t, store.Triggers().Create(t.Context(), &models.Trigger{
		ID: "trig-cron", WorkflowID: "wf-1", Type: models.TriggerTypeSchedule,
		CronExpression: "* * * * *", Enabled: true,
	}))

	found, err := store.Triggers().GetByWebhookPath(t.Context(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "trig-hook", found.ID)

	_, err = store.Triggers().GetByWebhookPath(t.Context(), "missing")
	assert.True(t, persistence.IsTriggerNotFound(err))

	enabled, err := store.Triggers().ListEnabled(t.Context())
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	found.Enabled = false
	require.NoError(t, store.Triggers().Update(t.Context(), found))

	enabled, err = store.Triggers().ListEnabled(t.Context())
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestTriggerLogs_ListByTrigger(t *testing.T) {
	store := NewPersistence()

	for i := range 3 {
		require.NoError(t, store.TriggerLogs().Create(t.Context(), &models.TriggerLog{
			ID: "tlog-" + string(rune('a'+i)), TriggerID: "trig-1", WorkflowID: "wf-1",
			Status: models.TriggerLogSuccess, Attempt: i + 1, FiredAt: time.Now().UTC(),
		}))
	}

	require.NoError(t, store.TriggerLogs().Create(t.Context(), &models.TriggerLog{
		ID: "tlog-other", TriggerID: "trig-2", WorkflowID: "wf-1",
		Status: models.TriggerLogFailed, FiredAt: time.Now().UTC(),
	}))

	logs, err := store.TriggerLogs().ListByTrigger(t.Context(), "trig-1")
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestApprovals_ListExpired(t *testing.T) {
	store := NewPersistence()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-due", Status: models.ApprovalStatusPending, ExpiresAt: &past,
	}))
	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-later", Status: models.ApprovalStatusPending, ExpiresAt: &future,
	}))
	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-decided", Status: models.ApprovalStatusApproved, ExpiresAt: &past,
	}))
	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-no-deadline", Status: models.ApprovalStatusPending,
	}))

	expired, err := store.Approvals().ListExpired(t.Context(), time.Now().UTC())
	require.NoError(t, err)

	require.Len(t, expired, 1)
	assert.Equal(t, "appr-due", expired[0].ID)
}

func TestSuspensions_MarkDiscarded(t *testing.T) {
	store := NewPersistence()

	require.NoError(t, store.Suspensions().Create(t.Context(), &models.Suspension{
		ApprovalID: "appr-1", ExecutionID: "exec-1", WorkflowID: "wf-1", NodeID: "gate",
	}))

	suspension, err := store.Suspensions().GetByApprovalID(t.Context(), "appr-1")
	require.NoError(t, err)
	assert.False(t, suspension.Discarded)

	require.NoError(t, store.Suspensions().MarkDiscarded(t.Context(), "appr-1"))

	suspension, err = store.Suspensions().GetByApprovalID(t.Context(), "appr-1")
	require.NoError(t, err)
	assert.True(t, suspension.Discarded)

	_, err = store.Suspensions().GetByApprovalID(t.Context(), "appr-ghost")
	assert.True(t, persistence.IsSuspensionNotFound(err))
}
