package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

func TestNewPersistence_StripsFileScheme(t *testing.T) {
	dir := t.TempDir()
	store := NewPersistence("file://" + dir)

	require.NoError(t, store.Workflows().Save(t.Context(), testutil.LinearWorkflow()))
	require.NoError(t, store.HealthCheck(t.Context()))
}

func TestWorkflows_SurviveReopen(t *testing.T) {
	dir := t.TempDir()
	workflow := testutil.LinearWorkflow()

	first := NewPersistence(dir)
	require.NoError(t, first.Workflows().Save(t.Context(), workflow))
	require.NoError(t, first.Close(t.Context()))

	second := NewPersistence(dir)

	loaded, err := second.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Len(t, loaded.Edges, 1)
}

func TestWorkflows_NotFound(t *testing.T) {
	store := NewPersistence(t.TempDir())

	_, err := store.Workflows().GetByID(t.Context(), "wf-ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = store.Workflows().Delete(t.Context(), "wf-ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestTasks_TransitionOnDisk(t *testing.T) {
	store := NewPersistence(t.TempDir())

	task := &models.Task{ID: "task-1", WorkflowID: "wf-1", Status: models.TaskStatusPending}
	require.NoError(t, store.Tasks().Create(t.Context(), task))

	err := store.Tasks().Create(t.Context(), task)
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	claimed, err := store.Tasks().Transition(t.Context(), "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, claimed.Status)

	_, err = store.Tasks().Transition(t.Context(), "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
	})
	require.ErrorIs(t, err, persistence.ErrInvalidTaskTransition)

	pending, err := store.Tasks().ListByStatus(t.Context(), models.TaskStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	running, err := store.Tasks().ListByStatus(t.Context(), models.TaskStatusRunning)
	require.NoError(t, err)
	assert.Len(t, running, 1)
}

func TestTriggers_WebhookLookupAndLogs(t *testing.T) {
	store := NewPersistence(t.TempDir())

	require.NoError(t, store.Triggers().Create(t.Context(), &models.Trigger{
		ID: "trig-1", WorkflowID: "wf-1", Type: models.TriggerTypeWebhook,
		WebhookPath: "orders", Enabled: true,
	}))

	found, err := store.Triggers().GetByWebhookPath(t.Context(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "trig-1", found.ID)

	_, err = store.Triggers().GetByWebhookPath(t.Context(), "nope")
	assert.True(t, persistence.IsTriggerNotFound(err))

	require.NoError(t, store.TriggerLogs().Create(t.Context(), &models.TriggerLog{
		ID: "tlog-1", TriggerID: "trig-1", WorkflowID: "wf-1",
		Status: models.TriggerLogSuccess, Attempt: 1, FiredAt: time.Now().UTC(),
	}))

	logs, err := store.TriggerLogs().ListByTrigger(t.Context(), "trig-1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSuspensions_DiscardedFlagPersists(t *testing.T) {
	dir := t.TempDir()
	store := NewPersistence(dir)

	require.NoError(t, store.Suspensions().Create(t.Context(), &models.Suspension{
		ApprovalID: "appr-1", ExecutionID: "exec-1", WorkflowID: "wf-1", NodeID: "gate",
	}))
	require.NoError(t, store.Suspensions().MarkDiscarded(t.Context(), "appr-1"))

	reopened := NewPersistence(dir)

	suspension, err := reopened.Suspensions().GetByApprovalID(t.Context(), "appr-1")
	require.NoError(t, err)
	assert.True(t, suspension.Discarded)
}

func TestApprovals_ListExpired(t *testing.T) {
	store := NewPersistence(t.TempDir())

	past := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-due", Status: models.ApprovalStatusPending, ExpiresAt: &past,
	}))
	require.NoError(t, store.Approvals().Create(t.Context(), &models.ApprovalRequest{
		ID: "appr-open", Status: models.ApprovalStatusPending,
	}))

	expired, err := store.Approvals().ListExpired(t.Context(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "appr-due", expired[0].ID)
}
