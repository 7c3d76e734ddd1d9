package queue

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/persistence/memory"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(t *testing.T) (*Queue, *memory.Persistence, *ChannelBroker) {
	t.Helper()

	store := memory.NewPersistence()
	broker := NewChannelBroker()

	t.Cleanup(func() {
		_ = broker.Close(t.Context())
	})

	return NewQueue(testLogger(), store, broker, nil), store, broker
}

func savedWorkflow(t *testing.T, store *memory.Persistence) *models.Workflow {
	t.Helper()

	workflow := testutil.LinearWorkflow()
	require.NoError(t, store.Workflows().Save(t.Context(), workflow))

	return workflow
}

func TestEnqueue(t *testing.T) {
	q, store, broker := newTestQueue(t)
	workflow := savedWorkflow(t, store)

	task, err := q.Enqueue(t.Context(), Submission{
		WorkflowID:  workflow.ID,
		SubmittedBy: "user-1",
		Input:       map[string]any{"value": "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.NotEmpty(t, task.ID)

	// The task is retrievable before any worker claims it.
	stored, err := q.Task(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, stored.Status)

	// And its id reached the broker.
	ids, err := broker.Consume(t.Context())
	require.NoError(t, err)

	select {
	case got := <-ids:
		assert.Equal(t, task.ID, got)
	case <-time.After(time.Second):
		t.Fatal("task id never reached the broker")
	}
}

func TestEnqueue_UnknownWorkflow(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(t.Context(), Submission{WorkflowID: "wf-ghost"})
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestCancel_Pending(t *testing.T) {
	q, store, _ := newTestQueue(t)
	workflow := savedWorkflow(t, store)

	task, err := q.Enqueue(t.Context(), Submission{WorkflowID: workflow.ID})
	require.NoError(t, err)

	cancelled, err := q.Cancel(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)

	// A cancelled task cannot be cancelled again.
	_, err = q.Cancel(t.Context(), task.ID)
	require.ErrorIs(t, err, persistence.ErrInvalidTaskTransition)
}

func TestCancel_RunningFlagsCancellation(t *testing.T) {
	q, store, _ := newTestQueue(t)

	started := time.Now().UTC()
	require.NoError(t, store.Tasks().Create(t.Context(), &models.Task{
		ID: "task-live", WorkflowID: "wf-1", Status: models.TaskStatusRunning, StartedAt: &started,
	}))

	task, err := q.Cancel(t.Context(), "task-live")
	require.NoError(t, err)

	// The task keeps running until the worker observes the flag.
	assert.Equal(t, models.TaskStatusRunning, task.Status)
	assert.True(t, task.CancelRequested)

	stored, err := store.Tasks().GetByID(t.Context(), "task-live")
	require.NoError(t, err)
	assert.True(t, stored.CancelRequested)
}

func TestCancel_TerminalTaskIsRejected(t *testing.T) {
	q, store, _ := newTestQueue(t)

	require.NoError(t, store.Tasks().Create(t.Context(), &models.Task{
		ID: "task-done", WorkflowID: "wf-1", Status: models.TaskStatusCompleted,
	}))

	_, err := q.Cancel(t.Context(), "task-done")
	require.ErrorIs(t, err, persistence.ErrInvalidTaskTransition)
}

func TestStuckTasks(t *testing.T) {
	q, store, _ := newTestQueue(t)

	stale := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()

	require.NoError(t, store.Tasks().Create(t.Context(), &models.Task{
		ID: "task-stale", WorkflowID: "wf-1", Status: models.TaskStatusRunning, StartedAt: &stale,
	}))
	require.NoError(t, store.Tasks().Create(t.Context(), &models.Task{
		ID: "task-fresh", WorkflowID: "wf-1", Status: models.TaskStatusRunning, StartedAt: &fresh,
	}))
	require.NoError(t, store.Tasks().Create(t.Context(), &models.Task{
		ID: "task-done", WorkflowID: "wf-1", Status: models.TaskStatusCompleted,
	}))

	stuck, err := q.StuckTasks(t.Context(), 10*time.Minute)
	require.NoError(t, err)

	require.Len(t, stuck, 1)
	assert.Equal(t, "task-stale", stuck[0].ID)
}

func TestChannelBroker_PublishAfterClose(t *testing.T) {
	broker := NewChannelBroker()
	require.NoError(t, broker.Close(t.Context()))

	err := broker.Publish(t.Context(), "task-1")
	require.Error(t, err)
}
