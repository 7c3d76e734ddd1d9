package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/persistence/postgresql"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"suspensions", "approvals", "trigger_logs", "triggers", "tasks", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("fluxion_test"),
			postgres.WithUsername("fluxion"),
			postgres.WithPassword("fluxion"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, store.Close(ctx))
		cancel()
	})

	return store, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	for _, table := range []string{"workflows", "tasks", "triggers", "trigger_logs", "approvals", "suspensions"} {
		var exists bool

		err = db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestHealthCheck(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	assert.NoError(t, store.HealthCheck(ctx))
}

func TestWorkflowRepository_CRUD(t *testing.T) {
	store, ctx, _ := setupTestDB(t)
	workflow := testutil.LinearWorkflow()
	workflow.CreatedAt = time.Now().UTC()
	workflow.UpdatedAt = workflow.CreatedAt

	require.NoError(t, store.Workflows().Save(ctx, workflow))

	loaded, err := store.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Len(t, loaded.Nodes, 2)
	assert.Len(t, loaded.Edges, 1)

	// Save on an existing id updates the document.
	workflow.Name = "Renamed Workflow"
	workflow.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	reloaded, err := store.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Workflow", reloaded.Name)

	all, err := store.Workflows().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Workflows().Delete(ctx, workflow.ID))

	_, err = store.Workflows().GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = store.Workflows().Delete(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	task := &models.Task{
		ID:         "task-1",
		WorkflowID: "wf-1",
		Status:     models.TaskStatusPending,
		Input:      map[string]any{"value": "x"},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Tasks().Create(ctx, task))

	err := store.Tasks().Create(ctx, task)
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	now := time.Now().UTC()

	claimed, err := store.Tasks().Transition(ctx, "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
		tk.StartedAt = &now
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, claimed.Status)

	// A second claim observes the changed status and fails.
	_, err = store.Tasks().Transition(ctx, "task-1", models.TaskStatusPending, func(tk *models.Task) {
		tk.Status = models.TaskStatusRunning
	})
	require.ErrorIs(t, err, persistence.ErrInvalidTaskTransition)

	running, err := store.Tasks().ListByStatus(ctx, models.TaskStatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "task-1", running[0].ID)
	assert.Equal(t, map[string]any{"value": "x"}, running[0].Input)

	done := time.Now().UTC()

	finished, err := store.Tasks().Transition(ctx, "task-1", models.TaskStatusRunning, func(tk *models.Task) {
		tk.Status = models.TaskStatusCompleted
		tk.CompletedAt = &done
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, finished.Status)
	assert.NotNil(t, finished.CompletedAt)

	_, err = store.Tasks().Transition(ctx, "task-ghost", models.TaskStatusPending, func(*models.Task) {})
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestTaskRepository_SuspendedAndCancelRequested(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	started := time.Now().UTC()
	require.NoError(t, store.Tasks().Create(ctx, &models.Task{
		ID:         "task-gate",
		WorkflowID: "wf-1",
		Status:     models.TaskStatusRunning,
		StartedAt:  &started,
		CreatedAt:  started,
	}))

	flagged, err := store.Tasks().Transition(ctx, "task-gate", models.TaskStatusRunning, func(tk *models.Task) {
		tk.CancelRequested = true
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, flagged.Status)
	assert.True(t, flagged.CancelRequested)

	suspended, err := store.Tasks().Transition(ctx, "task-gate", models.TaskStatusRunning, func(tk *models.Task) {
		tk.Status = models.TaskStatusSuspended
		tk.ApprovalID = "appr-1"
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSuspended, suspended.Status)
	assert.Equal(t, "appr-1", suspended.ApprovalID)

	stored, err := store.Tasks().GetByID(ctx, "task-gate")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSuspended, stored.Status)
	assert.Equal(t, "appr-1", stored.ApprovalID)
	assert.True(t, stored.CancelRequested)
}

func TestTriggerRepository_CRUD(t *testing.T) {
	store, ctx, _ := setupTestDB(t)
	now := time.Now().UTC()

	hook := &models.Trigger{
		ID:          "trig-hook",
		WorkflowID:  "wf-1",
		Type:        models.TriggerTypeWebhook,
		WebhookPath: "orders",
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Triggers().Create(ctx, hook))

	cron := &models.Trigger{
		ID:             "trig-cron",
		WorkflowID:     "wf-1",
		Type:           models.TriggerTypeSchedule,
		CronExpression: "*/5 * * * *",
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.Triggers().Create(ctx, cron))

	// Webhook paths are unique across triggers.
	err := store.Triggers().Create(ctx, &models.Trigger{
		ID: "trig-dup", WorkflowID: "wf-2", Type: models.TriggerTypeWebhook,
		WebhookPath: "orders", Enabled: true, CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	found, err := store.Triggers().GetByWebhookPath(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "trig-hook", found.ID)

	_, err = store.Triggers().GetByWebhookPath(ctx, "missing")
	assert.True(t, persistence.IsTriggerNotFound(err))

	enabled, err := store.Triggers().ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	found.Enabled = false
	found.TriggerCount = 3
	found.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Triggers().Update(ctx, found))

	enabled, err = store.Triggers().ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "trig-cron", enabled[0].ID)

	updated, err := store.Triggers().GetByID(ctx, "trig-hook")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.TriggerCount)

	require.NoError(t, store.Triggers().Delete(ctx, "trig-cron"))

	_, err = store.Triggers().GetByID(ctx, "trig-cron")
	assert.True(t, persistence.IsTriggerNotFound(err))
}

func TestTriggerLogRepository_ListByTrigger(t *testing.T) {
	store, ctx, _ := setupTestDB(t)
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, status := range []models.TriggerLogStatus{models.TriggerLogFailed, models.TriggerLogSuccess} {
		require.NoError(t, store.TriggerLogs().Create(ctx, &models.TriggerLog{
			ID:         "tlog-" + string(rune('a'+i)),
			TriggerID:  "trig-1",
			WorkflowID: "wf-1",
			Status:     status,
			Attempt:    i + 1,
			FiredAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := store.TriggerLogs().ListByTrigger(ctx, "trig-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Ordered by firing time, oldest first.
	assert.Equal(t, models.TriggerLogFailed, logs[0].Status)
	assert.Equal(t, models.TriggerLogSuccess, logs[1].Status)
	assert.Equal(t, 2, logs[1].Attempt)

	logs, err = store.TriggerLogs().ListByTrigger(ctx, "trig-ghost")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestApprovalRepository_DecisionsAndExpiry(t *testing.T) {
	store, ctx, _ := setupTestDB(t)
	now := time.Now().UTC()
	pastDeadline := now.Add(-time.Hour)
	futureDeadline := now.Add(time.Hour)

	overdue := &models.ApprovalRequest{
		ID:                "appr-overdue",
		ExecutionID:       "exec-1",
		WorkflowID:        "wf-1",
		NodeID:            "gate",
		Status:            models.ApprovalStatusPending,
		RequiredApprovals: 1,
		Message:           "Release?",
		ExpiresAt:         &pastDeadline,
		TimeoutAction:     models.TimeoutActionReject,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, store.Approvals().Create(ctx, overdue))

	fresh := &models.ApprovalRequest{
		ID:                "appr-fresh",
		ExecutionID:       "exec-2",
		WorkflowID:        "wf-1",
		NodeID:            "gate",
		Status:            models.ApprovalStatusPending,
		RequiredApprovals: 1,
		ExpiresAt:         &futureDeadline,
		TimeoutAction:     models.TimeoutActionReject,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, store.Approvals().Create(ctx, fresh))

	expired, err := store.Approvals().ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "appr-overdue", expired[0].ID)

	loaded, err := store.Approvals().GetByID(ctx, "appr-fresh")
	require.NoError(t, err)

	loaded.Record(models.Decision{UserID: "alice", Approved: true, DecidedAt: now})
	require.NoError(t, store.Approvals().Update(ctx, loaded))

	decided, err := store.Approvals().GetByID(ctx, "appr-fresh")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	require.Len(t, decided.Decisions, 1)
	assert.Equal(t, "alice", decided.Decisions[0].UserID)

	// Decided requests no longer show up in the expiry sweep.
	expired, err = store.Approvals().ListExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "appr-overdue", expired[0].ID)

	_, err = store.Approvals().GetByID(ctx, "appr-ghost")
	assert.True(t, persistence.IsApprovalNotFound(err))
}

func TestSuspensionRepository_SnapshotRoundTrip(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	workflow := testutil.LinearWorkflow()
	execCtx := models.NewExecutionContext("exec-1", workflow, map[string]any{"value": "x"})

	suspension := &models.Suspension{
		ApprovalID:  "appr-1",
		ExecutionID: execCtx.ID,
		WorkflowID:  workflow.ID,
		NodeID:      "gate",
		Context:     execCtx,
		Workflow:    workflow,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Suspensions().Create(ctx, suspension))

	err := store.Suspensions().Create(ctx, suspension)
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	loaded, err := store.Suspensions().GetByApprovalID(ctx, "appr-1")
	require.NoError(t, err)
	assert.Equal(t, "gate", loaded.NodeID)
	assert.False(t, loaded.Discarded)
	require.NotNil(t, loaded.Context)
	assert.Equal(t, execCtx.ID, loaded.Context.ID)
	require.NotNil(t, loaded.Workflow)
	assert.Len(t, loaded.Workflow.Nodes, 2)

	require.NoError(t, store.Suspensions().MarkDiscarded(ctx, "appr-1"))

	discarded, err := store.Suspensions().GetByApprovalID(ctx, "appr-1")
	require.NoError(t, err)
	assert.True(t, discarded.Discarded)

	require.NoError(t, store.Suspensions().Delete(ctx, "appr-1"))

	_, err = store.Suspensions().GetByApprovalID(ctx, "appr-1")
	assert.True(t, persistence.IsSuspensionNotFound(err))

	err = store.Suspensions().MarkDiscarded(ctx, "appr-1")
	assert.True(t, persistence.IsSuspensionNotFound(err))
}
