// Package file provides a file system backed persistence implementation.
// Each entity is stored as a JSON document under a per-collection directory.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string

	// Serializes read-modify-write cycles such as task transitions.
	// File persistence is meant for single-process deployments.
	mu sync.Mutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return &workflowRepository{collection[models.Workflow]{root: fp.root, dir: "workflows", entity: "workflow", notFound: persistence.ErrWorkflowNotFound}}
}

func (fp *Persistence) Tasks() persistence.TaskRepository {
	return &taskRepository{
		collection: collection[models.Task]{root: fp.root, dir: "tasks", entity: "task", notFound: persistence.ErrTaskNotFound},
		mu:         &fp.mu,
	}
}

func (fp *Persistence) Triggers() persistence.TriggerRepository {
	return &triggerRepository{collection[models.Trigger]{root: fp.root, dir: "triggers", entity: "trigger", notFound: persistence.ErrTriggerNotFound}}
}

func (fp *Persistence) TriggerLogs() persistence.TriggerLogRepository {
	return &triggerLogRepository{collection[models.TriggerLog]{root: fp.root, dir: "trigger_logs", entity: "trigger_log", notFound: persistence.ErrTriggerNotFound}}
}

func (fp *Persistence) Approvals() persistence.ApprovalRepository {
	return &approvalRepository{collection[models.ApprovalRequest]{root: fp.root, dir: "approvals", entity: "approval", notFound: persistence.ErrApprovalNotFound}}
}

func (fp *Persistence) Suspensions() persistence.SuspensionRepository {
	return &suspensionRepository{
		collection: collection[models.Suspension]{root: fp.root, dir: "suspensions", entity: "suspension", notFound: persistence.ErrSuspensionNotFound},
		mu:         &fp.mu,
	}
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
