// Package postgresql provides the PostgreSQL persistence implementation.
//
// Entities are stored as JSONB documents alongside the key columns the
// repositories filter on. The document is the source of truth; key columns
// are denormalized from it on every write.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to the database and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return &workflowRepository{db: p.db}
}

func (p *Persistence) Tasks() persistence.TaskRepository {
	return &taskRepository{db: p.db}
}

func (p *Persistence) Triggers() persistence.TriggerRepository {
	return &triggerRepository{db: p.db}
}

func (p *Persistence) TriggerLogs() persistence.TriggerLogRepository {
	return &triggerLogRepository{db: p.db}
}

func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return &approvalRepository{db: p.db}
}

func (p *Persistence) Suspensions() persistence.SuspensionRepository {
	return &suspensionRepository{db: p.db}
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
