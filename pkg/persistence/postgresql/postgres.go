// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	workflowRepo   *WorkflowRepository
	executionRepo  *ExecutionRepository
	credentialRepo *CredentialRepository
}

// NewPersistence connects, runs migrations and returns a ready persistence layer.
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

	return &Persistence{
		db:             database,
		logger:         logger,
		workflowRepo:   NewWorkflowRepository(database, logger),
		executionRepo:  NewExecutionRepository(database, logger),
		credentialRepo: NewCredentialRepository(database, logger),
	}, nil
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

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx, ownerID)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id, ownerID string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id, ownerID)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

// DeleteWorkflow soft deletes a workflow by setting the deleted_at timestamp.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id, ownerID string) error {
	return p.workflowRepo.Delete(ctx, id, ownerID)
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	return p.executionRepo.Create(ctx, execution)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id, ownerID string) (*models.Execution, error) {
	return p.executionRepo.GetByID(ctx, id, ownerID)
}

func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID, ownerID string) ([]*models.Execution, error) {
	return p.executionRepo.ByWorkflow(ctx, workflowID, ownerID)
}

func (p *Persistence) ListClaimable(ctx context.Context, limit int) ([]*models.Execution, error) {
	return p.executionRepo.ListClaimable(ctx, limit)
}

func (p *Persistence) Claim(ctx context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error) {
	return p.executionRepo.Claim(ctx, executionID, workerID, leaseUntil)
}

func (p *Persistence) FinishExecution(ctx context.Context, execution *models.Execution) error {
	return p.executionRepo.Finish(ctx, execution)
}

func (p *Persistence) AppendLog(ctx context.Context, entry *models.ExecutionLog) error {
	return p.executionRepo.AppendLog(ctx, entry)
}

func (p *Persistence) LogsByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	return p.executionRepo.LogsByExecution(ctx, executionID)
}

func (p *Persistence) SaveCredential(ctx context.Context, credential *models.Credential) error {
	return p.credentialRepo.Save(ctx, credential)
}

func (p *Persistence) CredentialByID(ctx context.Context, id, ownerID string) (*models.Credential, error) {
	return p.credentialRepo.GetByID(ctx, id, ownerID)
}

func (p *Persistence) CredentialsByOwner(ctx context.Context, ownerID string) ([]*models.Credential, error) {
	return p.credentialRepo.ByOwner(ctx, ownerID)
}
