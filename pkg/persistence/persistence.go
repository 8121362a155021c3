// Package persistence provides the data storage abstraction layer for
// workflows, executions and credentials.
package persistence

import (
	"context"
	"time"

	"github.com/weftwork/weft/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context, ownerID string) ([]*models.Workflow, error)

	// WorkflowByID returns a workflow scoped to its owner. An empty ownerID
	// skips the ownership check; webhook delivery resolves the workflow
	// before any caller identity exists.
	WorkflowByID(ctx context.Context, id, ownerID string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id, ownerID string) error

	CreateExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id, ownerID string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID, ownerID string) ([]*models.Execution, error)

	// ListClaimable returns executions a worker may claim: PENDING rows
	// plus RUNNING rows whose lease has expired.
	ListClaimable(ctx context.Context, limit int) ([]*models.Execution, error)

	// Claim atomically assigns an execution to a worker. Exactly one of
	// several concurrent claimants gets true for a given execution.
	Claim(ctx context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error)

	// FinishExecution records the terminal status, output and error of a run.
	FinishExecution(ctx context.Context, execution *models.Execution) error

	AppendLog(ctx context.Context, entry *models.ExecutionLog) error
	LogsByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLog, error)

	SaveCredential(ctx context.Context, credential *models.Credential) error
	CredentialByID(ctx context.Context, id, ownerID string) (*models.Credential, error)
	CredentialsByOwner(ctx context.Context, ownerID string) ([]*models.Credential, error)

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
