package services

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
	"github.com/weftwork/weft/pkg/protocol"
	"github.com/weftwork/weft/pkg/registry"
)

// fakePersistence is an in-memory persistence.Persistence for service tests.
type fakePersistence struct {
	workflows   map[string]*models.Workflow
	executions  map[string]*models.Execution
	logs        []*models.ExecutionLog
	credentials map[string]*models.Credential

	saveWorkflowErr error
	createExecErr   error
}

var _ persistence.Persistence = (*fakePersistence)(nil)

func newFakePersistence() *fakePersistence {
	return &fakePersistence{
		workflows:   make(map[string]*models.Workflow),
		executions:  make(map[string]*models.Execution),
		credentials: make(map[string]*models.Credential),
	}
}

func (f *fakePersistence) Workflows(_ context.Context, ownerID string) ([]*models.Workflow, error) {
	owned := make([]*models.Workflow, 0)

	for _, workflow := range f.workflows {
		if workflow.OwnerID == ownerID {
			owned = append(owned, workflow)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return owned, nil
}

func (f *fakePersistence) WorkflowByID(_ context.Context, id, ownerID string) (*models.Workflow, error) {
	workflow, ok := f.workflows[id]
	if !ok || (ownerID != "" && workflow.OwnerID != ownerID) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (f *fakePersistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if f.saveWorkflowErr != nil {
		return f.saveWorkflowErr
	}

	f.workflows[workflow.ID] = workflow

	return nil
}

func (f *fakePersistence) DeleteWorkflow(_ context.Context, id, ownerID string) error {
	workflow, ok := f.workflows[id]
	if !ok || workflow.OwnerID != ownerID {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	delete(f.workflows, id)

	return nil
}

func (f *fakePersistence) CreateExecution(_ context.Context, execution *models.Execution) error {
	if f.createExecErr != nil {
		return f.createExecErr
	}

	f.executions[execution.ID] = execution

	return nil
}

func (f *fakePersistence) ExecutionByID(_ context.Context, id, ownerID string) (*models.Execution, error) {
	execution, ok := f.executions[id]
	if !ok || execution.OwnerID != ownerID {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return execution, nil
}

func (f *fakePersistence) ExecutionsByWorkflow(_ context.Context, workflowID, ownerID string) ([]*models.Execution, error) {
	matched := make([]*models.Execution, 0)

	for _, execution := range f.executions {
		if execution.WorkflowID == workflowID && execution.OwnerID == ownerID {
			matched = append(matched, execution)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	return matched, nil
}

func (f *fakePersistence) ListClaimable(_ context.Context, limit int) ([]*models.Execution, error) {
	claimable := make([]*models.Execution, 0)

	for _, execution := range f.executions {
		if execution.Status == models.ExecutionStatusPending && len(claimable) < limit {
			claimable = append(claimable, execution)
		}
	}

	return claimable, nil
}

func (f *fakePersistence) Claim(_ context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error) {
	execution, ok := f.executions[executionID]
	if !ok || execution.Status != models.ExecutionStatusPending {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.WorkerID = workerID
	execution.LeaseExpiresAt = &leaseUntil

	return true, nil
}

func (f *fakePersistence) FinishExecution(_ context.Context, execution *models.Execution) error {
	f.executions[execution.ID] = execution

	return nil
}

func (f *fakePersistence) AppendLog(_ context.Context, entry *models.ExecutionLog) error {
	f.logs = append(f.logs, entry)

	return nil
}

func (f *fakePersistence) LogsByExecution(_ context.Context, executionID string) ([]*models.ExecutionLog, error) {
	matched := make([]*models.ExecutionLog, 0)

	for _, entry := range f.logs {
		if entry.ExecutionID == executionID {
			matched = append(matched, entry)
		}
	}

	return matched, nil
}

func (f *fakePersistence) SaveCredential(_ context.Context, credential *models.Credential) error {
	f.credentials[credential.ID] = credential

	return nil
}

func (f *fakePersistence) CredentialByID(_ context.Context, id, ownerID string) (*models.Credential, error) {
	credential, ok := f.credentials[id]
	if !ok || credential.OwnerID != ownerID {
		return nil, persistence.NewCredentialError("GetByID", id, persistence.ErrCredentialNotFound)
	}

	return credential, nil
}

func (f *fakePersistence) CredentialsByOwner(_ context.Context, ownerID string) ([]*models.Credential, error) {
	owned := make([]*models.Credential, 0)

	for _, credential := range f.credentials {
		if credential.OwnerID == ownerID {
			owned = append(owned, credential)
		}
	}

	return owned, nil
}

func (f *fakePersistence) HealthCheck(_ context.Context) error {
	return nil
}

func (f *fakePersistence) Close(_ context.Context) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testRegistry registers permissive schemas for every action kind.
func testRegistry() *registry.Registry {
	reg := registry.NewRegistry(testLogger())

	for _, kind := range models.ActionKinds {
		reg.RegisterAction(&openFactory{kind: kind})
	}

	return reg
}

type openFactory struct {
	kind models.NodeKind
}

func (f *openFactory) Create(map[string]any) (protocol.Action, error) { return nil, nil }

func (f *openFactory) Kind() models.NodeKind { return f.kind }

func (f *openFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
