// Package file provides a file-based persistence implementation intended for
// local development. Entities are stored as one JSON document per file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
)

const dirPermissions = 0o755

// Persistence implements the persistence.Persistence interface on the file
// system. A process-wide mutex stands in for database-level atomicity, so
// claims are only safe within a single process.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Workflows(_ context.Context, ownerID string) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var workflows []*models.Workflow

	err := p.readAll("workflows", &workflows)
	if err != nil {
		return nil, err
	}

	owned := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.OwnerID == ownerID {
			owned = append(owned, workflow)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return owned, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id, ownerID string) (*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var workflow models.Workflow

	found, err := p.read("workflows", id, &workflow)
	if err != nil {
		return nil, err
	}

	if !found || (ownerID != "" && workflow.OwnerID != ownerID) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write("workflows", workflow.ID, workflow)
}

func (p *Persistence) DeleteWorkflow(_ context.Context, id, ownerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var workflow models.Workflow

	found, err := p.read("workflows", id, &workflow)
	if err != nil {
		return err
	}

	if !found || workflow.OwnerID != ownerID {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	err = os.Remove(p.path("workflows", id))
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (p *Persistence) CreateExecution(_ context.Context, execution *models.Execution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write("executions", execution.ID, execution)
}

func (p *Persistence) ExecutionByID(_ context.Context, id, ownerID string) (*models.Execution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var execution models.Execution

	found, err := p.read("executions", id, &execution)
	if err != nil {
		return nil, err
	}

	if !found || execution.OwnerID != ownerID {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

func (p *Persistence) ExecutionsByWorkflow(_ context.Context, workflowID, ownerID string) ([]*models.Execution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var executions []*models.Execution

	err := p.readAll("executions", &executions)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Execution, 0)

	for _, execution := range executions {
		if execution.WorkflowID == workflowID && execution.OwnerID == ownerID {
			matched = append(matched, execution)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	return matched, nil
}

func (p *Persistence) ListClaimable(_ context.Context, limit int) ([]*models.Execution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var executions []*models.Execution

	err := p.readAll("executions", &executions)
	if err != nil {
		return nil, err
	}

	claimable := make([]*models.Execution, 0)

	for _, execution := range executions {
		if isClaimable(execution, time.Now().UTC()) {
			claimable = append(claimable, execution)
		}
	}

	sort.Slice(claimable, func(i, j int) bool {
		return claimable[i].StartedAt.Before(claimable[j].StartedAt)
	})

	if len(claimable) > limit {
		claimable = claimable[:limit]
	}

	return claimable, nil
}

func (p *Persistence) Claim(_ context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var execution models.Execution

	found, err := p.read("executions", executionID, &execution)
	if err != nil {
		return false, err
	}

	if !found || !isClaimable(&execution, time.Now().UTC()) {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.WorkerID = workerID
	execution.LeaseExpiresAt = &leaseUntil
	execution.StartedAt = time.Now().UTC()

	err = p.write("executions", executionID, &execution)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *Persistence) FinishExecution(_ context.Context, execution *models.Execution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stored models.Execution

	found, err := p.read("executions", execution.ID, &stored)
	if err != nil {
		return err
	}

	if !found {
		return persistence.NewExecutionError("Finish", execution.ID, persistence.ErrExecutionNotFound)
	}

	stored.Status = execution.Status
	stored.Output = execution.Output
	stored.Error = execution.Error
	stored.CompletedAt = execution.CompletedAt
	stored.LeaseExpiresAt = nil

	return p.write("executions", execution.ID, &stored)
}

func (p *Persistence) AppendLog(_ context.Context, entry *models.ExecutionLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write("execution_logs", entry.ID, entry)
}

func (p *Persistence) LogsByExecution(_ context.Context, executionID string) ([]*models.ExecutionLog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var entries []*models.ExecutionLog

	err := p.readAll("execution_logs", &entries)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.ExecutionLog, 0)

	for _, entry := range entries {
		if entry.ExecutionID == executionID {
			matched = append(matched, entry)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	return matched, nil
}

func (p *Persistence) SaveCredential(_ context.Context, credential *models.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write("credentials", credential.ID, storedCredential{
		Credential: credential,
		Data:       credential.Data,
	})
}

func (p *Persistence) CredentialByID(_ context.Context, id, ownerID string) (*models.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stored storedCredential

	found, err := p.read("credentials", id, &stored)
	if err != nil {
		return nil, err
	}

	if !found || stored.Credential.OwnerID != ownerID {
		return nil, persistence.NewCredentialError("GetByID", id, persistence.ErrCredentialNotFound)
	}

	credential := *stored.Credential
	credential.Data = stored.Data

	return &credential, nil
}

func (p *Persistence) CredentialsByOwner(_ context.Context, ownerID string) ([]*models.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stored []*storedCredential

	err := p.readAll("credentials", &stored)
	if err != nil {
		return nil, err
	}

	owned := make([]*models.Credential, 0)

	for _, item := range stored {
		if item.Credential.OwnerID != ownerID {
			continue
		}

		credential := *item.Credential
		credential.Data = item.Data
		owned = append(owned, &credential)
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return owned, nil
}

// storedCredential carries the encrypted blob alongside the credential,
// since models.Credential never serializes Data itself.
type storedCredential struct {
	Credential *models.Credential `json:"credential"`
	Data       string             `json:"data"`
}

func isClaimable(execution *models.Execution, now time.Time) bool {
	if execution.Status == models.ExecutionStatusPending {
		return true
	}

	return execution.Status == models.ExecutionStatusRunning &&
		execution.LeaseExpiresAt != nil &&
		execution.LeaseExpiresAt.Before(now)
}

func (p *Persistence) path(collection, id string) string {
	return filepath.Join(p.root, collection, id+".json")
}

func (p *Persistence) write(collection, id string, value any) error {
	dir := filepath.Join(p.root, collection)

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}

	err = os.WriteFile(p.path(collection, id), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}

	return nil
}

// read loads one document. Returns false without error when the file does
// not exist.
func (p *Persistence) read(collection, id string, target any) (bool, error) {
	data, err := os.ReadFile(p.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}

	return true, nil
}

// readAll loads every document in a collection into target, which must be a
// pointer to a slice.
func (p *Persistence) readAll(collection string, target any) error {
	dir := filepath.Join(p.root, collection)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	documents := make([]json.RawMessage, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		documents = append(documents, data)
	}

	combined, err := json.Marshal(documents)
	if err != nil {
		return fmt.Errorf("failed to combine %s documents: %w", collection, err)
	}

	err = json.Unmarshal(combined, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s documents: %w", collection, err)
	}

	return nil
}
