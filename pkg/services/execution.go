package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution enqueues and queries workflow runs. Enqueueing snapshots the
// workflow's nodes and connections so later edits never affect queued work;
// workers pick rows up through the claim loop.
type Execution struct {
	persistence persistence.Persistence
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence) *Execution {
	return &Execution{persistence: persistence}
}

// EnqueueManual creates a PENDING run for a manual trigger.
func (e *Execution) EnqueueManual(ctx context.Context, workflowID, ownerID string) (*models.Execution, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	return e.enqueue(ctx, workflowID, ownerID, models.TriggerTypeManual, nil)
}

// EnqueueWebhook creates a PENDING run carrying the webhook request data.
// Webhook callers are external and carry no identity; the run belongs to
// the workflow's owner.
func (e *Execution) EnqueueWebhook(ctx context.Context, workflowID string, triggerData map[string]any) (*models.Execution, error) {
	return e.enqueue(ctx, workflowID, "", models.TriggerTypeWebhook, triggerData)
}

func (e *Execution) enqueue(
	ctx context.Context,
	workflowID, ownerID string,
	trigger models.TriggerType,
	triggerData map[string]any,
) (*models.Execution, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID, ownerID)
	if err != nil {
		return nil, err
	}

	// Stored workflows are validated on save, but the check is cheap and
	// guards rows written before validation existed.
	if workflow.TriggerNode() == nil {
		return nil, ErrTriggerNodeRequired
	}

	execution := &models.Execution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		OwnerID:     workflow.OwnerID,
		Status:      models.ExecutionStatusPending,
		Trigger:     trigger,
		Nodes:       workflow.Nodes,
		Connections: workflow.Connections,
		TriggerData: triggerData,
		StartedAt:   time.Now().UTC(),
	}

	err = e.persistence.CreateExecution(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	return execution, nil
}

// Get returns a single execution scoped to its owner.
func (e *Execution) Get(ctx context.Context, id, ownerID string) (*models.Execution, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	return e.persistence.ExecutionByID(ctx, id, ownerID)
}

// ListByWorkflow returns a workflow's executions, newest first.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID, ownerID string) ([]*models.Execution, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	executions, err := e.persistence.ExecutionsByWorkflow(ctx, workflowID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Logs returns the node attempt log of an execution, oldest first. The
// ownership check goes through the execution row.
func (e *Execution) Logs(ctx context.Context, executionID, ownerID string) ([]*models.ExecutionLog, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	_, err := e.persistence.ExecutionByID(ctx, executionID, ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := e.persistence.LogsByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}

	return entries, nil
}
