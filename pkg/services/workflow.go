package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
	"github.com/weftwork/weft/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow is the workflow management service. Graph validation happens here
// so the executor can assume every stored workflow has exactly one enabled
// trigger and a closed set of node kinds.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    registry,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all workflows owned by ownerID.
func (w *Workflow) List(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	workflows, err := w.persistence.Workflows(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Get returns a single workflow scoped to its owner.
func (w *Workflow) Get(ctx context.Context, id, ownerID string) (*models.Workflow, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	workflow, err := w.persistence.WorkflowByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Create validates and stores a new workflow.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	err := w.validateGraph(workflow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Update validates and replaces an existing workflow's definition.
func (w *Workflow) Update(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	existing, err := w.persistence.WorkflowByID(ctx, workflow.ID, workflow.OwnerID)
	if err != nil {
		return nil, err
	}

	err = w.validateGraph(workflow)
	if err != nil {
		return nil, err
	}

	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	err = w.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow. In-flight executions keep their snapshot and
// are unaffected.
func (w *Workflow) Delete(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return ErrEmptyOwnerID
	}

	return w.persistence.DeleteWorkflow(ctx, id, ownerID)
}

// validateGraph enforces the structural invariants: a name, at least one
// node, exactly one enabled trigger, known kinds matching their node type,
// unique node ids, connections between existing nodes, and action
// parameters passing their kind's schema.
func (w *Workflow) validateGraph(workflow *models.Workflow) error {
	if workflow.Name == "" {
		return ErrWorkflowNameRequired
	}

	if len(workflow.Nodes) == 0 {
		return ErrNodesRequired
	}

	seen := make(map[string]bool, len(workflow.Nodes))
	triggers := 0

	for _, node := range workflow.Nodes {
		if seen[node.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}

		seen[node.ID] = true

		switch node.Type {
		case models.NodeTypeTrigger:
			if !node.Kind.IsTrigger() {
				return fmt.Errorf("%w: %s is not a trigger kind", ErrKindTypeMismatch, node.Kind)
			}

			if !node.Disabled {
				triggers++
			}
		case models.NodeTypeAction:
			if !node.Kind.IsAction() {
				if node.Kind.IsTrigger() {
					return fmt.Errorf("%w: %s is not an action kind", ErrKindTypeMismatch, node.Kind)
				}

				return fmt.Errorf("%w: %s", ErrUnknownNodeKind, node.Kind)
			}

			err := w.registry.ValidateParameters(node.Kind, node.Parameters)
			if err != nil {
				return fmt.Errorf("%w: node %s: %v", ErrInvalidParameters, node.ID, err)
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownNodeKind, node.Kind)
		}
	}

	if triggers != 1 {
		return ErrTriggerNodeRequired
	}

	for _, connection := range workflow.Connections {
		if !seen[connection.Source] || !seen[connection.Target] {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidConnection, connection.Source, connection.Target)
		}
	}

	return nil
}
