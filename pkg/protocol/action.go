// Package protocol defines the interfaces action implementations satisfy.
package protocol

import (
	"context"
	"log/slog"

	"github.com/weftwork/weft/pkg/models"
)

// Action performs one side-effecting operation for a single node. Execute
// receives parameters already resolved by interpolation and returns the
// node's output object.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds actions of one kind from resolved parameters.
type ActionFactory interface {
	Create(parameters map[string]any) (Action, error)
	Kind() models.NodeKind

	// Schema returns the JSON schema for this kind's parameters, enforced
	// when workflows are created.
	Schema() map[string]any
}
