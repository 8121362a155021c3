// Package registry maps action kinds to their factories.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// ErrKindNotRegistered indicates a node kind with no registered factory.
// The executor treats this as a hard node failure.
var ErrKindNotRegistered = errors.New("action kind not registered")

type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeKind]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.factories[factory.Kind()] = factory
}

// CreateAction builds an action of the given kind from resolved parameters.
func (r *Registry) CreateAction(kind models.NodeKind, parameters map[string]any) (protocol.Action, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}

	return factory.Create(parameters)
}

// Schema returns the parameter schema for a registered kind.
func (r *Registry) Schema(kind models.NodeKind) (map[string]any, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}

	return factory.Schema(), nil
}

// Kinds lists every registered action kind.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
