// Package services provides the business logic layer between the HTTP
// surface and persistence.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrEmptyOwnerID         = errors.New("owner ID cannot be empty")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
	ErrTriggerNodeRequired  = errors.New("workflow must have exactly one enabled trigger node")
	ErrUnknownNodeKind      = errors.New("unknown node kind")
	ErrKindTypeMismatch     = errors.New("node kind does not match node type")
	ErrDuplicateNodeID      = errors.New("duplicate node id")
	ErrInvalidConnection    = errors.New("connection references unknown node")
	ErrInvalidParameters    = errors.New("invalid node parameters")

	ErrCredentialNameRequired = errors.New("credential name is required")
	ErrCredentialTypeInvalid  = errors.New("invalid credential type")
	ErrCredentialDataRequired = errors.New("credential data is required")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrUnknownNodeKind) ||
		errors.Is(err, ErrKindTypeMismatch) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrInvalidConnection) ||
		errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrCredentialNameRequired) ||
		errors.Is(err, ErrCredentialTypeInvalid) ||
		errors.Is(err, ErrCredentialDataRequired)
}
