// Package web provides the HTTP handlers and REST API for workflow
// management, execution monitoring and credential storage.
package web

import (
	"time"

	"github.com/weftwork/weft/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string               `json:"name"        validate:"required,min=1"`
	Description string               `json:"description"`
	Nodes       []*models.Node       `json:"nodes"       validate:"required,min=1,dive"`
	Connections []*models.Connection `json:"connections" validate:"omitempty,dive"`
}

// UpdateWorkflowRequest replaces a workflow's definition. Updates are full
// replacements, matching how editors save the whole canvas.
type UpdateWorkflowRequest struct {
	Name        string               `json:"name"        validate:"required,min=1"`
	Description string               `json:"description"`
	Nodes       []*models.Node       `json:"nodes"       validate:"required,min=1,dive"`
	Connections []*models.Connection `json:"connections" validate:"omitempty,dive"`
}

// CreateCredentialRequest represents the request body for storing a
// credential. The secret fields are accepted once and never returned.
type CreateCredentialRequest struct {
	Name     string `json:"name"     validate:"required,min=1"`
	Type     string `json:"type"     validate:"required,oneof=openai telegram email"`
	APIKey   string `json:"apiKey"`
	BotToken string `json:"botToken"`
}

// CredentialResponse omits the encrypted blob.
type CredentialResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func toCredentialResponse(credential *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        credential.ID,
		Name:      credential.Name,
		Type:      string(credential.Type),
		CreatedAt: credential.CreatedAt,
	}
}

// EnqueuedResponse acknowledges an accepted run.
type EnqueuedResponse struct {
	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
}
