package email

import (
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// Factory creates email actions bound to a credential resolver.
type Factory struct {
	credentials *credentials.Resolver
}

func NewFactory(resolver *credentials.Resolver) *Factory {
	return &Factory{credentials: resolver}
}

func (f *Factory) Create(parameters map[string]any) (protocol.Action, error) {
	return NewAction(parameters, f.credentials)
}

func (f *Factory) Kind() models.NodeKind {
	return models.KindEmail
}

// Schema returns the JSON schema for email parameters.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"credentialId": map[string]any{
				"type":        "string",
				"description": "Credential holding the email provider API key.",
			},
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports {{...}} interpolation.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text body, wrapped in a paragraph tag when sent.",
			},
		},
		"required": []string{"credentialId", "to"},
	}
}
