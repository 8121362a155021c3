package aiagent

import (
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// Factory creates AI agent actions bound to a credential resolver.
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
	return models.KindAIAgent
}

// Schema returns the JSON schema for AI agent parameters.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"credentialId": map[string]any{
				"type":        "string",
				"description": "Credential holding the LLM provider API key.",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Chat completion model name.",
				"default":     defaultModel,
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the model. Supports {{...}} interpolation.",
				"examples": []string{
					"Summarize: {{Webhook Trigger.body.text}}",
				},
			},
		},
		"required": []string{"credentialId", "prompt"},
	}
}
