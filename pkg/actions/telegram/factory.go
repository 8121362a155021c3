package telegram

import (
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/protocol"
)

// Factory creates Telegram actions bound to a credential resolver.
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
	return models.KindTelegram
}

// Schema returns the JSON schema for Telegram parameters.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"credentialId": map[string]any{
				"type":        "string",
				"description": "Credential holding the bot token.",
			},
			"chatId": map[string]any{
				"type":        "string",
				"description": "Numeric chat id the message is sent to.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message text. Supports {{...}} interpolation.",
			},
		},
		"required": []string{"credentialId", "chatId", "message"},
	}
}
