// Package aiagent provides the LLM completion action.
package aiagent

import (
	"context"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
)

const defaultModel = "gpt-4o-mini"

// completionClient is the slice of the OpenAI client the action uses.
// *openai.Client satisfies it.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Action sends a prompt to a chat-completion model and returns the
// completion text.
type Action struct {
	credentialID string
	model        string
	prompt       string

	credentials *credentials.Resolver
	newClient   func(apiKey string) completionClient
}

func NewAction(parameters map[string]any, resolver *credentials.Resolver) (*Action, error) {
	credentialID, _ := parameters["credentialId"].(string)

	model, _ := parameters["model"].(string)
	if model == "" {
		model = defaultModel
	}

	prompt, _ := parameters["prompt"].(string)
	if prompt == "" {
		return nil, ErrPromptRequired
	}

	return &Action{
		credentialID: credentialID,
		model:        model,
		prompt:       prompt,
		credentials:  resolver,
		newClient: func(apiKey string) completionClient {
			return openai.NewClient(apiKey)
		},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "aiagent_action", "model", a.model)
	logger.InfoContext(ctx, "Executing AI agent action")

	secret, err := a.credentials.Resolve(ctx, a.credentialID, executionCtx.OwnerID, models.CredentialTypeOpenAI)
	if err != nil {
		return nil, err
	}

	if secret.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	response, err := a.newClient(secret.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: a.prompt},
		},
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	if len(response.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	logger.InfoContext(ctx, "AI agent action completed")

	return map[string]any{
		"output": response.Choices[0].Message.Content,
	}, nil
}
