package aiagent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
)

type fakeCompletionClient struct {
	request  openai.ChatCompletionRequest
	response openai.ChatCompletionResponse
	err      error
}

func (c *fakeCompletionClient) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.request = request

	return c.response, c.err
}

type fakeCredentialStore struct {
	credential *models.Credential
}

func (s *fakeCredentialStore) CredentialByID(_ context.Context, id, ownerID string) (*models.Credential, error) {
	if s.credential == nil || s.credential.ID != id || s.credential.OwnerID != ownerID {
		return nil, credentials.ErrCredentialNotFound
	}

	return s.credential, nil
}

func testResolver(t *testing.T) *credentials.Resolver {
	t.Helper()

	blob, err := credentials.Encrypt(`{"apiKey":"sk-test"}`, "unit-test-key")
	require.NoError(t, err)

	store := &fakeCredentialStore{credential: &models.Credential{
		ID: "cred-1", OwnerID: "user-1", Type: models.CredentialTypeOpenAI, Data: blob,
	}}

	return credentials.NewResolver(store, "unit-test-key")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestNewAction_Defaults(t *testing.T) {
	action, err := NewAction(map[string]any{
		"credentialId": "cred-1",
		"prompt":       "hello",
	}, testResolver(t))

	require.NoError(t, err)
	assert.Equal(t, defaultModel, action.model)
}

func TestNewAction_MissingPrompt(t *testing.T) {
	_, err := NewAction(map[string]any{"credentialId": "cred-1"}, testResolver(t))

	assert.ErrorIs(t, err, ErrPromptRequired)
}

func TestExecute_ReturnsCompletionText(t *testing.T) {
	action, err := NewAction(map[string]any{
		"credentialId": "cred-1",
		"model":        "gpt-4o",
		"prompt":       "say hi",
	}, testResolver(t))
	require.NoError(t, err)

	client := &fakeCompletionClient{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "hi there"}},
		},
	}}
	action.newClient = func(apiKey string) completionClient {
		assert.Equal(t, "sk-test", apiKey)

		return client
	}

	output, err := action.Execute(context.Background(), models.ExecutionContext{OwnerID: "user-1"}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"output": "hi there"}, output)
	assert.Equal(t, "gpt-4o", client.request.Model)
	require.Len(t, client.request.Messages, 1)
	assert.Equal(t, "say hi", client.request.Messages[0].Content)
}

func TestExecute_CredentialNotFound(t *testing.T) {
	action, err := NewAction(map[string]any{
		"credentialId": "missing",
		"prompt":       "say hi",
	}, testResolver(t))
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{OwnerID: "user-1"}, testLogger())
	assert.True(t, credentials.IsNotFound(err))
}

func TestExecute_UpstreamError(t *testing.T) {
	action, err := NewAction(map[string]any{
		"credentialId": "cred-1",
		"prompt":       "say hi",
	}, testResolver(t))
	require.NoError(t, err)

	action.newClient = func(string) completionClient {
		return &fakeCompletionClient{err: errors.New("rate limited")}
	}

	_, err = action.Execute(context.Background(), models.ExecutionContext{OwnerID: "user-1"}, testLogger())

	var completionErr *CompletionError

	require.ErrorAs(t, err, &completionErr)
	assert.Contains(t, err.Error(), "rate limited")
}
