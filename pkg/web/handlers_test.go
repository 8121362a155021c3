package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwork/weft/pkg/actions/aiagent"
	"github.com/weftwork/weft/pkg/actions/email"
	"github.com/weftwork/weft/pkg/actions/telegram"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence/file"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/services"
	"github.com/weftwork/weft/pkg/web"
)

const testEncryptionKey = "handlers-test-key"

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	resolver := credentials.NewResolver(persistence, testEncryptionKey)

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(aiagent.NewFactory(resolver))
	reg.RegisterAction(telegram.NewFactory(resolver))
	reg.RegisterAction(email.NewFactory(resolver))

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(persistence, reg),
		services.NewExecution(persistence),
		services.NewCredential(persistence, testEncryptionKey),
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.Register(app)

	return app, persistence
}

func doJSON(t *testing.T, app *fiber.App, method, path, owner string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	if owner != "" {
		req.Header.Set(web.OwnerHeader, owner)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	responseBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, responseBody
}

func workflowPayload() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:        "Order notifications",
		Description: "Email on new orders",
		Nodes: []*models.Node{
			{ID: "t", Name: "Start", Type: models.NodeTypeTrigger, Kind: models.KindManual},
			{
				ID:         "send",
				Name:       "Send email",
				Type:       models.NodeTypeAction,
				Kind:       models.KindEmail,
				Parameters: map[string]any{"credentialId": "cred-1", "to": "ops@example.com"},
			},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "t", Target: "send"},
		},
	}
}

func createWorkflow(t *testing.T, app *fiber.App, owner string) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/", owner, workflowPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return workflow
}

func TestCreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "owner-1", workflow.OwnerID)
	assert.Len(t, workflow.Nodes, 2)
}

func TestCreateWorkflow_MissingOwnerHeader(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/", "", workflowPayload())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateWorkflow_RejectsGraphWithoutTrigger(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := workflowPayload()
	payload.Nodes = payload.Nodes[1:]
	payload.Connections = nil

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/", "owner-1", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "trigger")
}

func TestGetWorkflow_ScopedToOwner(t *testing.T) {
	app, _ := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, "owner-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, "owner-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID, "owner-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, "owner-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunWorkflow_EnqueuesPendingExecution(t *testing.T) {
	app, persistence := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/run", "owner-1", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var enqueued web.EnqueuedResponse
	require.NoError(t, json.Unmarshal(body, &enqueued))
	assert.NotEmpty(t, enqueued.ExecutionID)
	assert.Equal(t, models.ExecutionStatusPending, enqueued.Status)

	// The run is visible to the claim loop.
	claimable, err := persistence.ListClaimable(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, claimable, 1)
	assert.Equal(t, enqueued.ExecutionID, claimable[0].ID)
}

func TestRunWorkflow_UnknownWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/missing/run", "owner-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhook_EnqueuesWithTriggerData(t *testing.T) {
	app, persistence := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	payload := map[string]any{"orderId": "A-17"}

	resp, body := doJSON(t, app, http.MethodPost, "/webhooks/"+workflow.ID+"?source=shop", "", payload)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var enqueued web.EnqueuedResponse
	require.NoError(t, json.Unmarshal(body, &enqueued))

	execution, err := persistence.ExecutionByID(t.Context(), enqueued.ExecutionID, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, models.TriggerTypeWebhook, execution.Trigger)
	assert.Equal(t, "owner-1", execution.OwnerID)

	triggerBody, ok := execution.TriggerData["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A-17", triggerBody["orderId"])

	query, ok := execution.TriggerData["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shop", query["source"])

	assert.Equal(t, "POST", execution.TriggerData["method"])
}

func TestWebhook_UnknownWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/webhooks/missing", "", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecutionLogs_ScopedToOwner(t *testing.T) {
	app, _ := setupTestApp(t)

	workflow := createWorkflow(t, app, "owner-1")

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/run", "owner-1", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var enqueued web.EnqueuedResponse
	require.NoError(t, json.Unmarshal(body, &enqueued))

	resp, _ = doJSON(t, app, http.MethodGet, "/executions/"+enqueued.ExecutionID+"/logs", "owner-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/executions/"+enqueued.ExecutionID+"/logs", "owner-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCredentials_SecretNeverReturned(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/credentials/", "owner-1", web.CreateCredentialRequest{
		Name:   "OpenAI key",
		Type:   "openai",
		APIKey: "sk-test-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	assert.NotContains(t, string(body), "sk-test-123")

	var created web.CredentialResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "openai", created.Type)

	resp, body = doJSON(t, app, http.MethodGet, "/credentials/", "owner-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "sk-test-123")

	resp, body = doJSON(t, app, http.MethodGet, "/credentials/", "owner-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Credentials []web.CredentialResponse `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Empty(t, listing.Credentials)
}

func TestCreateCredential_RejectsUnknownType(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/credentials/", "owner-1", web.CreateCredentialRequest{
		Name:   "GitHub",
		Type:   "github",
		APIKey: "k",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
