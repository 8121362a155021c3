package web

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/services"
)

// OwnerHeader identifies the calling user. A gateway in front of the API is
// expected to authenticate and set it.
const OwnerHeader = "X-Owner-ID"

type APIHandlers struct {
	workflowService   *services.Workflow
	executionService  *services.Execution
	credentialService *services.Credential
	validator         *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	credentialService *services.Credential,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		executionService:  executionService,
		credentialService: credentialService,
		validator:         validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.workflowService.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": message})
	}

	return c.JSON(fiber.Map{"status": message})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	workflows, err := h.workflowService.List(c.Context(), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	var req CreateWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	workflow, err := h.workflowService.Create(c.Context(), &models.Workflow{
		OwnerID:     owner,
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Connections: req.Connections,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Get(c.Context(), id, owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	var req UpdateWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	workflow, err := h.workflowService.Update(c.Context(), &models.Workflow{
		ID:          c.Params("id"),
		OwnerID:     owner,
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Connections: req.Connections,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	err := h.workflowService.Delete(c.Context(), c.Params("id"), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunWorkflow enqueues a manual run. The worker fleet picks it up through
// the claim loop, so a 202 only promises the run is queued.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	execution, err := h.executionService.EnqueueManual(c.Context(), c.Params("id"), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(EnqueuedResponse{
		ExecutionID: execution.ID,
		Status:      execution.Status,
	})
}

// Webhook enqueues a run for an external caller. The full request context
// goes into the trigger data so downstream nodes can interpolate against it.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	workflowID := c.Params("workflowID")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var body any

	raw := c.Body()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			// Non-JSON payloads pass through as a string.
			body = string(raw)
		}
	}

	headers := make(map[string]any)
	for key, values := range c.GetReqHeaders() {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}

	query := make(map[string]any)
	for key, value := range c.Queries() {
		query[key] = value
	}

	triggerData := map[string]any{
		"body":      body,
		"headers":   headers,
		"query":     query,
		"method":    c.Method(),
		"url":       c.OriginalURL(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	execution, err := h.executionService.EnqueueWebhook(c.Context(), workflowID, triggerData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(EnqueuedResponse{
		ExecutionID: execution.ID,
		Status:      execution.Status,
	})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	execution, err := h.executionService.Get(c.Context(), c.Params("id"), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	entries, err := h.executionService.Logs(c.Context(), c.Params("id"), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": entries})
}

func (h *APIHandlers) CreateCredential(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	var req CreateCredentialRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	credential, err := h.credentialService.Create(
		c.Context(),
		owner,
		req.Name,
		models.CredentialType(req.Type),
		credentials.Secret{APIKey: req.APIKey, BotToken: req.BotToken},
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toCredentialResponse(credential))
}

func (h *APIHandlers) GetCredentials(c fiber.Ctx) error {
	owner := c.Get(OwnerHeader)
	if owner == "" {
		return unauthorized(c, "missing "+OwnerHeader+" header")
	}

	owned, err := h.credentialService.List(c.Context(), owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]CredentialResponse, 0, len(owned))
	for _, credential := range owned {
		responses = append(responses, toCredentialResponse(credential))
	}

	return c.JSON(fiber.Map{"credentials": responses})
}
