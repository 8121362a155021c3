package web

import "github.com/gofiber/fiber/v3"

// Register mounts all API routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/logs", h.GetExecutionLogs)

	c := app.Group("/credentials")
	c.Get("/", h.GetCredentials)
	c.Post("/", h.CreateCredential)

	// Webhook delivery is unauthenticated; knowing the workflow id is the
	// capability.
	app.Post("/webhooks/:workflowID", h.Webhook)
}
