package models

// ExecutionContext carries run-scoped identity through action dispatch.
// Actions use OwnerID for credential lookups; the rest is log enrichment.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	OwnerID     string         `json:"owner_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}
