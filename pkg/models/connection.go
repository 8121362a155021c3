package models

// Connection is a directed edge between two node ids. Handles identify which
// visual port the edge attaches to; execution only cares about identity.
type Connection struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"target_handle,omitempty"`
}
