package models

import "time"

// Workflow represents a node-based workflow owned by a user.
type Workflow struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"    validate:"required"`
	Name        string        `json:"name"        validate:"required,min=1"`
	Description string        `json:"description"`
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TriggerNode returns the workflow's single trigger node, or nil when the
// graph has none.
func (w *Workflow) TriggerNode() *Node {
	for _, node := range w.Nodes {
		if node.IsTriggerNode() {
			return node
		}
	}

	return nil
}
