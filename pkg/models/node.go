// Package models defines the core domain models for node-based workflow automation.
package models

// NodeType separates entry-point nodes from side-effecting ones.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger" // Entry point of a run (webhook, manual)
	NodeTypeAction  NodeType = "action"  // Side-effecting nodes (aiAgent, telegram, email)
)

// NodeKind discriminates behavior within a node type. The set is closed:
// executors dispatch over it exhaustively rather than falling through a
// default branch.
type NodeKind string

const (
	KindWebhook NodeKind = "webhook"
	KindManual  NodeKind = "manual"

	KindAIAgent  NodeKind = "aiAgent"
	KindTelegram NodeKind = "telegram"
	KindEmail    NodeKind = "email"
)

// TriggerKinds and ActionKinds enumerate the closed kind set per node type.
var (
	TriggerKinds = []NodeKind{KindWebhook, KindManual}
	ActionKinds  = []NodeKind{KindAIAgent, KindTelegram, KindEmail}
)

func (k NodeKind) IsTrigger() bool {
	return k == KindWebhook || k == KindManual
}

func (k NodeKind) IsAction() bool {
	return k == KindAIAgent || k == KindTelegram || k == KindEmail
}

// Node represents a node instance in a workflow graph. Parameters values may
// be literals or {{...}} interpolation templates resolved at execution time.
type Node struct {
	ID         string         `json:"id"         validate:"required"`
	Name       string         `json:"name"       validate:"required,min=1"`
	Type       NodeType       `json:"type"       validate:"required"`
	Kind       NodeKind       `json:"kind"       validate:"required"`
	Parameters map[string]any `json:"parameters"`
	Disabled   bool           `json:"disabled"`
}

func (n *Node) IsTriggerNode() bool {
	return n.Type == NodeTypeTrigger
}

func (n *Node) IsActionNode() bool {
	return n.Type == NodeTypeAction
}
