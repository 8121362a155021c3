package models

import "time"

// ExecutionStatus represents the lifecycle state of a run. Transitions only
// move forward: PENDING -> RUNNING -> {COMPLETED, FAILED}.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "PENDING"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
)

// TriggerType records what produced a run.
type TriggerType string

const (
	TriggerTypeManual  TriggerType = "manual"
	TriggerTypeWebhook TriggerType = "webhook"
)

// Execution is one attempt to execute a workflow's graph. Nodes and
// Connections are a snapshot of the workflow taken at enqueue time, so later
// edits never affect in-flight runs.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	OwnerID     string          `json:"owner_id"`
	Status      ExecutionStatus `json:"status"`
	Trigger     TriggerType     `json:"trigger"`
	Nodes       []*Node         `json:"nodes"`
	Connections []*Connection   `json:"connections"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	Output      map[string]any  `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	// Lease fields. A claimed run belongs to WorkerID until LeaseExpiresAt;
	// an expired lease makes the run claimable again so a crashed worker's
	// runs are not stuck RUNNING forever.
	WorkerID       string     `json:"worker_id,omitempty"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`
}

// TriggerNode returns the snapshot's single trigger node, or nil.
func (e *Execution) TriggerNode() *Node {
	for _, node := range e.Nodes {
		if node.IsTriggerNode() {
			return node
		}
	}

	return nil
}

// LogStatus is the terminal status of a single node attempt.
type LogStatus string

const (
	LogStatusCompleted LogStatus = "COMPLETED"
	LogStatusFailed    LogStatus = "FAILED"
)

// ExecutionLog is an append-only record of one attempted node. Rows are
// created exactly once per attempt and never updated.
type ExecutionLog struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	NodeName    string         `json:"node_name"`
	Status      LogStatus      `json:"status"`
	InputData   []any          `json:"input_data,omitempty"`
	OutputData  map[string]any `json:"output_data,omitempty"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
