package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
)

// ExecutionRepository handles execution and execution log database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , workflow_id
  , owner_id
  , status
  , trigger_type
  , nodes
  , connections
  , trigger_data
  , output
  , error
  , started_at
  , completed_at
  , worker_id
  , lease_expires_at
`

// Create inserts a new PENDING execution row.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	nodes, err := json.Marshal(execution.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	connections, err := json.Marshal(execution.Connections)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}

	triggerData, err := marshalNullable(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, owner_id, status, trigger_type, nodes, connections, trigger_data, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.OwnerID,
		execution.Status,
		execution.Trigger,
		nodes,
		connections,
		triggerData,
		execution.StartedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1 AND owner_id = $2`

	row := r.db.QueryRowContext(ctx, query, id, ownerID)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID, ownerID string) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1 AND owner_id = $2
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return collectExecutions(rows)
}

// ListClaimable returns executions a worker may claim: PENDING rows plus
// RUNNING rows whose lease has expired, oldest first.
func (r *ExecutionRepository) ListClaimable(ctx context.Context, limit int) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'PENDING'
		   OR (status = 'RUNNING' AND lease_expires_at IS NOT NULL AND lease_expires_at < NOW())
		ORDER BY started_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimable executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return collectExecutions(rows)
}

// Claim atomically moves an execution to RUNNING under this worker's lease.
// The WHERE clause repeats the claimable condition, so of several concurrent
// claimants exactly one update matches.
func (r *ExecutionRepository) Claim(ctx context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error) {
	query := `
		UPDATE executions
		SET status = 'RUNNING',
			worker_id = $2,
			lease_expires_at = $3,
			started_at = NOW()
		WHERE id = $1
		  AND (status = 'PENDING'
			OR (status = 'RUNNING' AND lease_expires_at IS NOT NULL AND lease_expires_at < NOW()))
	`

	result, err := r.db.ExecContext(ctx, query, executionID, workerID, leaseUntil)
	if err != nil {
		return false, persistence.NewExecutionError("Claim", executionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewExecutionError("Claim", executionID, err)
	}

	return affected == 1, nil
}

// Finish records the terminal status, output and error of a run.
func (r *ExecutionRepository) Finish(ctx context.Context, execution *models.Execution) error {
	output, err := marshalNullable(execution.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2,
			output = $3,
			error = $4,
			completed_at = $5,
			lease_expires_at = NULL
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		output,
		execution.Error,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Finish", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Finish", execution.ID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Finish", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

// AppendLog inserts one node attempt row. Rows are never updated.
func (r *ExecutionRepository) AppendLog(ctx context.Context, entry *models.ExecutionLog) error {
	inputData, err := marshalNullable(entry.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	outputData, err := marshalNullable(entry.OutputData)
	if err != nil {
		return fmt.Errorf("failed to marshal output data: %w", err)
	}

	query := `
		INSERT INTO execution_logs (id, execution_id, node_id, node_name, status, input_data, output_data, error, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ExecutionID,
		entry.NodeID,
		entry.NodeName,
		entry.Status,
		inputData,
		outputData,
		entry.Error,
		entry.Timestamp,
	)
	if err != nil {
		return persistence.NewExecutionError("AppendLog", entry.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionRepository) LogsByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , node_name
		  , status
		  , input_data
		  , output_data
		  , error
		  , timestamp
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry      models.ExecutionLog
			inputData  []byte
			outputData []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.ExecutionID,
			&entry.NodeID,
			&entry.NodeName,
			&entry.Status,
			&inputData,
			&outputData,
			&entry.Error,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		if inputData != nil {
			err = json.Unmarshal(inputData, &entry.InputData)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
			}
		}

		if outputData != nil {
			err = json.Unmarshal(outputData, &entry.OutputData)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal output data: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}

func collectExecutions(rows *sql.Rows) ([]*models.Execution, error) {
	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		nodes       []byte
		connections []byte
		triggerData []byte
		output      []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.OwnerID,
		&execution.Status,
		&execution.Trigger,
		&nodes,
		&connections,
		&triggerData,
		&output,
		&execution.Error,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.WorkerID,
		&execution.LeaseExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(nodes, &execution.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	err = json.Unmarshal(connections, &execution.Connections)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}

	if triggerData != nil {
		err = json.Unmarshal(triggerData, &execution.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if output != nil {
		err = json.Unmarshal(output, &execution.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal output: %w", err)
		}
	}

	return &execution, nil
}

// marshalNullable turns an empty value into SQL NULL instead of a JSON
// literal, so absent data stays absent.
func marshalNullable(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return nil, nil
		}
	case []any:
		if v == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return data, nil
}
