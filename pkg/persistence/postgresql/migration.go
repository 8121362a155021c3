package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflows. Nodes and connections live as JSONB documents: the
			-- executor always consumes them as a whole graph snapshot.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				owner_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_owner_id ON workflows(owner_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Executions carry a workflow snapshot taken at enqueue time.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id),
				owner_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('PENDING', 'RUNNING', 'COMPLETED', 'FAILED')),
				trigger_type VARCHAR(50) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				trigger_data JSONB,
				output JSONB,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				worker_id VARCHAR(255) NOT NULL DEFAULT '',
				lease_expires_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_owner_id ON executions(owner_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_lease_expires_at ON executions(lease_expires_at);

			-- Append-only node attempt log.
			CREATE TABLE execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('COMPLETED', 'FAILED')),
				input_data JSONB,
				output_data JSONB,
				error TEXT NOT NULL DEFAULT '',
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_execution_id ON execution_logs(execution_id);
			CREATE INDEX idx_execution_logs_node_id ON execution_logs(node_id);

			-- Credentials store an encrypted blob, never plaintext.
			CREATE TABLE credentials (
				id VARCHAR(255) PRIMARY KEY,
				owner_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL,
				data TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_credentials_owner_id ON credentials(owner_id);
		`,
	}
}
