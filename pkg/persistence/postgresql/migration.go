package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner VARCHAR(255),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner ON workflows(owner);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE tasks (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				organization_id VARCHAR(255),
				trigger_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled', 'suspended')),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_tasks_workflow_id ON tasks(workflow_id);
			CREATE INDEX idx_tasks_status ON tasks(status);
			CREATE INDEX idx_tasks_created_at ON tasks(created_at);

			CREATE TABLE triggers (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL CHECK (type IN ('SCHEDULE', 'WEBHOOK')),
				webhook_path VARCHAR(255),
				enabled BOOLEAN NOT NULL DEFAULT true,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_triggers_workflow_id ON triggers(workflow_id);
			CREATE INDEX idx_triggers_enabled ON triggers(enabled);
			CREATE UNIQUE INDEX idx_triggers_webhook_path ON triggers(webhook_path) WHERE webhook_path IS NOT NULL;

			CREATE TABLE trigger_logs (
				id VARCHAR(255) PRIMARY KEY,
				trigger_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('SUCCESS', 'FAILED', 'SKIPPED')),
				document JSONB NOT NULL,
				fired_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_trigger_logs_trigger_id ON trigger_logs(trigger_id);
			CREATE INDEX idx_trigger_logs_fired_at ON trigger_logs(fired_at);

			CREATE TABLE approvals (
				id VARCHAR(255) PRIMARY KEY,
				status VARCHAR(50) NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'EXPIRED', 'CANCELLED')),
				expires_at TIMESTAMP WITH TIME ZONE,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approvals_status ON approvals(status);
			CREATE INDEX idx_approvals_expires_at ON approvals(expires_at);

			CREATE TABLE suspensions (
				approval_id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				discarded BOOLEAN NOT NULL DEFAULT false,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_suspensions_execution_id ON suspensions(execution_id);
		`,
	}
}
