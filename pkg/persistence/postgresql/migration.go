package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL,
				trigger_event VARCHAR(255) NOT NULL,
				trigger_conditions JSONB NOT NULL DEFAULT '{}',
				steps JSONB NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				max_retries INTEGER NOT NULL DEFAULT 0,
				retry_delay_seconds INTEGER NOT NULL DEFAULT 0,
				timeout_seconds INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_definitions_trigger_event ON workflow_definitions(trigger_event);

			-- Immutable snapshots; instances execute the version they were created with
			CREATE TABLE workflow_definition_versions (
				definition_id VARCHAR(255) NOT NULL REFERENCES workflow_definitions(id),
				version INTEGER NOT NULL,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (definition_id, version)
			);

			CREATE TABLE workflow_triggers (
				id VARCHAR(255) PRIMARY KEY,
				event_name VARCHAR(255) NOT NULL,
				definition_id VARCHAR(255) NOT NULL REFERENCES workflow_definitions(id),
				enabled BOOLEAN NOT NULL DEFAULT true,
				priority INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_triggers_event ON workflow_triggers(event_name, priority DESC) WHERE enabled;
			CREATE INDEX idx_workflow_triggers_definition ON workflow_triggers(definition_id);
		`,
		2: `
			CREATE TABLE workflow_instances (
				id VARCHAR(255) PRIMARY KEY,
				definition_id VARCHAR(255) NOT NULL REFERENCES workflow_definitions(id),
				definition_version INTEGER NOT NULL,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'running', 'paused', 'completed', 'failed', 'cancelled')),
				context JSONB NOT NULL DEFAULT '{}',
				current_step INTEGER NOT NULL DEFAULT 0,
				step_results JSONB NOT NULL DEFAULT '[]',
				error_message TEXT,
				next_step_at TIMESTAMP WITH TIME ZONE,
				locked_by VARCHAR(255),
				locked_until TIMESTAMP WITH TIME ZONE,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_instances_status_due ON workflow_instances(status, next_step_at);
			CREATE INDEX idx_workflow_instances_entity ON workflow_instances(entity_type, entity_id);
			CREATE INDEX idx_workflow_instances_definition ON workflow_instances(definition_id);

			CREATE TABLE workflow_step_logs (
				id VARCHAR(255) PRIMARY KEY,
				instance_id VARCHAR(255) NOT NULL REFERENCES workflow_instances(id),
				step_index INTEGER NOT NULL,
				step_name VARCHAR(255) NOT NULL,
				action_type VARCHAR(50) NOT NULL,
				action_config JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'completed', 'failed', 'skipped')),
				result JSONB,
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT,
				attempt_number INTEGER NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_workflow_step_logs_instance ON workflow_step_logs(instance_id, step_index, started_at);
		`,
	}
}
