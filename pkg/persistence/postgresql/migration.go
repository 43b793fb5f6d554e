package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				company_id VARCHAR(64) NOT NULL,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('job_opening', 'candidate_application', 'candidate_onboarding')),
				display_mode VARCHAR(50) NOT NULL,
				phase_id VARCHAR(64),
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				is_default BOOLEAN NOT NULL DEFAULT false,
				version BIGINT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_company_kind ON workflows(company_id, kind);
			CREATE INDEX idx_workflows_phase_id ON workflows(phase_id);

			-- At most one default per (company, kind)
			CREATE UNIQUE INDEX idx_workflows_default ON workflows(company_id, kind) WHERE is_default;

			CREATE TABLE workflow_stages (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id VARCHAR(64) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				stage_type VARCHAR(50) NOT NULL CHECK (stage_type IN ('normal', 'success', 'fail')),
				stage_order INT NOT NULL CHECK (stage_order > 0),
				allow_skip BOOLEAN NOT NULL DEFAULT false,
				estimated_duration_days INT,
				active BOOLEAN NOT NULL DEFAULT true,
				default_role_ids TEXT[] NOT NULL DEFAULT '{}',
				default_user_ids TEXT[] NOT NULL DEFAULT '{}',
				email_template_id VARCHAR(64),
				deadline_days INT,
				estimated_cost NUMERIC(12, 2),
				next_phase_id VARCHAR(64),
				style JSONB NOT NULL DEFAULT '{}',
				validation_rules JSONB,
				version BIGINT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				-- Checked at commit so that a swap of two orders can run as two updates
				CONSTRAINT uq_workflow_stage_order UNIQUE (workflow_id, stage_order) DEFERRABLE INITIALLY DEFERRED
			);

			CREATE INDEX idx_workflow_stages_workflow_id ON workflow_stages(workflow_id);

			CREATE TABLE candidate_applications (
				id VARCHAR(64) PRIMARY KEY,
				candidate_id VARCHAR(64) NOT NULL,
				position_id VARCHAR(64) NOT NULL,
				current_phase_id VARCHAR(64),
				current_stage_id VARCHAR(64),
				stage_entered_at TIMESTAMP WITH TIME ZONE,
				stage_deadline TIMESTAMP WITH TIME ZONE,
				task_status VARCHAR(50) NOT NULL CHECK (task_status IN ('pending', 'in_progress', 'completed', 'blocked')),
				version BIGINT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_candidate_applications_position_id ON candidate_applications(position_id);
			CREATE INDEX idx_candidate_applications_stage_deadline ON candidate_applications(stage_deadline)
				WHERE stage_deadline IS NOT NULL;

			CREATE TABLE candidate_application_stages (
				id VARCHAR(64) PRIMARY KEY,
				application_id VARCHAR(64) NOT NULL REFERENCES candidate_applications(id) ON DELETE CASCADE,
				phase_id VARCHAR(64),
				workflow_id VARCHAR(64) NOT NULL,
				stage_id VARCHAR(64) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				deadline TIMESTAMP WITH TIME ZONE,
				estimated_cost NUMERIC(12, 2),
				actual_cost NUMERIC(12, 2),
				comments TEXT NOT NULL DEFAULT '',
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_candidate_application_stages_application_id
				ON candidate_application_stages(application_id, started_at);

			CREATE TABLE position_stage_assignments (
				position_id VARCHAR(64) NOT NULL,
				stage_id VARCHAR(64) NOT NULL,
				user_id VARCHAR(64) NOT NULL,
				PRIMARY KEY (position_id, stage_id, user_id)
			);

			CREATE INDEX idx_position_stage_assignments_user_id ON position_stage_assignments(user_id);
		`,
	}
}
