package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: WORKFLOW ARCHIVE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create workflow archive table
-- Version: 001

CREATE TABLE IF NOT EXISTS workflow_archive (
    process_id UUID PRIMARY KEY,
    subject_id VARCHAR(64) NOT NULL,
    session_id VARCHAR(64) NOT NULL,
    family VARCHAR(32) NOT NULL,
    stage VARCHAR(40) NOT NULL,
    variables JSONB NOT NULL DEFAULT '{}'::jsonb,
    timeout_policy VARCHAR(64) NOT NULL DEFAULT '',
    cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,
    archived_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_family CHECK (family IN ('registration', 'post_assessment')),
    CONSTRAINT valid_stage CHECK (stage IN (
        'teacher_info_received', 'post_assessment_received', 'cancelled'
    ))
);

-- Indexes for archive lookups by subject and session
CREATE INDEX IF NOT EXISTS idx_workflow_archive_subject ON workflow_archive(subject_id);
CREATE INDEX IF NOT EXISTS idx_workflow_archive_subject_session ON workflow_archive(subject_id, session_id);
CREATE INDEX IF NOT EXISTS idx_workflow_archive_family ON workflow_archive(family);
`

// migrations lists all schema migrations in order.
var migrations = []string{
	migration001Up,
}

// Migrate applies all migrations. Statements are idempotent, so re-running is
// safe.
func (c *Connection) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migration %03d: %v", ErrMigrationFailed, i+1, err)
		}
	}
	return nil
}
