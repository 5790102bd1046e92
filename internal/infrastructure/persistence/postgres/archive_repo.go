package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

// ArchiveRepository implements workflow.ArchiveRepository for PostgreSQL.
// Terminated instances are archived here; the live arena never holds them
// past termination.
type ArchiveRepository struct {
	conn *Connection
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(conn *Connection) *ArchiveRepository {
	return &ArchiveRepository{conn: conn}
}

// Archive stores a snapshot of a terminated instance. Re-archiving the same
// process is an upsert, so retries are safe.
func (r *ArchiveRepository) Archive(ctx context.Context, snap workflow.InstanceSnapshot) error {
	if !snap.Terminal {
		return shared.NewDomainError("workflow", "Archive", shared.ErrInvalidState,
			"only terminal instances can be archived")
	}

	query := `
		INSERT INTO workflow_archive (
			process_id, subject_id, session_id, family, stage, variables,
			timeout_policy, cancelled, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (process_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			variables = EXCLUDED.variables,
			cancelled = EXCLUDED.cancelled,
			completed_at = EXCLUDED.completed_at
	`

	varsJSON, err := json.Marshal(snap.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		snap.ID,
		snap.SubjectID,
		snap.SessionID,
		string(snap.Family),
		string(snap.Stage),
		varsJSON,
		snap.TimeoutPolicy,
		snap.Cancelled,
		snap.CreatedAt,
		snap.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive instance %s: %w", snap.ID, err)
	}
	return nil
}

// GetArchived returns the archived snapshot for a process ID.
func (r *ArchiveRepository) GetArchived(ctx context.Context, processID string) (*workflow.InstanceSnapshot, error) {
	query := `
		SELECT process_id, subject_id, session_id, family, stage, variables,
			   timeout_policy, cancelled, created_at, completed_at
		FROM workflow_archive
		WHERE process_id = $1
	`

	var (
		snap     workflow.InstanceSnapshot
		family   string
		stage    string
		varsJSON []byte
	)
	err := r.conn.QueryRow(ctx, query, processID).Scan(
		&snap.ID,
		&snap.SubjectID,
		&snap.SessionID,
		&family,
		&stage,
		&varsJSON,
		&snap.TimeoutPolicy,
		&snap.Cancelled,
		&snap.CreatedAt,
		&snap.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, shared.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to load archived instance %s: %w", processID, err)
	}

	snap.Family = workflow.Family(family)
	snap.Stage = workflow.Stage(stage)
	snap.Terminal = true
	if err := json.Unmarshal(varsJSON, &snap.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}
	return &snap, nil
}

// ListArchivedBySubject returns archived snapshots for a subject, newest first.
func (r *ArchiveRepository) ListArchivedBySubject(ctx context.Context, subjectID string, limit int) ([]workflow.InstanceSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT process_id, subject_id, session_id, family, stage, variables,
			   timeout_policy, cancelled, created_at, completed_at
		FROM workflow_archive
		WHERE subject_id = $1
		ORDER BY archived_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive for subject %s: %w", subjectID, err)
	}
	defer rows.Close()

	var out []workflow.InstanceSnapshot
	for rows.Next() {
		var (
			snap     workflow.InstanceSnapshot
			family   string
			stage    string
			varsJSON []byte
		)
		if err := rows.Scan(
			&snap.ID,
			&snap.SubjectID,
			&snap.SessionID,
			&family,
			&stage,
			&varsJSON,
			&snap.TimeoutPolicy,
			&snap.Cancelled,
			&snap.CreatedAt,
			&snap.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		snap.Family = workflow.Family(family)
		snap.Stage = workflow.Stage(stage)
		snap.Terminal = true
		if err := json.Unmarshal(varsJSON, &snap.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
