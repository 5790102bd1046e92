package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

// Query behavior needs a live database; these tests cover the repository's
// own validation logic.

func TestArchive_RejectsNonTerminalSnapshot(t *testing.T) {
	repo := NewArchiveRepository(nil)

	err := repo.Archive(context.Background(), workflow.InstanceSnapshot{
		ID:        "proc-1",
		SubjectID: "student-1",
		SessionID: "session-1",
		Family:    workflow.FamilyRegistration,
		Stage:     workflow.StageInvitationSent,
		Terminal:  false,
		CreatedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.Error(t, err)
}
