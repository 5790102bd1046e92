package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

func registrationSnapshot() workflow.InstanceSnapshot {
	return workflow.InstanceSnapshot{
		ID:        "proc-1",
		SubjectID: "student-1",
		SessionID: "session-1",
		Family:    workflow.FamilyRegistration,
		Stage:     workflow.StageRegistrationReceived,
		Variables: map[string]interface{}{
			"registration": map[string]interface{}{
				"firstName":     "Aru",
				"guardianName":  "Dana",
				"guardianEmail": "dana@example.com",
			},
			"invitation": map[string]interface{}{
				"teacherName":  "Ms. Rivera",
				"teacherEmail": "rivera@example.com",
			},
			"school":  "school-7",
			"session": "session-1",
		},
	}
}

func TestRecordSubject_CreatesRecordAndDirectoryEntry(t *testing.T) {
	dir := NewSubjectDirectory(nil, nil)

	record, err := dir.RecordSubject(context.Background(), registrationSnapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, record.SubjectRef)

	teacher, ok := record.TeacherRef.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "rivera@example.com", teacher["email"])

	resolved, err := dir.ResolveSubject(context.Background(), "student-1", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", resolved.Student.Email)
	assert.Equal(t, "Ms. Rivera", resolved.Teacher.Name)
	assert.Equal(t, "school-7", resolved.SchoolName)
}

func TestRecordSubject_RequiresRegistration(t *testing.T) {
	dir := NewSubjectDirectory(nil, nil)

	snap := registrationSnapshot()
	delete(snap.Variables, "registration")

	_, err := dir.RecordSubject(context.Background(), snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrMissingVariable)
}

func TestRecordSubject_UnassignedTeacher(t *testing.T) {
	dir := NewSubjectDirectory(nil, nil)

	snap := registrationSnapshot()
	delete(snap.Variables, "invitation")

	record, err := dir.RecordSubject(context.Background(), snap)
	require.NoError(t, err)

	teacher, ok := record.TeacherRef.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, teacher["unassigned"])
}

func TestResolveSubject_NotFound(t *testing.T) {
	dir := NewSubjectDirectory(nil, nil)

	_, err := dir.ResolveSubject(context.Background(), "student-9", "session-9")
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
