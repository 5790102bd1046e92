package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edbridge/onboarding-engine/internal/application/engine"
	"github.com/edbridge/onboarding-engine/internal/domain/notification"
	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
	"github.com/edbridge/onboarding-engine/pkg/idgen"
)

// SubjectDirectory creates subject records from received registrations and
// answers recipient lookups for notification rendering. It implements both
// engine.SubjectRecorder and notification.Resolver, keeping single-process
// deployments free of external directory services.
type SubjectDirectory struct {
	mu      sync.RWMutex
	ids     *idgen.Generator
	logger  *slog.Logger
	entries map[directoryKey]*notification.SubjectContext
}

type directoryKey struct {
	subjectID string
	sessionID string
}

// NewSubjectDirectory creates an empty directory.
func NewSubjectDirectory(ids *idgen.Generator, logger *slog.Logger) *SubjectDirectory {
	if ids == nil {
		ids = idgen.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubjectDirectory{
		ids:     ids,
		logger:  logger,
		entries: make(map[directoryKey]*notification.SubjectContext),
	}
}

// RecordSubject implements engine.SubjectRecorder. The subject record is built
// from the registration payload; the assigned teacher comes from the
// invitation data when present.
func (d *SubjectDirectory) RecordSubject(_ context.Context, snap workflow.InstanceSnapshot) (*engine.SubjectRecord, error) {
	registration, ok := snap.Variables[string(workflow.KeyRegistration)].(map[string]interface{})
	if !ok {
		return nil, shared.NewDomainError("workflow", "RecordSubject", shared.ErrMissingVariable,
			"registration payload is required to create the subject record")
	}

	recordID := d.ids.GenerateID()
	student := notification.Recipient{
		ID:    recordID,
		Name:  stringField(registration, "guardianName", "firstName"),
		Email: stringField(registration, "guardianEmail", "email"),
		Role:  "guardian",
	}

	teacher := notification.Recipient{Role: "teacher"}
	if invitation, ok := snap.Variables[string(workflow.KeyInvitation)].(map[string]interface{}); ok {
		teacher.Name = stringField(invitation, "teacherName")
		teacher.Email = stringField(invitation, "teacherEmail")
	}
	if teacher.Email != "" {
		teacher.ID = d.ids.GenerateID()
	}

	d.mu.Lock()
	d.entries[directoryKey{subjectID: snap.SubjectID, sessionID: snap.SessionID}] = &notification.SubjectContext{
		Student:     student,
		Teacher:     teacher,
		SchoolName:  stringVariable(snap.Variables, workflow.KeySchool),
		SessionName: stringVariable(snap.Variables, workflow.KeySession),
	}
	d.mu.Unlock()

	d.logger.Info("subject record created",
		"record_id", recordID,
		"subject_id", snap.SubjectID,
		"session_id", snap.SessionID,
	)

	record := &engine.SubjectRecord{SubjectRef: recordID}
	if teacher.Email != "" || teacher.Name != "" {
		record.TeacherRef = map[string]interface{}{
			"id":    teacher.ID,
			"name":  teacher.Name,
			"email": teacher.Email,
		}
	} else {
		record.TeacherRef = map[string]interface{}{"id": "", "unassigned": true}
	}
	return record, nil
}

// ResolveSubject implements notification.Resolver.
func (d *SubjectDirectory) ResolveSubject(_ context.Context, subjectID, sessionID string) (*notification.SubjectContext, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[directoryKey{subjectID: subjectID, sessionID: sessionID}]
	if !ok {
		return nil, shared.NewDomainError("notification", "ResolveSubject", shared.ErrNotFound,
			"no directory entry for subject and session")
	}
	cp := *entry
	return &cp, nil
}

// stringField returns the first non-empty string among the named fields.
func stringField(m map[string]interface{}, names ...string) string {
	for _, name := range names {
		if s, ok := m[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringVariable(vars map[string]interface{}, key workflow.VariableKey) string {
	s, _ := vars[string(key)].(string)
	return s
}
