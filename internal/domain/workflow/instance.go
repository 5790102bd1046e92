package workflow

import (
	"reflect"
	"time"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS INSTANCE
// ══════════════════════════════════════════════════════════════════════════════

// DedupKey is the (subject, session, family) tuple enforcing the
// at-most-one-active-instance invariant.
type DedupKey struct {
	SubjectID string
	SessionID string
	Family    Family
}

// ProcessInstance is one running occurrence of a workflow for a specific
// subject. It is exclusively owned by the engine; external callers interact
// with it only through the engine's documented operations.
type ProcessInstance struct {
	// ID is an opaque unique identifier, stable for the instance's lifetime.
	ID string

	// SubjectID and SessionID scope the workflow and form the dedup key
	// together with the family.
	SubjectID string
	SessionID string

	// Family selects the stage graph the instance walks.
	Family Family

	// Stage is the current position in the stage graph.
	Stage Stage

	// Variables is the instance's variable store.
	Variables *VariableStore

	// TimeoutPolicy is the advisory duration string the timer subsystem was
	// given. The engine passes it through and never parses it.
	TimeoutPolicy string

	// TimeoutDeadline is the armed deadline for the current stage, nil when
	// no timer is armed.
	TimeoutDeadline *time.Time

	// Cancelled is terminal once set.
	Cancelled bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// history records applied completions so that at-least-once delivery of
	// completion requests can be recognized as idempotent replays.
	history []CompletionRecord
}

// CompletionRecord is one applied task completion.
type CompletionRecord struct {
	Stage    Stage
	Supplied map[VariableKey]interface{}
	At       time.Time
}

// NewInstanceParams carries everything needed to create a process instance.
type NewInstanceParams struct {
	ID            string
	SubjectID     string
	SessionID     string
	Family        Family
	TimeoutPolicy string
	Now           time.Time
}

// NewProcessInstance creates an instance at its family's initial stage.
func NewProcessInstance(params NewInstanceParams) (*ProcessInstance, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("workflow", "New", shared.ErrInvalidID, "instance ID is required")
	}
	if params.SubjectID == "" {
		return nil, shared.NewDomainError("workflow", "New", shared.ErrEmptyValue, "subject ID is required")
	}
	if params.SessionID == "" {
		return nil, shared.NewDomainError("workflow", "New", shared.ErrEmptyValue, "session ID is required")
	}
	if !params.Family.IsValid() {
		return nil, shared.ErrUnknownFamily
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &ProcessInstance{
		ID:            params.ID,
		SubjectID:     params.SubjectID,
		SessionID:     params.SessionID,
		Family:        params.Family,
		Stage:         params.Family.InitialStage(),
		Variables:     NewVariableStore(),
		TimeoutPolicy: params.TimeoutPolicy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Terminal reports whether the instance permits no further mutation.
func (p *ProcessInstance) Terminal() bool {
	return p.Cancelled || p.Stage.Terminal()
}

// DedupKey returns the instance's dedup key.
func (p *ProcessInstance) DedupKey() DedupKey {
	return DedupKey{
		SubjectID: p.SubjectID,
		SessionID: p.SessionID,
		Family:    p.Family,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PENDING TASK
// ══════════════════════════════════════════════════════════════════════════════

// PendingTask is the single unit of externally awaited work for a non-terminal
// instance. Assignee context is derived at completion time from the variable
// store, never stored here.
type PendingTask struct {
	ProcessID string
	Stage     Stage
	Expects   []VariableKey
	System    bool
}

// PendingTask returns the instance's pending task, or nil when terminal.
// A non-terminal instance has exactly one.
func (p *ProcessInstance) PendingTask() *PendingTask {
	if p.Terminal() {
		return nil
	}
	rule, ok := RuleFor(p.Stage)
	if !ok {
		return nil
	}
	expects := make([]VariableKey, len(rule.Expects))
	copy(expects, rule.Expects)
	return &PendingTask{
		ProcessID: p.ID,
		Stage:     p.Stage,
		Expects:   expects,
		System:    rule.System,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletion appends an applied completion to the history.
func (p *ProcessInstance) RecordCompletion(stage Stage, supplied map[VariableKey]interface{}, at time.Time) {
	cp := make(map[VariableKey]interface{}, len(supplied))
	for k, v := range supplied {
		cp[k] = v
	}
	p.history = append(p.history, CompletionRecord{Stage: stage, Supplied: cp, At: at})
}

// ReplayOf reports whether the supplied variables exactly match a completion
// that was already applied. Such a replay is a documented no-op.
func (p *ProcessInstance) ReplayOf(supplied map[VariableKey]interface{}) bool {
	for _, record := range p.history {
		if len(record.Supplied) != len(supplied) {
			continue
		}
		if reflect.DeepEqual(record.Supplied, supplied) {
			return true
		}
	}
	return false
}

// History returns a copy of the applied completion records.
func (p *ProcessInstance) History() []CompletionRecord {
	out := make([]CompletionRecord, len(p.history))
	copy(out, p.history)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// InstanceSnapshot is a read-only copy of an instance, used for Find, event
// payloads and archival.
type InstanceSnapshot struct {
	ID              string                 `json:"id"`
	SubjectID       string                 `json:"subject_id"`
	SessionID       string                 `json:"session_id"`
	Family          Family                 `json:"family"`
	Stage           Stage                  `json:"stage"`
	Variables       map[string]interface{} `json:"variables"`
	TimeoutPolicy   string                 `json:"timeout_policy"`
	TimeoutDeadline *time.Time             `json:"timeout_deadline,omitempty"`
	Cancelled       bool                   `json:"cancelled"`
	Terminal        bool                   `json:"terminal"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// Snapshot returns a read-only copy of the instance.
func (p *ProcessInstance) Snapshot() InstanceSnapshot {
	var deadline *time.Time
	if p.TimeoutDeadline != nil {
		d := *p.TimeoutDeadline
		deadline = &d
	}
	var completed *time.Time
	if p.CompletedAt != nil {
		c := *p.CompletedAt
		completed = &c
	}
	return InstanceSnapshot{
		ID:              p.ID,
		SubjectID:       p.SubjectID,
		SessionID:       p.SessionID,
		Family:          p.Family,
		Stage:           p.Stage,
		Variables:       p.Variables.Snapshot(),
		TimeoutPolicy:   p.TimeoutPolicy,
		TimeoutDeadline: deadline,
		Cancelled:       p.Cancelled,
		Terminal:        p.Terminal(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		CompletedAt:     completed,
	}
}
