// Package shared contains common domain types, errors and events.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Workflow events
	EventWorkflowStarted   EventType = "workflow.started"
	EventStageAdvanced     EventType = "workflow.stage_advanced"
	EventWorkflowCancelled EventType = "workflow.cancelled"
	EventWorkflowCompleted EventType = "workflow.completed"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// CancelReason identifies which path drove an instance to the cancelled stage.
// Both paths converge on the same event and terminal state.
type CancelReason string

const (
	CancelReasonExplicit CancelReason = "explicit"
	CancelReasonTimeout  CancelReason = "timeout"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus combines publishing and subscription.
type EventBus interface {
	EventPublisher
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Workflow Events
// ═══════════════════════════════════════════════════════════════════════════

// WorkflowStartedEvent is emitted when a new process instance is created.
type WorkflowStartedEvent struct {
	BaseEvent
	ProcessID string `json:"process_id"`
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id"`
	Family    string `json:"family"`
	Stage     string `json:"stage"`
}

// NewWorkflowStartedEvent creates a WorkflowStartedEvent.
func NewWorkflowStartedEvent(processID, subjectID, sessionID, family, stage string) *WorkflowStartedEvent {
	return &WorkflowStartedEvent{
		BaseEvent: NewBaseEvent(EventWorkflowStarted, processID),
		ProcessID: processID,
		SubjectID: subjectID,
		SessionID: sessionID,
		Family:    family,
		Stage:     stage,
	}
}

// Payload implements Event interface.
func (e *WorkflowStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"process_id": e.ProcessID,
		"subject_id": e.SubjectID,
		"session_id": e.SessionID,
		"family":     e.Family,
		"stage":      e.Stage,
	}
}

// StageAdvancedEvent is emitted exactly once per stage transition.
// It carries a variable snapshot so notification rendering needs no
// read-back into the engine.
type StageAdvancedEvent struct {
	BaseEvent
	ProcessID string                 `json:"process_id"`
	SubjectID string                 `json:"subject_id"`
	SessionID string                 `json:"session_id"`
	Family    string                 `json:"family"`
	FromStage string                 `json:"from_stage"`
	ToStage   string                 `json:"to_stage"`
	Variables map[string]interface{} `json:"variables"`
}

// NewStageAdvancedEvent creates a StageAdvancedEvent.
func NewStageAdvancedEvent(processID, subjectID, sessionID, family, from, to string, variables map[string]interface{}) *StageAdvancedEvent {
	return &StageAdvancedEvent{
		BaseEvent: NewBaseEvent(EventStageAdvanced, processID),
		ProcessID: processID,
		SubjectID: subjectID,
		SessionID: sessionID,
		Family:    family,
		FromStage: from,
		ToStage:   to,
		Variables: variables,
	}
}

// Payload implements Event interface.
func (e *StageAdvancedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"process_id": e.ProcessID,
		"subject_id": e.SubjectID,
		"session_id": e.SessionID,
		"family":     e.Family,
		"from_stage": e.FromStage,
		"to_stage":   e.ToStage,
		"variables":  e.Variables,
	}
}

// WorkflowCancelledEvent is emitted when an instance reaches the cancelled
// stage, whether by explicit request or by timeout.
type WorkflowCancelledEvent struct {
	BaseEvent
	ProcessID string       `json:"process_id"`
	SubjectID string       `json:"subject_id"`
	SessionID string       `json:"session_id"`
	Family    string       `json:"family"`
	FromStage string       `json:"from_stage"`
	Reason    CancelReason `json:"reason"`
}

// NewWorkflowCancelledEvent creates a WorkflowCancelledEvent.
func NewWorkflowCancelledEvent(processID, subjectID, sessionID, family, from string, reason CancelReason) *WorkflowCancelledEvent {
	return &WorkflowCancelledEvent{
		BaseEvent: NewBaseEvent(EventWorkflowCancelled, processID),
		ProcessID: processID,
		SubjectID: subjectID,
		SessionID: sessionID,
		Family:    family,
		FromStage: from,
		Reason:    reason,
	}
}

// Payload implements Event interface.
func (e *WorkflowCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"process_id": e.ProcessID,
		"subject_id": e.SubjectID,
		"session_id": e.SessionID,
		"family":     e.Family,
		"from_stage": e.FromStage,
		"reason":     string(e.Reason),
	}
}

// WorkflowCompletedEvent is emitted when an instance reaches a successful
// terminal stage.
type WorkflowCompletedEvent struct {
	BaseEvent
	ProcessID string                 `json:"process_id"`
	SubjectID string                 `json:"subject_id"`
	SessionID string                 `json:"session_id"`
	Family    string                 `json:"family"`
	Stage     string                 `json:"stage"`
	Variables map[string]interface{} `json:"variables"`
}

// NewWorkflowCompletedEvent creates a WorkflowCompletedEvent.
func NewWorkflowCompletedEvent(processID, subjectID, sessionID, family, stage string, variables map[string]interface{}) *WorkflowCompletedEvent {
	return &WorkflowCompletedEvent{
		BaseEvent: NewBaseEvent(EventWorkflowCompleted, processID),
		ProcessID: processID,
		SubjectID: subjectID,
		SessionID: sessionID,
		Family:    family,
		Stage:     stage,
		Variables: variables,
	}
}

// Payload implements Event interface.
func (e *WorkflowCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"process_id": e.ProcessID,
		"subject_id": e.SubjectID,
		"session_id": e.SessionID,
		"family":     e.Family,
		"stage":      e.Stage,
		"variables":  e.Variables,
	}
}

// NotificationSentEvent is emitted after a notification is handed to a channel.
type NotificationSentEvent struct {
	BaseEvent
	ProcessID string    `json:"process_id"`
	Kind      EventType `json:"kind"`
	Recipient string    `json:"recipient"`
}

// NewNotificationSentEvent creates a NotificationSentEvent.
func NewNotificationSentEvent(processID string, kind EventType, recipient string) *NotificationSentEvent {
	return &NotificationSentEvent{
		BaseEvent: NewBaseEvent(EventNotificationSent, processID),
		ProcessID: processID,
		Kind:      kind,
		Recipient: recipient,
	}
}

// Payload implements Event interface.
func (e *NotificationSentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"process_id": e.ProcessID,
		"kind":       string(e.Kind),
		"recipient":  e.Recipient,
	}
}
