// Package eventhandler glues the event bus to the notification pipeline:
// workflow events are resolved to recipients, rendered through the static
// registry and handed to the dispatcher. Everything here is fire-and-forget
// with respect to the workflow engine.
package eventhandler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edbridge/onboarding-engine/internal/domain/notification"
	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// dispatchTimeout bounds one notification pipeline run. Delivery retries
// happen inside the dispatcher within this window.
const dispatchTimeout = 2 * time.Minute

// NotificationHandler turns workflow events into notifications.
type NotificationHandler struct {
	registry   *notification.Registry
	resolver   notification.Resolver
	dispatcher notification.Dispatcher
	logger     *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler. The resolver is
// optional; without one, notifications are rendered without recipient context
// and dispatched to nobody.
func NewNotificationHandler(registry *notification.Registry, resolver notification.Resolver, dispatcher notification.Dispatcher, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Register subscribes the handler to every workflow event kind on the bus.
func (h *NotificationHandler) Register(bus shared.EventBus) error {
	kinds := []shared.EventType{
		shared.EventWorkflowStarted,
		shared.EventStageAdvanced,
		shared.EventWorkflowCancelled,
		shared.EventWorkflowCompleted,
	}
	for _, kind := range kinds {
		if err := bus.Subscribe(kind, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle processes one workflow event. It always returns nil: notification
// failures are logged, never propagated back through the bus into the engine.
func (h *NotificationHandler) Handle(event shared.Event) error {
	in, ok := h.inputsFor(event)
	if !ok {
		return nil
	}

	renderer, err := h.registry.Resolve(event.EventType())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Debug("no renderer for event kind", "kind", string(event.EventType()))
			return nil
		}
		h.logger.Error("renderer lookup failed", "kind", string(event.EventType()), "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	subjectID, sessionID := identityOf(event)
	in.Recipients = h.resolveRecipients(ctx, event.EventType(), in.Stage, subjectID, sessionID)

	content, err := renderer.Render(in)
	if err != nil {
		h.logger.Error("notification rendering failed",
			"kind", string(event.EventType()),
			"process_id", in.ProcessID,
			"error", err,
		)
		return nil
	}

	if err := h.dispatcher.Dispatch(ctx, event.EventType(), in.Recipients, content); err != nil {
		h.logger.Error("notification dispatch failed",
			"kind", string(event.EventType()),
			"process_id", in.ProcessID,
			"error", err,
		)
	}
	return nil
}

// inputsFor extracts renderer inputs from the concrete event types.
func (h *NotificationHandler) inputsFor(event shared.Event) (notification.Inputs, bool) {
	switch e := event.(type) {
	case *shared.WorkflowStartedEvent:
		return notification.Inputs{
			ProcessID: e.ProcessID,
			Family:    e.Family,
			Stage:     e.Stage,
		}, true
	case *shared.StageAdvancedEvent:
		return notification.Inputs{
			ProcessID: e.ProcessID,
			Family:    e.Family,
			Stage:     e.ToStage,
			Variables: e.Variables,
		}, true
	case *shared.WorkflowCancelledEvent:
		return notification.Inputs{
			ProcessID: e.ProcessID,
			Family:    e.Family,
			Stage:     e.FromStage,
		}, true
	case *shared.WorkflowCompletedEvent:
		return notification.Inputs{
			ProcessID: e.ProcessID,
			Family:    e.Family,
			Stage:     e.Stage,
			Variables: e.Variables,
		}, true
	default:
		return notification.Inputs{}, false
	}
}

func identityOf(event shared.Event) (subjectID, sessionID string) {
	switch e := event.(type) {
	case *shared.WorkflowStartedEvent:
		return e.SubjectID, e.SessionID
	case *shared.StageAdvancedEvent:
		return e.SubjectID, e.SessionID
	case *shared.WorkflowCancelledEvent:
		return e.SubjectID, e.SessionID
	case *shared.WorkflowCompletedEvent:
		return e.SubjectID, e.SessionID
	default:
		return "", ""
	}
}

// resolveRecipients maps the event to its audience. Teacher-facing stages go
// to the teacher, everything else to the student's guardian contact.
func (h *NotificationHandler) resolveRecipients(ctx context.Context, kind shared.EventType, stage, subjectID, sessionID string) []notification.Recipient {
	if h.resolver == nil || subjectID == "" {
		return nil
	}

	subjectCtx, err := h.resolver.ResolveSubject(ctx, subjectID, sessionID)
	if err != nil {
		h.logger.Warn("recipient resolution failed",
			"subject_id", subjectID,
			"session_id", sessionID,
			"error", err,
		)
		return nil
	}

	if teacherFacing(kind, stage) {
		if subjectCtx.Teacher.Email != "" {
			return []notification.Recipient{subjectCtx.Teacher}
		}
		return nil
	}
	if subjectCtx.Student.Email != "" {
		return []notification.Recipient{subjectCtx.Student}
	}
	return nil
}

func teacherFacing(kind shared.EventType, stage string) bool {
	if kind == shared.EventStageAdvanced && stage == "teacher_info_requested" {
		return true
	}
	if kind == shared.EventWorkflowStarted && stage == "post_assessment_requested" {
		return true
	}
	return false
}
