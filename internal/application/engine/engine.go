// Package engine implements the workflow engine driving student onboarding:
// it owns the stage graph interpretation, timeout scheduling, cancellation and
// event emission for every process instance. All instance mutation flows
// through the engine's operations; callers never touch instances directly.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edbridge/onboarding-engine/internal/domain/assessment"
	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATOR CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// TimerService arms and disarms deadline timers. Arm receives the advisory
// duration string untouched; parsing is the timer subsystem's business, and a
// value it cannot parse disables the timer (Arm returns nil).
type TimerService interface {
	Arm(processID string, stage workflow.Stage, advisory string) *time.Time
	Disarm(processID string)
}

// IDGenerator produces unique process identifiers.
type IDGenerator interface {
	GenerateID() string
}

// SubjectRecord is the outcome of the system task that creates the subject
// record once a registration is received.
type SubjectRecord struct {
	SubjectRef interface{}
	TeacherRef interface{}
}

// SubjectRecorder is the external collaborator executing that system task.
type SubjectRecorder interface {
	RecordSubject(ctx context.Context, snap workflow.InstanceSnapshot) (*SubjectRecord, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies carries the engine's collaborators.
type Dependencies struct {
	Store    workflow.InstanceRepository
	Lookup   workflow.SubjectLookup
	Archive  workflow.ArchiveRepository // optional
	Timers   TimerService
	Bus      shared.EventPublisher
	IDs      IDGenerator
	Subjects SubjectRecorder
}

// Config contains engine configuration.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Clock returns the current time; overridable in tests.
	Clock func() time.Time
}

// Engine drives process instances through the stage graph.
type Engine struct {
	store    workflow.InstanceRepository
	lookup   workflow.SubjectLookup
	archive  workflow.ArchiveRepository
	timers   TimerService
	bus      shared.EventPublisher
	ids      IDGenerator
	subjects SubjectRecorder
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates an Engine, validating required dependencies.
func New(deps Dependencies, config Config) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("engine: instance repository is required")
	}
	if deps.Lookup == nil {
		return nil, fmt.Errorf("engine: subject lookup is required")
	}
	if deps.Timers == nil {
		return nil, fmt.Errorf("engine: timer service is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("engine: event publisher is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("engine: id generator is required")
	}
	if deps.Subjects == nil {
		return nil, fmt.Errorf("engine: subject recorder is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		store:    deps.Store,
		lookup:   deps.Lookup,
		archive:  deps.Archive,
		timers:   deps.Timers,
		bus:      deps.Bus,
		ids:      deps.IDs,
		subjects: deps.Subjects,
		logger:   config.Logger,
		clock:    config.Clock,
	}, nil
}

// txResult accumulates the side effects of one serialized mutation. Events
// are published and the archive written only after the mutation committed.
type txResult struct {
	events  []shared.Event
	archive *workflow.InstanceSnapshot
}

// ══════════════════════════════════════════════════════════════════════════════
// START
// ══════════════════════════════════════════════════════════════════════════════

// InvitationPayload is the data seeding a registration workflow.
type InvitationPayload struct {
	// SessionRef scopes the workflow to a school session.
	SessionRef string

	// Email is the invitee's address, kept for notification rendering.
	Email string

	// Token is the one-time invitation secret. Only its bcrypt hash is stored.
	Token string

	// Data carries any extra invitation fields.
	Data map[string]interface{}
}

// StartRegistration starts a registration-family workflow for the subject.
// Fails with an AlreadyRunning error when the dedup guard reports an active
// instance for the same (subject, session) pair.
func (e *Engine) StartRegistration(ctx context.Context, subjectRef, schoolRef string, inv InvitationPayload, timeout string) (string, error) {
	if schoolRef == "" {
		return "", shared.NewDomainError("workflow", "StartRegistration", shared.ErrEmptyValue, "school reference is required")
	}

	invitation := map[string]interface{}{"email": inv.Email}
	for k, v := range inv.Data {
		invitation[k] = v
	}

	seed := map[workflow.VariableKey]interface{}{
		workflow.KeyInvitation: invitation,
		workflow.KeySchool:     schoolRef,
		workflow.KeySession:    inv.SessionRef,
	}
	if inv.Token != "" {
		hash, err := hashInvitationToken(inv.Token)
		if err != nil {
			return "", shared.WrapError("workflow", "StartRegistration", shared.ErrInvalidInput,
				"failed to hash invitation token", err)
		}
		seed[workflow.KeyInvitationTokenHash] = hash
	}

	return e.start(ctx, subjectRef, inv.SessionRef, workflow.FamilyRegistration, seed, timeout)
}

// StartPostAssessment starts a post-assessment-family workflow. The instance
// is independent of any registration workflow for the same subject.
func (e *Engine) StartPostAssessment(ctx context.Context, subjectRef, sessionRef string, timeout string) (string, error) {
	seed := map[workflow.VariableKey]interface{}{
		workflow.KeySubject: subjectRef,
		workflow.KeySession: sessionRef,
	}
	return e.start(ctx, subjectRef, sessionRef, workflow.FamilyPostAssessment, seed, timeout)
}

func (e *Engine) start(ctx context.Context, subjectRef, sessionRef string, family workflow.Family, seed map[workflow.VariableKey]interface{}, timeout string) (string, error) {
	if subjectRef == "" {
		return "", shared.NewDomainError("workflow", "Start", shared.ErrEmptyValue, "subject reference is required")
	}
	if sessionRef == "" {
		return "", shared.NewDomainError("workflow", "Start", shared.ErrEmptyValue, "session reference is required")
	}

	if e.lookup.IsActive(subjectRef, sessionRef, family) {
		return "", shared.ErrInstanceAlreadyActive
	}

	inst, err := workflow.NewProcessInstance(workflow.NewInstanceParams{
		ID:            e.ids.GenerateID(),
		SubjectID:     subjectRef,
		SessionID:     sessionRef,
		Family:        family,
		TimeoutPolicy: timeout,
		Now:           e.clock(),
	})
	if err != nil {
		return "", err
	}
	if err := inst.Variables.Merge(seed); err != nil {
		return "", err
	}
	for _, key := range mustEntryKeys(inst.Stage) {
		if _, err := inst.Variables.GetRequired(key); err != nil {
			return "", err
		}
	}

	// Create enforces the dedup invariant atomically; the IsActive check
	// above just gives callers a fast path.
	if err := e.store.Create(inst); err != nil {
		return "", err
	}

	// The instance is visible now, so the deadline is recorded under its lock.
	_ = e.store.Mutate(inst.ID, func(inst *workflow.ProcessInstance) error {
		if deadline := e.timers.Arm(inst.ID, inst.Stage, inst.TimeoutPolicy); deadline != nil {
			inst.TimeoutDeadline = deadline
		}
		return nil
	})

	e.emit(shared.NewWorkflowStartedEvent(
		inst.ID, inst.SubjectID, inst.SessionID, inst.Family.String(), inst.Stage.String()))

	e.logger.Info("workflow started",
		"process_id", inst.ID,
		"subject_id", inst.SubjectID,
		"session_id", inst.SessionID,
		"family", inst.Family.String(),
	)
	return inst.ID, nil
}

func mustEntryKeys(stage workflow.Stage) []workflow.VariableKey {
	rule, ok := workflow.RuleFor(stage)
	if !ok {
		return nil
	}
	return rule.Entry
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTask completes the instance's pending task with the supplied
// variables. Replaying an already-applied completion is a no-op, so
// at-least-once delivery of completion requests is safe.
func (e *Engine) CompleteTask(ctx context.Context, processID string, vars map[string]interface{}) error {
	supplied, err := workflow.NormalizeVariables(vars)
	if err != nil {
		return err
	}

	var result txResult
	err = e.store.Mutate(processID, func(inst *workflow.ProcessInstance) error {
		return e.completeLocked(ctx, inst, supplied, &result)
	})
	e.flush(ctx, &result)
	return err
}

func (e *Engine) completeLocked(ctx context.Context, inst *workflow.ProcessInstance, supplied map[workflow.VariableKey]interface{}, result *txResult) error {
	if inst.Terminal() {
		if inst.ReplayOf(supplied) {
			e.logger.Debug("idempotent replay against terminal instance", "process_id", inst.ID)
			return nil
		}
		return shared.ErrInstanceTerminal
	}

	rule, ok := workflow.RuleFor(inst.Stage)
	if !ok {
		return shared.ErrUnknownStage
	}

	if inst.ReplayOf(supplied) {
		// Replays resume a stuck system stage; otherwise they change nothing.
		if rule.System {
			return e.runSystemLocked(ctx, inst, result)
		}
		e.logger.Debug("idempotent replay", "process_id", inst.ID, "stage", inst.Stage.String())
		return nil
	}

	if boolVariable(supplied, workflow.KeyShouldCancel) {
		inst.RecordCompletion(inst.Stage, supplied, e.clock())
		return e.cancelLocked(inst, shared.CancelReasonExplicit, result)
	}

	if rule.System {
		// External input while the system task is pending: merge and resume.
		if err := inst.Variables.Merge(supplied); err != nil {
			return err
		}
		inst.RecordCompletion(inst.Stage, supplied, e.clock())
		return e.runSystemLocked(ctx, inst, result)
	}

	missing := make([]workflow.VariableKey, 0)
	for _, key := range rule.Expects {
		if _, ok := supplied[key]; ok {
			continue
		}
		if inst.Variables.Has(key) {
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) > 0 {
		return shared.NewDomainError("workflow", "CompleteTask", shared.ErrMissingVariable,
			fmt.Sprintf("task at stage %q is missing variables %v", inst.Stage, missing))
	}

	scores, err := e.scoreAssessments(rule, supplied)
	if err != nil {
		return err
	}

	if err := inst.Variables.Merge(supplied); err != nil {
		return err
	}
	for key, score := range scores {
		if err := inst.Variables.Put(key, score); err != nil {
			return err
		}
	}
	inst.RecordCompletion(inst.Stage, supplied, e.clock())

	return e.advanceLocked(ctx, inst, rule.Next, result)
}

// scoreAssessments computes composite scores for any assessment payload the
// completion carries. Validation happens before anything is merged.
func (e *Engine) scoreAssessments(rule workflow.StageRule, supplied map[workflow.VariableKey]interface{}) (map[workflow.VariableKey]int, error) {
	scores := make(map[workflow.VariableKey]int)
	for _, key := range rule.Expects {
		var scoreKey workflow.VariableKey
		switch key {
		case workflow.KeyPreAssessment:
			scoreKey = workflow.KeyPreAssessmentScore
		case workflow.KeyPostAssessment:
			scoreKey = workflow.KeyPostAssessmentScore
		default:
			continue
		}

		value, ok := supplied[key]
		if !ok || value == nil {
			continue
		}
		answers, err := assessment.CoerceAnswers(value)
		if err != nil {
			return nil, err
		}
		score, err := assessment.Sum(answers)
		if err != nil {
			return nil, err
		}
		scores[scoreKey] = score
	}
	return scores, nil
}

// advanceLocked moves the instance to the next stage, emitting exactly one
// StageAdvanced event per transition and managing the stage timer.
func (e *Engine) advanceLocked(ctx context.Context, inst *workflow.ProcessInstance, next workflow.Stage, result *txResult) error {
	nextRule, ok := workflow.RuleFor(next)
	if !ok {
		return shared.ErrUnknownStage
	}
	for _, key := range nextRule.Entry {
		if _, err := inst.Variables.GetRequired(key); err != nil {
			return err
		}
	}

	from := inst.Stage
	now := e.clock()

	e.timers.Disarm(inst.ID)
	inst.TimeoutDeadline = nil
	inst.Stage = next
	inst.UpdatedAt = now

	result.events = append(result.events, shared.NewStageAdvancedEvent(
		inst.ID, inst.SubjectID, inst.SessionID, inst.Family.String(),
		from.String(), next.String(), inst.Variables.Snapshot()))

	e.logger.Info("stage advanced",
		"process_id", inst.ID,
		"from", from.String(),
		"to", next.String(),
	)

	if nextRule.Terminal {
		inst.CompletedAt = &now
		result.events = append(result.events, shared.NewWorkflowCompletedEvent(
			inst.ID, inst.SubjectID, inst.SessionID, inst.Family.String(),
			next.String(), inst.Variables.Snapshot()))
		snap := inst.Snapshot()
		result.archive = &snap
		return nil
	}

	if nextRule.System {
		return e.runSystemLocked(ctx, inst, result)
	}

	if nextRule.Timed {
		if deadline := e.timers.Arm(inst.ID, next, inst.TimeoutPolicy); deadline != nil {
			inst.TimeoutDeadline = deadline
		}
	}
	return nil
}

// runSystemLocked executes the system task of the current stage and advances.
// On collaborator failure the instance stays put; replaying the completion
// that entered the stage retries the task.
func (e *Engine) runSystemLocked(ctx context.Context, inst *workflow.ProcessInstance, result *txResult) error {
	rule, ok := workflow.RuleFor(inst.Stage)
	if !ok || !rule.System {
		return shared.ErrUnknownStage
	}

	record, err := e.subjects.RecordSubject(ctx, inst.Snapshot())
	if err != nil {
		return shared.WrapError("workflow", "CompleteTask", shared.ErrExternalService,
			"subject record creation failed", err)
	}
	if err := inst.Variables.Put(workflow.KeySubject, record.SubjectRef); err != nil {
		return err
	}
	if err := inst.Variables.Put(workflow.KeyTeacher, record.TeacherRef); err != nil {
		return err
	}

	return e.advanceLocked(ctx, inst, rule.Next, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL & TIMEOUT
// ══════════════════════════════════════════════════════════════════════════════

// Cancel drives a non-terminal instance to the cancelled stage. Cancelling an
// already-terminal instance is a no-op.
func (e *Engine) Cancel(ctx context.Context, processID string) error {
	var result txResult
	err := e.store.Mutate(processID, func(inst *workflow.ProcessInstance) error {
		if inst.Terminal() {
			return nil
		}
		return e.cancelLocked(inst, shared.CancelReasonExplicit, &result)
	})
	e.flush(ctx, &result)
	return err
}

// OnTimeout is the timer callback. It cancels the instance only if it is
// still in the stage the timer was armed for; a stale timer is a silent no-op.
func (e *Engine) OnTimeout(ctx context.Context, processID string, stage workflow.Stage) {
	var result txResult
	err := e.store.Mutate(processID, func(inst *workflow.ProcessInstance) error {
		if inst.Terminal() || inst.Stage != stage {
			e.logger.Debug("stale timer ignored",
				"process_id", processID,
				"armed_stage", stage.String(),
				"current_stage", inst.Stage.String(),
			)
			return nil
		}
		return e.cancelLocked(inst, shared.CancelReasonTimeout, &result)
	})
	if err != nil && !shared.IsNotFound(err) {
		e.logger.Error("timeout handling failed", "process_id", processID, "error", err)
	}
	e.flush(ctx, &result)
}

// cancelLocked converges the explicit-cancel and timeout paths on the same
// terminal state and event.
func (e *Engine) cancelLocked(inst *workflow.ProcessInstance, reason shared.CancelReason, result *txResult) error {
	from := inst.Stage
	now := e.clock()

	e.timers.Disarm(inst.ID)
	inst.TimeoutDeadline = nil
	inst.Cancelled = true
	inst.Stage = workflow.StageCancelled
	inst.UpdatedAt = now
	inst.CompletedAt = &now
	if err := inst.Variables.Put(workflow.KeyCancelReason, string(reason)); err != nil {
		return err
	}

	result.events = append(result.events, shared.NewWorkflowCancelledEvent(
		inst.ID, inst.SubjectID, inst.SessionID, inst.Family.String(),
		from.String(), reason))
	snap := inst.Snapshot()
	result.archive = &snap

	e.logger.Info("workflow cancelled",
		"process_id", inst.ID,
		"from", from.String(),
		"reason", string(reason),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// Find returns a read-only snapshot of the instance. Terminated instances
// evicted from the live arena are served from the archive when one is wired.
func (e *Engine) Find(ctx context.Context, processID string) (*workflow.InstanceSnapshot, error) {
	snap, err := e.store.Snapshot(processID)
	if err == nil {
		return snap, nil
	}
	if shared.IsNotFound(err) && e.archive != nil {
		return e.archive.GetArchived(ctx, processID)
	}
	return nil, err
}

// ══════════════════════════════════════════════════════════════════════════════
// SIDE EFFECTS
// ══════════════════════════════════════════════════════════════════════════════

// flush publishes collected events and archives terminal snapshots. Both are
// best-effort: the committed stage transition is the durable fact, and no
// emission failure may surface as a workflow operation failure.
func (e *Engine) flush(ctx context.Context, result *txResult) {
	for _, event := range result.events {
		e.emit(event)
	}
	if result.archive != nil && e.archive != nil {
		if err := e.archive.Archive(ctx, *result.archive); err != nil {
			e.logger.Error("failed to archive instance",
				"process_id", result.archive.ID,
				"error", err,
			)
		}
	}
}

func (e *Engine) emit(event shared.Event) {
	if err := e.bus.Publish(event); err != nil {
		e.logger.Error("failed to publish event",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"error", err,
		)
	}
}

func boolVariable(vars map[workflow.VariableKey]interface{}, key workflow.VariableKey) bool {
	value, ok := vars[key]
	if !ok {
		return false
	}
	b, ok := value.(bool)
	return ok && b
}

// hashInvitationToken hashes the one-time invitation secret with bcrypt so the
// raw token never enters the variable store.
func hashInvitationToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
