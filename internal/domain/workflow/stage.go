package workflow

// ══════════════════════════════════════════════════════════════════════════════
// FAMILIES
// ══════════════════════════════════════════════════════════════════════════════

// Family identifies one of the two independent workflow graphs sharing the
// engine machinery. Each family has its own dedup key space and timeout policy.
type Family string

const (
	// FamilyRegistration covers invitation through teacher info received.
	FamilyRegistration Family = "registration"

	// FamilyPostAssessment covers the post-assessment request/receive pair,
	// started independently later in the session.
	FamilyPostAssessment Family = "post_assessment"
)

// IsValid reports whether the family is known.
func (f Family) IsValid() bool {
	switch f {
	case FamilyRegistration, FamilyPostAssessment:
		return true
	default:
		return false
	}
}

// String returns the string representation of the family.
func (f Family) String() string {
	return string(f)
}

// InitialStage returns the entry stage of the family's graph.
func (f Family) InitialStage() Stage {
	switch f {
	case FamilyRegistration:
		return StageInvitationSent
	case FamilyPostAssessment:
		return StagePostAssessmentRequested
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGES
// ══════════════════════════════════════════════════════════════════════════════

// Stage is a named point in the workflow state machine with a well-defined
// pending task and exit transitions.
type Stage string

const (
	// StageInvitationSent - invitation dispatched, waiting for registration.
	StageInvitationSent Stage = "invitation_sent"

	// StageRegistrationReceived - registration arrived; a system task creates
	// the subject record and advances automatically.
	StageRegistrationReceived Stage = "registration_received"

	// StageTeacherInfoRequested - waiting for teacher info plus pre-assessment.
	StageTeacherInfoRequested Stage = "teacher_info_requested"

	// StageTeacherInfoReceived - terminal stage of the registration family.
	StageTeacherInfoReceived Stage = "teacher_info_received"

	// StagePostAssessmentRequested - waiting for post-assessment answers.
	StagePostAssessmentRequested Stage = "post_assessment_requested"

	// StagePostAssessmentReceived - terminal stage of the post-assessment family.
	StagePostAssessmentReceived Stage = "post_assessment_received"

	// StageCancelled - shared terminal stage for both explicit cancellation
	// and timeout.
	StageCancelled Stage = "cancelled"
)

// IsValid reports whether the stage is part of the graph.
func (s Stage) IsValid() bool {
	_, ok := stageRules[s]
	return ok
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Terminal reports whether the stage permits no further transitions.
func (s Stage) Terminal() bool {
	rule, ok := stageRules[s]
	return ok && rule.Terminal
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE GRAPH
// ══════════════════════════════════════════════════════════════════════════════

// StageRule declares the transition behavior of one stage. The whole graph is
// this one table; the engine interprets it and holds no per-family logic.
type StageRule struct {
	// Family the stage belongs to. Empty for stages shared by both families.
	Family Family

	// Entry lists the variables that must be present before the stage can be
	// entered.
	Entry []VariableKey

	// Expects lists the variables the pending task requires for completion.
	Expects []VariableKey

	// Next is the stage entered on successful completion.
	Next Stage

	// System marks a stage whose pending task is executed by the engine itself
	// (no external completion) and advanced in the same call that entered it.
	System bool

	// Cancellable permits the cancel transition (explicit or timeout).
	Cancellable bool

	// Timed arms the family timeout timer on entry.
	Timed bool

	// Terminal marks a stage with zero pending tasks and no exits.
	Terminal bool
}

var stageRules = map[Stage]StageRule{
	StageInvitationSent: {
		Family:      FamilyRegistration,
		Entry:       []VariableKey{KeyInvitation, KeySchool},
		Expects:     []VariableKey{KeyRegistration},
		Next:        StageRegistrationReceived,
		Cancellable: true,
		Timed:       true,
	},
	StageRegistrationReceived: {
		Family: FamilyRegistration,
		Entry:  []VariableKey{KeyRegistration},
		Next:   StageTeacherInfoRequested,
		System: true,
	},
	StageTeacherInfoRequested: {
		Family:      FamilyRegistration,
		Entry:       []VariableKey{KeySubject, KeyTeacher},
		Expects:     []VariableKey{KeyTeacherInfo, KeyPreAssessment},
		Next:        StageTeacherInfoReceived,
		Cancellable: true,
		Timed:       true,
	},
	StageTeacherInfoReceived: {
		Family:   FamilyRegistration,
		Entry:    []VariableKey{KeyTeacherInfo, KeyPreAssessment},
		Terminal: true,
	},
	StagePostAssessmentRequested: {
		Family:      FamilyPostAssessment,
		Entry:       []VariableKey{KeySubject, KeySession},
		Expects:     []VariableKey{KeyPostAssessment},
		Next:        StagePostAssessmentReceived,
		Cancellable: true,
		Timed:       true,
	},
	StagePostAssessmentReceived: {
		Family:   FamilyPostAssessment,
		Entry:    []VariableKey{KeyPostAssessment},
		Terminal: true,
	},
	StageCancelled: {
		Terminal: true,
	},
}

// RuleFor returns the rule for the stage.
func RuleFor(stage Stage) (StageRule, bool) {
	rule, ok := stageRules[stage]
	return rule, ok
}
