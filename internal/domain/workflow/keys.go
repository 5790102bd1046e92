package workflow

// VariableKey identifies a workflow variable. The set of keys is closed:
// every variable a stage can read or a caller can supply is declared here,
// so stages cannot drift apart on ad-hoc string keys.
type VariableKey string

const (
	// KeyInvitation holds the invitation payload seeded at registration start.
	KeyInvitation VariableKey = "invitation"

	// KeyInvitationTokenHash holds the bcrypt hash of the one-time invitation
	// token. The raw token is never stored.
	KeyInvitationTokenHash VariableKey = "invitationTokenHash"

	// KeySchool holds the school reference the invitation belongs to.
	KeySchool VariableKey = "school"

	// KeySession holds the school session the workflow is scoped to.
	KeySession VariableKey = "session"

	// KeyRegistration holds the registration payload supplied by the student.
	KeyRegistration VariableKey = "registration"

	// KeySubject holds the subject (student) record reference created by the
	// system task after registration is received.
	KeySubject VariableKey = "subject"

	// KeyTeacher holds the assigned teacher reference for the current session.
	KeyTeacher VariableKey = "teacher"

	// KeyTeacherInfo holds the teacher-submitted information payload.
	KeyTeacherInfo VariableKey = "teacherInfo"

	// KeyPreAssessment holds the 35 pre-assessment answers.
	KeyPreAssessment VariableKey = "preAssessment"

	// KeyPreAssessmentScore holds the computed pre-assessment composite score.
	KeyPreAssessmentScore VariableKey = "preAssessmentScore"

	// KeyPostAssessment holds the 35 post-assessment answers.
	KeyPostAssessment VariableKey = "postAssessment"

	// KeyPostAssessmentScore holds the computed post-assessment composite score.
	KeyPostAssessmentScore VariableKey = "postAssessmentScore"

	// KeyShouldCancel is a completion flag requesting the cancel transition
	// instead of the regular one.
	KeyShouldCancel VariableKey = "shouldCancel"

	// KeyCancelReason records which path cancelled the instance.
	KeyCancelReason VariableKey = "cancelReason"
)

// knownKeys is the closed set used for validating externally supplied names.
var knownKeys = map[VariableKey]struct{}{
	KeyInvitation:          {},
	KeyInvitationTokenHash: {},
	KeySchool:              {},
	KeySession:             {},
	KeyRegistration:        {},
	KeySubject:             {},
	KeyTeacher:             {},
	KeyTeacherInfo:         {},
	KeyPreAssessment:       {},
	KeyPreAssessmentScore:  {},
	KeyPostAssessment:      {},
	KeyPostAssessmentScore: {},
	KeyShouldCancel:        {},
	KeyCancelReason:        {},
}

// IsValid reports whether the key belongs to the closed variable set.
func (k VariableKey) IsValid() bool {
	_, ok := knownKeys[k]
	return ok
}

// String returns the string representation of the key.
func (k VariableKey) String() string {
	return string(k)
}

// KnownKeys returns all declared variable keys.
func KnownKeys() []VariableKey {
	keys := make([]VariableKey, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	return keys
}
