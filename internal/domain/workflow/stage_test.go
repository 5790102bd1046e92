package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamily_InitialStage(t *testing.T) {
	assert.Equal(t, StageInvitationSent, FamilyRegistration.InitialStage())
	assert.Equal(t, StagePostAssessmentRequested, FamilyPostAssessment.InitialStage())
}

func TestFamily_IsValid(t *testing.T) {
	assert.True(t, FamilyRegistration.IsValid())
	assert.True(t, FamilyPostAssessment.IsValid())
	assert.False(t, Family("graduation").IsValid())
	assert.False(t, Family("").IsValid())
}

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageTeacherInfoReceived.Terminal())
	assert.True(t, StagePostAssessmentReceived.Terminal())
	assert.True(t, StageCancelled.Terminal())

	assert.False(t, StageInvitationSent.Terminal())
	assert.False(t, StageRegistrationReceived.Terminal())
	assert.False(t, StageTeacherInfoRequested.Terminal())
	assert.False(t, StagePostAssessmentRequested.Terminal())
}

func TestStageGraph_RegistrationPath(t *testing.T) {
	rule, ok := RuleFor(StageInvitationSent)
	require.True(t, ok)
	assert.Equal(t, StageRegistrationReceived, rule.Next)
	assert.Equal(t, []VariableKey{KeyRegistration}, rule.Expects)
	assert.True(t, rule.Cancellable)
	assert.True(t, rule.Timed)

	rule, ok = RuleFor(StageRegistrationReceived)
	require.True(t, ok)
	assert.True(t, rule.System)
	assert.Equal(t, StageTeacherInfoRequested, rule.Next)

	rule, ok = RuleFor(StageTeacherInfoRequested)
	require.True(t, ok)
	assert.Equal(t, StageTeacherInfoReceived, rule.Next)
	assert.ElementsMatch(t, []VariableKey{KeyTeacherInfo, KeyPreAssessment}, rule.Expects)
}

func TestStageGraph_PostAssessmentPath(t *testing.T) {
	rule, ok := RuleFor(StagePostAssessmentRequested)
	require.True(t, ok)
	assert.Equal(t, StagePostAssessmentReceived, rule.Next)
	assert.Equal(t, []VariableKey{KeyPostAssessment}, rule.Expects)
	assert.True(t, rule.Cancellable)
	assert.True(t, rule.Timed)
}

func TestStageGraph_TerminalStagesHaveNoExit(t *testing.T) {
	for _, stage := range []Stage{StageTeacherInfoReceived, StagePostAssessmentReceived, StageCancelled} {
		rule, ok := RuleFor(stage)
		require.True(t, ok)
		assert.True(t, rule.Terminal)
		assert.Empty(t, rule.Next)
		assert.Empty(t, rule.Expects)
	}
}

func TestStageGraph_EveryNextStageExists(t *testing.T) {
	for stage, rule := range stageRules {
		if rule.Terminal {
			continue
		}
		_, ok := RuleFor(rule.Next)
		assert.True(t, ok, "stage %q points to unknown next stage %q", stage, rule.Next)
	}
}

func TestRuleFor_UnknownStage(t *testing.T) {
	_, ok := RuleFor(Stage("graduated"))
	assert.False(t, ok)
}
