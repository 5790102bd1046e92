package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

func TestVariableStore_PutAndGet(t *testing.T) {
	vs := NewVariableStore()

	require.NoError(t, vs.Put(KeySchool, "school-7"))

	value, ok := vs.Get(KeySchool)
	require.True(t, ok)
	assert.Equal(t, "school-7", value)
	assert.Equal(t, 1, vs.Len())
}

func TestVariableStore_NilValueDoesNotOverwrite(t *testing.T) {
	vs := NewVariableStore()
	require.NoError(t, vs.Put(KeySchool, "school-7"))

	require.NoError(t, vs.Put(KeySchool, nil))

	value, ok := vs.Get(KeySchool)
	require.True(t, ok)
	assert.Equal(t, "school-7", value)
}

func TestVariableStore_NilValueDoesNotCreateKey(t *testing.T) {
	vs := NewVariableStore()

	require.NoError(t, vs.Put(KeyTeacherInfo, nil))

	assert.False(t, vs.Has(KeyTeacherInfo))
	assert.Equal(t, 0, vs.Len())
}

func TestVariableStore_UnknownKeyRejected(t *testing.T) {
	vs := NewVariableStore()

	err := vs.Put(VariableKey("favoriteColor"), "blue")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestVariableStore_MergePreservesUnrelatedKeys(t *testing.T) {
	vs := NewVariableStore()
	require.NoError(t, vs.Put(KeySchool, "school-7"))

	require.NoError(t, vs.Merge(map[VariableKey]interface{}{
		KeySession: "session-1",
		KeyTeacher: "teacher-9",
	}))

	assert.Equal(t, "school-7", vs.GetString(KeySchool))
	assert.Equal(t, "session-1", vs.GetString(KeySession))
	assert.Equal(t, "teacher-9", vs.GetString(KeyTeacher))
	assert.Equal(t, 3, vs.Len())
}

func TestVariableStore_GetRequired(t *testing.T) {
	vs := NewVariableStore()

	_, err := vs.GetRequired(KeyRegistration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrMissingVariable))

	require.NoError(t, vs.Put(KeyRegistration, map[string]interface{}{"firstName": "Aru"}))
	value, err := vs.GetRequired(KeyRegistration)
	require.NoError(t, err)
	assert.NotNil(t, value)
}

func TestVariableStore_SnapshotIsIsolated(t *testing.T) {
	vs := NewVariableStore()
	require.NoError(t, vs.Put(KeyRegistration, map[string]interface{}{"firstName": "Aru"}))

	snap := vs.Snapshot()
	reg := snap["registration"].(map[string]interface{})
	reg["firstName"] = "mutated"

	original, _ := vs.Get(KeyRegistration)
	assert.Equal(t, "Aru", original.(map[string]interface{})["firstName"])
}

func TestVariableStore_SnapshotCopiesSlices(t *testing.T) {
	vs := NewVariableStore()
	require.NoError(t, vs.Put(KeyPreAssessment, []int{1, 2, 3}))

	snap := vs.Snapshot()
	snap["preAssessment"].([]int)[0] = 99

	original, _ := vs.Get(KeyPreAssessment)
	assert.Equal(t, 1, original.([]int)[0])
}

func TestNormalizeVariables(t *testing.T) {
	normalized, err := NormalizeVariables(map[string]interface{}{
		"registration": map[string]interface{}{"firstName": "Aru"},
		"shouldCancel": false,
	})
	require.NoError(t, err)
	assert.Contains(t, normalized, KeyRegistration)
	assert.Contains(t, normalized, KeyShouldCancel)
}

func TestNormalizeVariables_UnknownKeyRejected(t *testing.T) {
	_, err := NormalizeVariables(map[string]interface{}{"petName": "Barsik"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestKnownKeys_AllValid(t *testing.T) {
	for _, key := range KnownKeys() {
		assert.True(t, key.IsValid(), "key %q", key)
	}
}
