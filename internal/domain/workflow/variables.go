// Package workflow contains the domain model of the student-onboarding
// workflow engine: variables, stages, process instances and their contracts.
// This is the core of the business logic - there are no external dependencies here.
package workflow

import (
	"fmt"
	"sync"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// VariableStore is the keyed map of workflow variables attached to a process
// instance. Completion merges into it, never replaces it wholesale, and a nil
// value never overwrites an existing one (optional-variable semantics).
// The store knows nothing about stages.
type VariableStore struct {
	mu     sync.RWMutex
	values map[VariableKey]interface{}
}

// NewVariableStore creates an empty variable store.
func NewVariableStore() *VariableStore {
	return &VariableStore{
		values: make(map[VariableKey]interface{}),
	}
}

// Put stores or overwrites a value. A nil value leaves any existing key
// untouched, so callers can pass through optional variables without guarding.
func (vs *VariableStore) Put(key VariableKey, value interface{}) error {
	if !key.IsValid() {
		return shared.WrapError("workflow", "Put", shared.ErrInvalidInput,
			fmt.Sprintf("unknown variable key %q", key), nil)
	}
	if value == nil {
		return nil
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.values[key] = value
	return nil
}

// Merge applies Put for every entry of the given map.
func (vs *VariableStore) Merge(vars map[VariableKey]interface{}) error {
	for key, value := range vars {
		if err := vs.Put(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value for the key and whether it is present.
func (vs *VariableStore) Get(key VariableKey) (interface{}, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	value, ok := vs.values[key]
	return value, ok
}

// GetRequired returns the value for the key or a MissingVariable error.
func (vs *VariableStore) GetRequired(key VariableKey) (interface{}, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	value, ok := vs.values[key]
	if !ok {
		return nil, shared.NewDomainError("workflow", "GetRequired", shared.ErrMissingVariable,
			fmt.Sprintf("variable %q is required but absent", key))
	}
	return value, nil
}

// GetString returns the value for the key as a string, or "" if absent or of
// another type.
func (vs *VariableStore) GetString(key VariableKey) string {
	value, ok := vs.Get(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// Has reports whether the key is present.
func (vs *VariableStore) Has(key VariableKey) bool {
	_, ok := vs.Get(key)
	return ok
}

// Len returns the number of stored variables.
func (vs *VariableStore) Len() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.values)
}

// Snapshot returns an immutable copy of the variables keyed by plain strings,
// safe for external read during event emission. Map and slice values are
// copied one level deep.
func (vs *VariableStore) Snapshot() map[string]interface{} {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	snap := make(map[string]interface{}, len(vs.values))
	for key, value := range vs.values {
		snap[string(key)] = copyValue(value)
	}
	return snap
}

// copyValue copies maps and slices so snapshot readers cannot mutate the store.
func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(v))
		for k, e := range v {
			cp[k] = copyValue(e)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(v))
		for i, e := range v {
			cp[i] = copyValue(e)
		}
		return cp
	case []int:
		cp := make([]int, len(v))
		copy(cp, v)
		return cp
	default:
		return v
	}
}

// NormalizeVariables converts an externally supplied string-keyed map into
// typed variable keys, rejecting names outside the closed set.
func NormalizeVariables(vars map[string]interface{}) (map[VariableKey]interface{}, error) {
	normalized := make(map[VariableKey]interface{}, len(vars))
	for name, value := range vars {
		key := VariableKey(name)
		if !key.IsValid() {
			return nil, shared.WrapError("workflow", "Normalize", shared.ErrInvalidInput,
				fmt.Sprintf("unknown variable key %q", name), nil)
		}
		normalized[key] = value
	}
	return normalized, nil
}
