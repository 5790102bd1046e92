// Package memory implements the engine-owned in-memory arena of live process
// instances, including the dedup index backing SubjectLookup.
package memory

import (
	"sync"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
)

// InstanceStore holds live process instances keyed by ID plus the active
// index keyed by dedup key. Mutations are serialized per instance; the active
// index is updated inside the mutation that terminates an instance, so
// SubjectLookup never observes a terminated instance as active.
type InstanceStore struct {
	mu        sync.RWMutex
	instances map[string]*entry
	active    map[workflow.DedupKey]string
}

type entry struct {
	mu   sync.Mutex
	inst *workflow.ProcessInstance
}

// NewInstanceStore creates an empty store.
func NewInstanceStore() *InstanceStore {
	return &InstanceStore{
		instances: make(map[string]*entry),
		active:    make(map[workflow.DedupKey]string),
	}
}

// Create inserts a new instance, enforcing at-most-one-active per dedup key.
func (s *InstanceStore) Create(inst *workflow.ProcessInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inst.DedupKey()
	if _, exists := s.active[key]; exists {
		return shared.ErrInstanceAlreadyActive
	}
	if _, exists := s.instances[inst.ID]; exists {
		return shared.WrapError("workflow", "Create", shared.ErrAlreadyExists,
			"duplicate process instance ID", nil)
	}

	s.instances[inst.ID] = &entry{inst: inst}
	s.active[key] = inst.ID
	return nil
}

// Mutate runs fn against the instance under its per-instance lock. If the
// instance is terminal after fn returns, it is removed from the active index
// before the lock is released.
func (s *InstanceStore) Mutate(id string, fn func(inst *workflow.ProcessInstance) error) error {
	s.mu.RLock()
	e, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok {
		return shared.ErrInstanceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := fn(e.inst)

	if e.inst.Terminal() {
		s.deindex(e.inst)
	}
	return err
}

// deindex removes the instance from the active index if it still owns its key.
func (s *InstanceStore) deindex(inst *workflow.ProcessInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inst.DedupKey()
	if s.active[key] == inst.ID {
		delete(s.active, key)
	}
}

// Snapshot returns a read-only copy of the instance.
func (s *InstanceStore) Snapshot(id string) (*workflow.InstanceSnapshot, error) {
	s.mu.RLock()
	e, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok {
		return nil, shared.ErrInstanceNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.inst.Snapshot()
	return &snap, nil
}

// IsActive implements workflow.SubjectLookup.
func (s *InstanceStore) IsActive(subjectID, sessionID string, family workflow.Family) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.active[workflow.DedupKey{
		SubjectID: subjectID,
		SessionID: sessionID,
		Family:    family,
	}]
	return ok
}

// ActiveCount returns the number of active instances.
func (s *InstanceStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Len returns the number of live instances, terminal ones included until
// they are evicted.
func (s *InstanceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// Evict removes a terminal instance from the arena entirely. Non-terminal
// instances are never evicted.
func (s *InstanceStore) Evict(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.instances[id]
	if !ok || !e.inst.Terminal() {
		return false
	}
	delete(s.instances, id)
	return true
}
