package workflow

import (
	"context"
)

// InstanceRepository is the engine-owned arena of live process instances.
// Mutations are serialized per instance; the dedup index is maintained
// atomically with the mutation that terminates an instance.
type InstanceRepository interface {
	// Create inserts a new instance, enforcing the at-most-one-active
	// invariant for its dedup key. Returns an AlreadyRunning error on conflict.
	Create(inst *ProcessInstance) error

	// Mutate runs fn against the instance under its per-instance lock.
	// Returns a NotFound error for unknown IDs. If the instance is terminal
	// after fn returns, it is removed from the active index before the lock
	// is released.
	Mutate(id string, fn func(inst *ProcessInstance) error) error

	// Snapshot returns a read-only copy of the instance.
	Snapshot(id string) (*InstanceSnapshot, error)
}

// SubjectLookup answers whether an active (non-terminal) instance exists for
// the dedup key. It must be consistent with terminal transitions: an instance
// that just terminated must immediately stop being reported as active.
type SubjectLookup interface {
	IsActive(subjectID, sessionID string, family Family) bool
}

// ArchiveRepository persists snapshots of terminated instances. Archival is
// best-effort from the engine's point of view; the stage transition is the
// durable fact.
type ArchiveRepository interface {
	Archive(ctx context.Context, snap InstanceSnapshot) error
	GetArchived(ctx context.Context, processID string) (*InstanceSnapshot, error)
}
