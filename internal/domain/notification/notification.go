// Package notification contains the notification model consumed by the
// workflow engine's event handlers: recipients, rendered content, the static
// renderer registry and the dispatcher contract. Actual message transport is
// an external collaborator.
package notification

import (
	"context"
	"sync"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECIPIENTS & CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// Recipient is the minimal addressable data for one notification target.
// It is resolved by the caller from external services, never by the engine.
type Recipient struct {
	ID       string
	Name     string
	Email    string
	EmailTag string
	Role     string
}

// Content is rendered message content ready for a delivery channel.
type Content struct {
	Subject string
	Body    string
}

// Inputs carries everything a renderer may use: the event's snapshot data
// plus resolved recipient context.
type Inputs struct {
	ProcessID  string
	Family     string
	Stage      string
	Recipients []Recipient
	Variables  map[string]interface{}
}

// ══════════════════════════════════════════════════════════════════════════════
// RENDERER REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Renderer produces content for one event kind.
type Renderer interface {
	Render(in Inputs) (Content, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(in Inputs) (Content, error)

// Render implements Renderer.
func (f RendererFunc) Render(in Inputs) (Content, error) {
	return f(in)
}

// Registry maps event kinds to renderers. Renderers are registered at wiring
// time and resolved by interface dispatch - there is no name-based runtime
// loading.
type Registry struct {
	mu        sync.RWMutex
	renderers map[shared.EventType]Renderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[shared.EventType]Renderer),
	}
}

// Register binds a renderer to an event kind, replacing any previous binding.
func (r *Registry) Register(kind shared.EventType, renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[kind] = renderer
}

// Resolve returns the renderer for the event kind.
func (r *Registry) Resolve(kind shared.EventType) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[kind]
	if !ok {
		return nil, shared.ErrRendererNotFound
	}
	return renderer, nil
}

// Kinds returns all registered event kinds.
func (r *Registry) Kinds() []shared.EventType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]shared.EventType, 0, len(r.renderers))
	for kind := range r.renderers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATOR CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher delivers rendered content to recipients. Dispatch failures are
// logged and swallowed at the engine boundary; they never fail a workflow
// operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind shared.EventType, recipients []Recipient, content Content) error
}

// SubjectContext is the resolved data needed for notification content.
type SubjectContext struct {
	Student     Recipient
	Teacher     Recipient
	SchoolName  string
	SessionName string
}

// Resolver maps subject and session ids to notification context. Backed by
// the surrounding system's lookup services.
type Resolver interface {
	ResolveSubject(ctx context.Context, subjectID, sessionID string) (*SubjectContext, error)
}
