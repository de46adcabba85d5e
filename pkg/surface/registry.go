package surface

import (
	"sync"

	"github.com/entrhq/webext/pkg/extension"
)

// Registered is a script queued for injection.
type Registered struct {
	Source        string
	Timing        extension.InjectionTiming
	MainFrameOnly bool
}

// Registry holds the scripts a surface injects into the next documents.
// Snapshots are immutable, so a document being rewritten never sees a
// half-cleared set.
type Registry struct {
	mu      sync.RWMutex
	scripts []Registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a script.
func (r *Registry) Register(source string, timing extension.InjectionTiming, mainFrameOnly bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Registered, len(r.scripts), len(r.scripts)+1)
	copy(next, r.scripts)
	r.scripts = append(next, Registered{Source: source, Timing: timing, MainFrameOnly: mainFrameOnly})
}

// Clear drops every script.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = nil
}

// Snapshot returns the current scripts. Callers must not modify it.
func (r *Registry) Snapshot() []Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scripts
}

// Len returns the number of registered scripts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}
