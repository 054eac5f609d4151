package frontend

import (
	"fmt"
	"sync"
)

// Registry holds every registered Frontend and its registration order.
//
// Adapted from the teacher's pkg/plugin.Registry (Register/Get/All plus
// a preserved order slice): the topological dependency-sort that file
// needs for plugin execution order (SortByDependencies) is dropped,
// because frontends have no inter-frontend dependency relation in this
// spec — routing order is the fixed registration order with
// target-provided frontends forced last (spec.md §4.2 tie-breaking
// note), not a computed one.
type Registry struct {
	mu             sync.Mutex
	byID           map[string]Frontend
	order          []string
	targetProvided map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:           make(map[string]Frontend),
		targetProvided: make(map[string]bool),
	}
}

// Register adds a frontend. targetProvided marks it as supplied by the
// selected target (device family), which always sorts last in
// Ordered() regardless of registration position.
func (r *Registry) Register(f Frontend, targetProvided bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := f.ID()
	if id == "" {
		return fmt.Errorf("frontend ID cannot be empty")
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("frontend %q already registered", id)
	}

	r.byID[id] = f
	r.order = append(r.order, id)
	r.targetProvided[id] = targetProvided
	return nil
}

// Get retrieves a frontend by ID.
func (r *Registry) Get(id string) (Frontend, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	return f, ok
}

// Ordered returns every registered frontend in registration order,
// with target-provided frontends moved — stably — to the end. This is
// the deterministic candidate order the Router relies on (spec.md §4.2,
// §5 "registration order is the tie-breaker").
func (r *Registry) Ordered() []Frontend {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Frontend, 0, len(r.order))
	var targetLast []Frontend
	for _, id := range r.order {
		f := r.byID[id]
		if r.targetProvided[id] {
			targetLast = append(targetLast, f)
			continue
		}
		out = append(out, f)
	}
	return append(out, targetLast...)
}

// IDs returns every registered frontend ID in registration order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
