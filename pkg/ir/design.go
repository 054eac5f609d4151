package ir

import (
	"sync"

	"go.uber.org/atomic"
)

// Design is the single shared mutable IR arena for one elaboration
// session. Module handles allocated from it are stable for the life of
// the session and are never reused (§5 "Shared resources").
type Design struct {
	mu      sync.RWMutex
	next    atomic.Int64
	modules []*Module
}

// NewDesign creates an empty design.
func NewDesign() *Design {
	return &Design{}
}

// Insert allocates a handle for m, freezes its shape (ports, baked-in
// parameters), and stores it in the arena. It is the only way a module
// becomes visible to other components.
func (d *Design) Insert(m *Module) ModuleHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := ModuleHandle(d.next.Inc() - 1)
	m.freeze(h)
	d.modules = append(d.modules, m)
	return h
}

// Module returns the module for a handle. Handles are never invalid
// once returned by Insert, so callers need not check for a missing
// entry in practice; a nil return indicates a caller bug (a handle
// from a different Design).
func (d *Design) Module(h ModuleHandle) *Module {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(d.modules) {
		return nil
	}
	return d.modules[int(h)]
}

// Modules returns every module in insertion order.
func (d *Design) Modules() []*Module {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Module, len(d.modules))
	copy(out, d.modules)
	return out
}

// TopModules returns every module whose top flag is set.
func (d *Design) TopModules() []*Module {
	var out []*Module
	for _, m := range d.Modules() {
		if m.Top() {
			out = append(out, m)
		}
	}
	return out
}
