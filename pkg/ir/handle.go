package ir

// ModuleHandle is an opaque, stable identifier for a module within one
// Design's arena. It is valid for the life of the elaboration session
// and is never reused, even if the module it names is never
// referenced again.
type ModuleHandle int

// Valid reports whether h could have been allocated by a Design (it
// does not check that the module still exists in a particular design;
// handles are never freed, so that is always true for a handle a
// Design itself produced).
func (h ModuleHandle) Valid() bool { return h >= 0 }
