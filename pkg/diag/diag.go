// Package diag implements the error taxonomy of the elaboration driver
// (spec §7) and the session-wide accumulator that collects diagnostics
// without short-circuiting the run that produced them.
//
// The Diagnostic shape is adapted from the teacher's
// pkg/errors.EnhancedError: a structured message plus enough location
// context to point a reader at the cell and frontend responsible. It
// drops that file's source-snippet extraction, since the core has no
// source text to excerpt — the text-format parser/printer is out of
// scope (spec.md §1).
package diag

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Kind is one of the error kinds enumerated in spec §7.
type Kind string

const (
	NameAmbiguity     Kind = "name-ambiguity"
	DuplicateProvider Kind = "duplicate-provider"
	InvalidParameter  Kind = "invalid-parameter"
	PortMismatch      Kind = "port-mismatch"
	UnknownModule     Kind = "unknown-module"
	ElaborationError  Kind = "elaboration-error"
)

// Diagnostic is one accumulated error, identifying the requesting cell
// and/or responding frontend where that is known.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Module   string // name of the module the offending cell lives in, if any
	Cell     string // best-effort identifier of the offending cell, if any
	Frontend string // responding or requesting frontend ID, if any
}

func (d *Diagnostic) Error() string {
	loc := ""
	switch {
	case d.Module != "" && d.Cell != "":
		loc = fmt.Sprintf(" [%s/%s]", d.Module, d.Cell)
	case d.Module != "":
		loc = fmt.Sprintf(" [%s]", d.Module)
	}
	if d.Frontend != "" {
		loc += fmt.Sprintf(" (frontend %s)", d.Frontend)
	}
	return fmt.Sprintf("%s: %s%s", d.Kind, d.Message, loc)
}

func New(kind Kind, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) At(module, cell string) *Diagnostic {
	d.Module = module
	d.Cell = cell
	return d
}

func (d *Diagnostic) From(frontend string) *Diagnostic {
	d.Frontend = frontend
	return d
}

// Accumulator collects every diagnostic raised during a session. The
// session result is success iff it is empty when elaboration
// completes (spec §7). The Router and Coordinator both fan requests
// out across concurrent frontend calls (round one of routing, and
// automatic top-module selection) that may each raise a diagnostic, so
// Add/Failed/Errors/Err all take the lock rather than assuming a
// single writer.
type Accumulator struct {
	mu  sync.Mutex
	err error
}

// Add appends a diagnostic. A nil err is a no-op, so call sites can
// pass the result of a function that may or may not have failed
// without an extra branch. Safe to call concurrently.
func (a *Accumulator) Add(err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = multierr.Append(a.err, err)
}

// Failed reports whether any diagnostic has been recorded.
func (a *Accumulator) Failed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err != nil
}

// Errors returns every recorded diagnostic, in the order they were
// added.
func (a *Accumulator) Errors() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return multierr.Errors(a.err)
}

// Err returns the combined error, or nil if the session succeeded.
func (a *Accumulator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
