package frontend

import (
	"context"

	"github.com/hdlforge/elabdriver/pkg/ir"
)

// BuiltinAccess is the borrowed view of the driver a built-in frontend
// receives for the duration of exactly one call. Per spec.md §9
// ("Cyclic ownership between driver and frontend"), a frontend must
// not retain this across a suspension point — every BuiltinAdapter
// method builds a fresh one and hands it to the frontend only for that
// call's lifetime.
type BuiltinAccess struct {
	Design *ir.Design
	Route  RouteFunc
	// MarkForUnresolvedProcessing queues a module handle for the
	// Resolver to sweep after all top-level elaboration completes.
	MarkForUnresolvedProcessing func(ir.ModuleHandle)
}

// BuiltinFrontend is implemented by frontends invoked directly
// in-process, with read/write access to the driver's IR (spec.md
// §4.3). The Pass-through frontend (pkg/passthrough) and any HDL
// frontend linked into the same binary as the driver implement this.
type BuiltinFrontend interface {
	ID() string
	TopCapable() bool

	Initialize(ctx context.Context, access BuiltinAccess, opts InitOptions) error
	ListExported(ctx context.Context, access BuiltinAccess) (names []ir.Name, available bool)
	ElaborateTop(ctx context.Context, access BuiltinAccess) ([]ir.ModuleHandle, error)
	ElaborateSpecified(ctx context.Context, access BuiltinAccess, req ir.Request) (ir.Response, error)
}

// BuiltinAdapter implements Frontend over a BuiltinFrontend, supplying
// the Design/Route/queue access for each call without letting the
// frontend retain it.
type BuiltinAdapter struct {
	impl   BuiltinFrontend
	design *ir.Design
	route  RouteFunc
	mark   func(ir.ModuleHandle)
}

// NewBuiltinAdapter wraps impl for registration with a Registry.
func NewBuiltinAdapter(impl BuiltinFrontend, design *ir.Design, route RouteFunc, mark func(ir.ModuleHandle)) *BuiltinAdapter {
	return &BuiltinAdapter{impl: impl, design: design, route: route, mark: mark}
}

func (a *BuiltinAdapter) access() BuiltinAccess {
	return BuiltinAccess{Design: a.design, Route: a.route, MarkForUnresolvedProcessing: a.mark}
}

func (a *BuiltinAdapter) ID() string       { return a.impl.ID() }
func (a *BuiltinAdapter) TopCapable() bool { return a.impl.TopCapable() }

func (a *BuiltinAdapter) Initialize(ctx context.Context, opts InitOptions) error {
	return a.impl.Initialize(ctx, a.access(), opts)
}

func (a *BuiltinAdapter) ListExported(ctx context.Context) ([]ir.Name, bool) {
	return a.impl.ListExported(ctx, a.access())
}

func (a *BuiltinAdapter) ElaborateTop(ctx context.Context) ([]ir.ModuleHandle, error) {
	return a.impl.ElaborateTop(ctx, a.access())
}

func (a *BuiltinAdapter) ElaborateSpecified(ctx context.Context, req ir.Request) (ir.Response, error) {
	return a.impl.ElaborateSpecified(ctx, a.access(), req)
}
