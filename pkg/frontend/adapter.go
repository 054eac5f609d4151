// Package frontend presents a single capability set — {initialize,
// list-exported, elaborate-top, elaborate-specified} — over the two
// frontend transports the driver supports: built-in (direct in-process
// calls with IR access) and remote (RPC over a jsonrpc2 connection).
// "Built-in" vs "remote" is never a branch at a call site; every
// consumer of Frontend sees the same interface, and the registry
// treats the two uniformly (spec.md §4.3, §9 "Trait-like polymorphism
// over frontends").
package frontend

import (
	"context"

	"github.com/hdlforge/elabdriver/pkg/ir"
)

// InitOptions carries the only two pieces of information every
// frontend receives at initialization: target information and the
// elaboration options (today, just the "error on unknown module"
// flag).
type InitOptions struct {
	Target               string
	ErrorOnUnknownModule bool
}

// RouteFunc lets a frontend recursively request sub-module elaboration
// mid-elaboration; the Coordinator supplies an implementation backed
// by the Router. Built-in frontends receive it as a plain call
// argument (never stored across a suspension point); remote frontends
// reach it indirectly, via their adapter's handling of their own
// "elaborate-specified" requests over the wire.
type RouteFunc func(ctx context.Context, req ir.Request) ir.Response

// Frontend is the uniform interface the Router and Coordinator consume
// regardless of transport.
type Frontend interface {
	// ID is this frontend's registration identity, used in diagnostics
	// and as the Source field of requests it issues.
	ID() string

	// TopCapable reports whether this frontend should be asked in
	// automatic top-module selection mode.
	TopCapable() bool

	Initialize(ctx context.Context, opts InitOptions) error

	// ListExported returns the frontend's exported module name list, or
	// available=false if the frontend cannot enumerate its modules (in
	// which case the Router always includes it as a round-one/round-two
	// candidate).
	ListExported(ctx context.Context) (names []ir.Name, available bool)

	// ElaborateTop asks the frontend to elaborate its top module(s).
	ElaborateTop(ctx context.Context) ([]ir.ModuleHandle, error)

	ElaborateSpecified(ctx context.Context, req ir.Request) (ir.Response, error)
}
