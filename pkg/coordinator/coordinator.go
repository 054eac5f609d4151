// Package coordinator implements the Elaboration Coordinator (spec.md
// §4.1): the top-level state machine that initializes every
// registered frontend, drives top-module selection, and — once all
// top-level elaboration has quiesced — runs the Unresolved-Instance
// Resolver and assembles the session result.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/resolver"
	"github.com/hdlforge/elabdriver/pkg/router"
)

// TopSelectionMode is one of the three top-module selection modes of
// spec.md §4.1.
type TopSelectionMode uint8

const (
	// TopModuleBased asks exactly one frontend to elaborate a named
	// top module.
	TopModuleBased TopSelectionMode = iota
	// TopFrontendBased asks exactly one designated frontend to
	// elaborate its own top module(s).
	TopFrontendBased
	// TopAutomatic asks every frontend that advertises top capability.
	TopAutomatic
)

// TopSelection carries the fields relevant to whichever Mode is
// active; the fields irrelevant to that mode are ignored.
type TopSelection struct {
	Mode       TopSelectionMode
	FrontendID string  // TopModuleBased, TopFrontendBased
	ModuleName ir.Name // TopModuleBased only
}

// Options is the elaboration-session configuration the Coordinator
// consumes: target information, the sole elaboration option defined
// by spec.md §4.1, and the top-module selection strategy.
type Options struct {
	Target               string
	ErrorOnUnknownModule bool
	TopSelection         TopSelection
}

// Coordinator owns one elaboration session's Design, Router and
// Resolver. Frontends are registered into Registry by the caller
// (typically cmd/elabdriver) using the RouteFunc and mark callback
// Coordinator exposes, since those callbacks must exist before any
// frontend adapter can be constructed (spec.md §9 "cyclic ownership
// between driver and frontend").
type Coordinator struct {
	design   *ir.Design
	registry *frontend.Registry
	router   *router.Router
	resolver *resolver.Resolver
	accum    *diag.Accumulator
	logger   logging.Logger
	opts     Options
}

// New builds a Coordinator over an empty or partially-populated
// registry. Frontends may still be registered after New returns, as
// long as registration completes before Run is called.
func New(design *ir.Design, registry *frontend.Registry, opts Options, logger logging.Logger) *Coordinator {
	accum := &diag.Accumulator{}
	rt := router.New(registry, opts.ErrorOnUnknownModule, accum, logger)
	rv := resolver.New(rt, design, accum, opts.ErrorOnUnknownModule, logger)
	return &Coordinator{
		design:   design,
		registry: registry,
		router:   rt,
		resolver: rv,
		accum:    accum,
		logger:   logger,
		opts:     opts,
	}
}

// Route implements frontend.RouteFunc, routing a frontend's recursive
// sub-elaboration request through the session's Router. Pass this to
// frontend.NewBuiltinAdapter / frontend.NewRemoteAdapter when
// constructing each frontend.
func (c *Coordinator) Route(ctx context.Context, req ir.Request) ir.Response {
	return c.router.Route(ctx, req)
}

// Mark implements the "mark for unresolved processing" callback.
func (c *Coordinator) Mark(h ir.ModuleHandle) {
	c.resolver.Enqueue(h)
}

// Resolver returns the session's Resolver, for callers (e.g. the
// pass-through frontend) that need to reuse its routing/linking
// primitive directly rather than going through the Route callback.
func (c *Coordinator) Resolver() *resolver.Resolver { return c.resolver }

// Accumulator returns the session's shared diagnostic accumulator, for
// callers that want to inspect diagnostics before Run returns (e.g. to
// log progress) or attach additional diagnostics of their own.
func (c *Coordinator) Accumulator() *diag.Accumulator { return c.accum }

// Result is what Run returns: the assembled design plus every top
// module handle selected, in selection order.
type Result struct {
	Design *ir.Design
	Tops   []ir.ModuleHandle
	Failed bool
}

// Run drives one full elaboration session: initialize, list exported
// modules, select and elaborate top modules, then resolve every
// queued module. It collects diagnostics without short-circuiting
// (spec.md §4.1 "does not short-circuit... continues issuing further
// work until no frontend is blocked") and reports failure at the end
// iff any diagnostic was recorded.
func (c *Coordinator) Run(ctx context.Context) Result {
	c.initialize(ctx)
	c.recordExported(ctx)

	tops := c.selectTop(ctx)

	c.resolver.Run(ctx)

	return Result{Design: c.design, Tops: tops, Failed: c.accum.Failed()}
}

func (c *Coordinator) initialize(ctx context.Context) {
	opts := frontend.InitOptions{Target: c.opts.Target, ErrorOnUnknownModule: c.opts.ErrorOnUnknownModule}
	for _, f := range c.registry.Ordered() {
		if err := f.Initialize(ctx, opts); err != nil {
			c.logger.Errorf("frontend %q: initialize: %v", f.ID(), err)
			c.accum.Add(diag.New(diag.ElaborationError, "initialize: %v", err).From(f.ID()))
		}
	}
}

func (c *Coordinator) recordExported(ctx context.Context) {
	for _, f := range c.registry.Ordered() {
		names, available := f.ListExported(ctx)
		c.router.RecordExported(f.ID(), names, available)
	}
}

func (c *Coordinator) selectTop(ctx context.Context) []ir.ModuleHandle {
	switch c.opts.TopSelection.Mode {
	case TopModuleBased:
		return c.selectModuleBased(ctx)
	case TopFrontendBased:
		return c.selectFrontendBased(ctx)
	default:
		return c.selectAutomatic(ctx)
	}
}

// selectModuleBased implements spec.md §4.1's "Module-based" mode:
// exactly one frontend is asked to elaborate the named top module in
// top-module mode. This bypasses the Router entirely — the frontend
// is addressed directly by configured ID, not discovered by name.
func (c *Coordinator) selectModuleBased(ctx context.Context) []ir.ModuleHandle {
	sel := c.opts.TopSelection
	f, ok := c.registry.Get(sel.FrontendID)
	if !ok {
		c.accum.Add(diag.New(diag.ElaborationError, "top-module selection: no such frontend %q", sel.FrontendID))
		return nil
	}

	req := ir.Request{Mode: ir.ModeTopModule, Name: sel.ModuleName}
	resp, err := f.ElaborateSpecified(ctx, req)
	if err != nil {
		c.accum.Add(diag.New(diag.ElaborationError, "top module %q: %v", sel.ModuleName.Text, err).From(f.ID()))
		return nil
	}
	if !c.recordTopResponse(resp, f.ID(), sel.ModuleName.Text) {
		return nil
	}

	// The frontend is required to have set the top flag itself (spec.md
	// §4.1); force it here too so a non-compliant frontend cannot
	// silently produce a topless design.
	if m := c.design.Module(resp.Module); m != nil {
		m.SetTop(true)
	}
	return []ir.ModuleHandle{resp.Module}
}

// selectFrontendBased implements spec.md §4.1's "Frontend-based" mode:
// the designated frontend receives "elaborate top modules" and every
// handle it returns becomes a top.
func (c *Coordinator) selectFrontendBased(ctx context.Context) []ir.ModuleHandle {
	sel := c.opts.TopSelection
	f, ok := c.registry.Get(sel.FrontendID)
	if !ok {
		c.accum.Add(diag.New(diag.ElaborationError, "top-module selection: no such frontend %q", sel.FrontendID))
		return nil
	}
	return c.elaborateTopOf(ctx, f)
}

// selectAutomatic implements spec.md §4.1's "Automatic" mode:
// "elaborate top modules" is sent to every frontend that advertises
// top capability, concurrently; every handle returned becomes a top.
func (c *Coordinator) selectAutomatic(ctx context.Context) []ir.ModuleHandle {
	var topCapable []frontend.Frontend
	for _, f := range c.registry.Ordered() {
		if f.TopCapable() {
			topCapable = append(topCapable, f)
		}
	}

	results := make([][]ir.ModuleHandle, len(topCapable))
	var wg sync.WaitGroup
	for i, f := range topCapable {
		i, f := i, f
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.elaborateTopOf(ctx, f)
		}()
	}
	wg.Wait()

	var all []ir.ModuleHandle
	for _, hs := range results {
		all = append(all, hs...)
	}
	return all
}

func (c *Coordinator) elaborateTopOf(ctx context.Context, f frontend.Frontend) []ir.ModuleHandle {
	handles, err := f.ElaborateTop(ctx)
	if err != nil {
		c.accum.Add(diag.New(diag.ElaborationError, "elaborate top modules: %v", err).From(f.ID()))
		return nil
	}
	for _, h := range handles {
		if m := c.design.Module(h); m != nil {
			m.SetTop(true)
		}
	}
	return handles
}

// recordTopResponse accumulates a diagnostic for any non-success
// response to a top-module request and reports whether the caller
// should continue treating resp as a success.
func (c *Coordinator) recordTopResponse(resp ir.Response, frontendID, moduleName string) bool {
	switch resp.Kind {
	case ir.RespSuccess:
		return true
	case ir.RespInvalidParameter:
		c.accum.Add(diag.New(diag.InvalidParameter, "top module %q: invalid parameter", moduleName).From(frontendID))
	case ir.RespElaborationError:
		msg := "elaboration failed"
		if resp.Err != nil {
			msg = resp.Err.Error()
		}
		c.accum.Add(diag.New(diag.ElaborationError, "top module %q: %s", moduleName, msg).From(frontendID))
	default:
		c.accum.Add(diag.New(diag.ElaborationError, "top module %q: not provided by frontend %q", moduleName, frontendID))
	}
	return false
}

// String renders the mode for diagnostics and config round-tripping.
func (m TopSelectionMode) String() string {
	switch m {
	case TopModuleBased:
		return "module"
	case TopFrontendBased:
		return "frontend"
	case TopAutomatic:
		return "automatic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}
