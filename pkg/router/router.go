// Package router implements the Request Router (spec.md §4.2): the
// component that decides which registered frontend answers an
// "elaborate specified module" request, in two rounds.
package router

import (
	"context"
	"sync"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
)

// Router routes requests over a fixed, ordered set of frontends.
// Diagnostics the Router itself raises (duplicate-provider, and
// unknown-module when the flag is set) are recorded into accum rather
// than returned as part of the Response, since both failure modes are
// reported to the requester simply as not-provided (spec.md §7): the
// accumulator, not the response value, is what marks the session
// failed.
type Router struct {
	registry             *frontend.Registry
	errorOnUnknownModule bool
	accum                *diag.Accumulator
	logger               logging.Logger

	mu       sync.RWMutex
	exported map[string]exportedEntry
}

// exportedEntry is the cached result of one frontend's "list exported
// modules" answer, recorded once by the Coordinator at initialization
// (spec.md §4.1: "recording either the returned list or a mark of
// list-unavailable for use by the Router") rather than re-queried on
// every routed request.
type exportedEntry struct {
	names     []ir.Name
	available bool
}

// New builds a Router over registry. errorOnUnknownModule mirrors the
// session-wide option of the same name (spec.md §6); accum is the
// session's shared diagnostic accumulator.
func New(registry *frontend.Registry, errorOnUnknownModule bool, accum *diag.Accumulator, logger logging.Logger) *Router {
	return &Router{
		registry:             registry,
		errorOnUnknownModule: errorOnUnknownModule,
		accum:                accum,
		logger:               logger,
		exported:             make(map[string]exportedEntry),
	}
}

// RecordExported caches frontend id's exported-module answer. The
// Coordinator calls this once per frontend during initialization; a
// frontend with available=false is always included as a round-one and
// round-two candidate (spec.md §4.1, §4.2 step 1).
func (r *Router) RecordExported(id string, names []ir.Name, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exported[id] = exportedEntry{names: names, available: available}
}

// candidates computes the candidate set for name: every frontend whose
// cached exported list contains a matching name, plus every frontend
// whose list is marked unavailable, with target-provided frontends
// moved to the end by Registry.Ordered (spec.md §4.2 step 1). A
// frontend the Coordinator never recorded (a caller that skipped
// initialization, e.g. in a unit test) is conservatively treated as
// unavailable rather than silently excluded.
func (r *Router) candidates(name ir.Name) []frontend.Frontend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []frontend.Frontend
	for _, f := range r.registry.Ordered() {
		entry, recorded := r.exported[f.ID()]
		if !recorded || !entry.available {
			out = append(out, f)
			continue
		}
		for _, n := range entry.names {
			if n.Matches(name) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// nameAmbiguity reports whether name (typically case-insensitive)
// matches more than one distinct case-sensitive spelling across every
// frontend's cached exported list (spec.md §3, §8 "name-matching
// transitivity of ambiguity"; end-to-end scenario 2). Unlike
// candidates, this looks at the full union of declared names so that
// an ambiguity spanning two different frontends (one exporting
// "Adder", another "ADDER") is caught before routing proceeds, rather
// than surfacing later as an unrelated duplicate-provider error.
func (r *Router) nameAmbiguity(name ir.Name) (frontendIDs []string, ambiguous bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []ir.Candidate[string]
	for _, f := range r.registry.Ordered() {
		entry, recorded := r.exported[f.ID()]
		if !recorded || !entry.available {
			continue
		}
		for _, n := range entry.names {
			all = append(all, ir.Candidate[string]{Name: n, Payload: f.ID()})
		}
	}

	matches, amb := ir.FindMatches(name, all)
	if !amb {
		return nil, false
	}
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.Payload] {
			continue
		}
		seen[m.Payload] = true
		frontendIDs = append(frontendIDs, m.Payload)
	}
	return frontendIDs, true
}

// Route performs the full two-round routing procedure described in
// spec.md §4.2 for req (whether it originated from the Coordinator or
// from a frontend's own re-entrant sub-elaboration request).
func (r *Router) Route(ctx context.Context, req ir.Request) ir.Response {
	if ids, ambiguous := r.nameAmbiguity(req.Name); ambiguous {
		d := diag.New(diag.NameAmbiguity, "module name %q matches more than one case-sensitive name, provided by: %v", req.Name.Text, ids)
		r.accum.Add(d)
		return ir.NotProvidedResponse()
	}

	cands := r.candidates(req.Name)
	if len(cands) == 0 {
		return r.unknownModule(req)
	}

	if resp, ok := r.roundOne(ctx, req, cands); ok {
		return resp
	}

	return r.roundTwo(ctx, req, cands)
}

// roundOne asks every candidate concurrently with mode
// proper-module-only, and returns (response, true) only once every
// candidate has answered: exactly one non-not-provided answer is
// returned, more than one is a duplicate-provider diagnostic, and zero
// falls through to round two.
func (r *Router) roundOne(ctx context.Context, req ir.Request, cands []frontend.Frontend) (ir.Response, bool) {
	roundReq := req
	roundReq.Mode = ir.ModeProperModuleOnly

	type outcome struct {
		frontendID string
		resp       ir.Response
	}
	results := make([]outcome, len(cands))

	var wg sync.WaitGroup
	for i, f := range cands {
		i, f := i, f
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.ElaborateSpecified(ctx, roundReq)
			if err != nil {
				r.logger.Warnf("frontend %q: round one: %v", f.ID(), err)
				resp = ir.NotProvidedResponse()
			}
			results[i] = outcome{frontendID: f.ID(), resp: resp}
		}()
	}
	wg.Wait()

	var hits []outcome
	for _, o := range results {
		if o.resp.Kind != ir.RespNotProvided {
			hits = append(hits, o)
		}
	}

	switch len(hits) {
	case 0:
		return ir.Response{}, false
	case 1:
		return hits[0].resp, true
	default:
		ids := make([]string, len(hits))
		for i, o := range hits {
			ids[i] = o.frontendID
		}
		d := diag.New(diag.DuplicateProvider, "more than one frontend provided proper module %q: %v", req.Name.Text, ids)
		r.accum.Add(d)
		return ir.NotProvidedResponse(), true
	}
}

// roundTwo asks candidates with mode any-module in registration order
// (target-provided last), stopping at the first non-not-provided
// response.
func (r *Router) roundTwo(ctx context.Context, req ir.Request, cands []frontend.Frontend) ir.Response {
	roundReq := req
	roundReq.Mode = ir.ModeAnyModule

	for _, f := range cands {
		resp, err := f.ElaborateSpecified(ctx, roundReq)
		if err != nil {
			r.logger.Warnf("frontend %q: round two: %v", f.ID(), err)
			continue
		}
		if resp.Kind != ir.RespNotProvided {
			return resp
		}
	}

	return r.unknownModule(req)
}

func (r *Router) unknownModule(req ir.Request) ir.Response {
	if r.errorOnUnknownModule {
		r.accum.Add(diag.New(diag.UnknownModule, "no frontend provides module %q", req.Name.Text))
	}
	return ir.NotProvidedResponse()
}
