// Package resolver implements the Unresolved-Instance Resolver
// (spec.md §4.4): the component that walks every queued module's
// unresolved-instance cells, routes each to a producing frontend, and
// rewrites the cell in place once parameters and ports are linked.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/router"
)

// Resolver processes the worklist of modules queued for
// unresolved-instance processing. Frontends reach it only indirectly,
// through the mark-for-unresolved-processing callback the Coordinator
// hands them (BuiltinAccess.MarkForUnresolvedProcessing, or the
// equivalent remote RPC) — Enqueue is that callback's implementation.
type Resolver struct {
	router               *router.Router
	design               *ir.Design
	accum                *diag.Accumulator
	errorOnUnknownModule bool
	logger               logging.Logger

	mu     sync.Mutex
	queued map[ir.ModuleHandle]bool
	queue  []ir.ModuleHandle
}

// New builds a Resolver over design, routing unresolved references
// through rt and accumulating diagnostics into accum.
func New(rt *router.Router, design *ir.Design, accum *diag.Accumulator, errorOnUnknownModule bool, logger logging.Logger) *Resolver {
	return &Resolver{
		router:               rt,
		design:                design,
		accum:                accum,
		errorOnUnknownModule: errorOnUnknownModule,
		logger:                logger,
		queued:                make(map[ir.ModuleHandle]bool),
	}
}

// Enqueue marks h for unresolved-instance processing. Safe to call
// concurrently, including from within a cell's own resolution (a
// frontend's recursive sub-elaboration may itself enqueue further
// modules before the Resolver's Run loop drains them).
func (r *Resolver) Enqueue(h ir.ModuleHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queued[h] {
		return
	}
	r.queued[h] = true
	r.queue = append(r.queue, h)
}

func (r *Resolver) dequeue() (ir.ModuleHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return 0, false
	}
	h := r.queue[0]
	r.queue = r.queue[1:]
	return h, true
}

// Run drains the worklist, resolving every unresolved-instance cell of
// every queued module. Already-resolved modules (no unresolved cells)
// cost one no-op pass, giving the Resolver its idempotence property
// (spec.md §8).
func (r *Resolver) Run(ctx context.Context) {
	for {
		h, ok := r.dequeue()
		if !ok {
			return
		}
		r.resolveModule(ctx, h)
	}
}

func (r *Resolver) resolveModule(ctx context.Context, h ir.ModuleHandle) {
	m := r.design.Module(h)
	if m == nil {
		return
	}
	// CellCount is read fresh each iteration: resolving a cell may append
	// dummy bus/instance-output cells to this same module via AddCell.
	for idx := ir.CellIndex(0); int(idx) < m.CellCount(); idx++ {
		uc, ok := m.Cell(idx).(ir.UnresolvedInstanceCell)
		if !ok {
			continue
		}
		r.resolveCell(ctx, m, idx, uc)
	}
}

// resolveCell performs steps 1-7 of spec.md §4.4 for one cell. Any
// linking error aborts the rewrite for this cell only, leaving it
// unresolved for diagnostics; the cell's identity (its index) is never
// disturbed either way.
func (r *Resolver) resolveCell(ctx context.Context, m *ir.Module, idx ir.CellIndex, uc ir.UnresolvedInstanceCell) {
	cell, _, ok := r.ResolveInstance(ctx, m, fmt.Sprintf("cell#%d", int(idx)), uc)
	if !ok {
		return
	}
	m.RewriteCell(idx, cell)
}

// ResolveInstance performs steps 1-7 of spec.md §4.4 for an
// unresolved-instance cell belonging to m, without storing the result
// in m's cell list (port linking may still append dummy
// bus/instance-output cells to m and rewrite the bus or
// instance-output cells a connection references) — the caller decides where the resulting
// InstanceCell is stored. loc identifies the cell in diagnostics. The
// returned ir.ResponseKind lets a caller react differently to each
// failure mode.
//
// This is also the primitive the Pass-through frontend uses for its
// "blackbox handling during copy" rule (spec.md §4.5): a blackbox
// instance discovered during a copy is just another unresolved
// reference that the same routing and linking procedure can settle.
// Pass-through distinguishes RespInvalidParameter (leave the cell in
// place per spec.md §9 open question (c)) from RespNotProvided /
// RespElaborationError (fall back to copying the blackbox unchanged).
func (r *Resolver) ResolveInstance(ctx context.Context, m *ir.Module, loc string, uc ir.UnresolvedInstanceCell) (ir.InstanceCell, ir.ResponseKind, bool) {
	req := ir.Request{
		Mode:   ir.ModeAnyModule,
		Name:   uc.ModuleName,
		Params: uc.Params,
		Ports:  uc.Ports,
	}
	resp := r.router.Route(ctx, req)

	switch resp.Kind {
	case ir.RespNotProvided:
		if r.errorOnUnknownModule {
			r.accum.Add(diag.New(diag.UnknownModule, "module %q not provided by any frontend", uc.ModuleName.Text).At(m.Name().Text, loc))
		}
		return ir.InstanceCell{}, resp.Kind, false
	case ir.RespInvalidParameter:
		r.accum.Add(diag.New(diag.InvalidParameter, "frontend rejected parameters for module %q", uc.ModuleName.Text).At(m.Name().Text, loc))
		return ir.InstanceCell{}, resp.Kind, false
	case ir.RespElaborationError:
		msg := "elaboration failed"
		if resp.Err != nil {
			msg = resp.Err.Error()
		}
		r.accum.Add(diag.New(diag.ElaborationError, "%s", msg).At(m.Name().Text, loc))
		return ir.InstanceCell{}, resp.Kind, false
	}

	target := r.design.Module(resp.Module)
	if target == nil {
		r.accum.Add(diag.New(diag.ElaborationError, "frontend returned an unknown handle for module %q", uc.ModuleName.Text).At(m.Name().Text, loc))
		return ir.InstanceCell{}, ir.RespElaborationError, false
	}

	resolvedParams, paramsOK := r.linkParams(target, uc, resp, m.Name().Text, loc)
	resolvedPorts, portsOK := r.linkPorts(m, target, uc, m.Name().Text, loc)
	if !paramsOK || !portsOK {
		return ir.InstanceCell{}, ir.RespInvalidParameter, false
	}

	return ir.InstanceCell{Module: resp.Module, Params: resolvedParams, Ports: resolvedPorts}, ir.RespSuccess, true
}

// matchByNameThenPosition returns the index of the binding matching
// declName/declIndex, or -1 if none. dup reports whether more than one
// binding matched (an error at the call site either way).
func matchByNameThenPosition(declName ir.Name, declIndex int, count int, nameAt func(int) (name string, positional bool), positionAt func(int) int) (match int, dup bool) {
	match = -1
	for i := 0; i < count; i++ {
		name, positional := nameAt(i)
		if positional {
			continue
		}
		if declName.Matches(ir.Name{Text: name, CaseSensitive: true}) {
			if match != -1 {
				dup = true
			}
			match = i
		}
	}
	if match != -1 {
		return match, dup
	}
	for i := 0; i < count; i++ {
		_, positional := nameAt(i)
		if !positional {
			continue
		}
		if positionAt(i) == declIndex {
			if match != -1 {
				dup = true
			}
			match = i
		}
	}
	return match, dup
}

// linkParams implements spec.md §4.4 step 4.
func (r *Resolver) linkParams(target *ir.Module, uc ir.UnresolvedInstanceCell, resp ir.Response, moduleName, loc string) ([]ir.ResolvedParam, bool) {
	properParams := target.ProperParams()
	resolved := make([]ir.ResolvedParam, len(properParams))
	ok := true

	for i, pp := range properParams {
		desc := pp.Descriptor
		matchIdx, dup := matchByNameThenPosition(desc.Name, i, len(uc.Params),
			func(bi int) (string, bool) { return uc.Params[bi].Name, uc.Params[bi].IsPositional() },
			func(bi int) int { return uc.Params[bi].Position })

		if dup {
			r.accum.Add(diag.New(diag.InvalidParameter, "parameter %q matched by more than one binding", desc.Name.Text).At(moduleName, loc))
			ok = false
			continue
		}
		if matchIdx == -1 {
			if desc.Default != nil {
				resolved[i] = ir.ResolvedParam{Name: desc.Name, Value: ir.Explicit(*desc.Default)}
				continue
			}
			r.accum.Add(diag.New(diag.InvalidParameter, "missing parameter %q with no default", desc.Name.Text).At(moduleName, loc))
			ok = false
			continue
		}

		b := uc.Params[matchIdx]
		if b.Value.Available {
			v := b.Value.Value
			if i < len(resp.NormalizedParams) && resp.NormalizedParams[i].Value != nil {
				v = *resp.NormalizedParams[i].Value
			}
			resolved[i] = ir.ResolvedParam{Name: desc.Name, Value: ir.Explicit(v)}
			continue
		}

		if b.Value.DynamicKind != desc.Kind {
			r.accum.Add(diag.New(diag.InvalidParameter, "parameter %q: dynamic source kind %s does not match %s", desc.Name.Text, b.Value.DynamicKind, desc.Kind).At(moduleName, loc))
			ok = false
			continue
		}
		resolved[i] = ir.ResolvedParam{Name: desc.Name, Value: b.Value}
	}

	return resolved, ok
}

// linkPorts implements spec.md §4.4 steps 5-7.
func (r *Resolver) linkPorts(m, target *ir.Module, uc ir.UnresolvedInstanceCell, moduleName, loc string) ([]ir.ResolvedPort, bool) {
	ports := target.Ports()
	resolved := make([]ir.ResolvedPort, len(ports))
	used := make([]bool, len(uc.Ports))
	ok := true

	for j, p := range ports {
		matchIdx, dup := matchByNameThenPosition(p.Name, j, len(uc.Ports),
			func(ci int) (string, bool) { return uc.Ports[ci].Name, uc.Ports[ci].IsPositional() },
			func(ci int) int { return uc.Ports[ci].Position })

		if dup {
			r.accum.Add(diag.New(diag.PortMismatch, "port %q matched by more than one connection", p.Name.Text).At(moduleName, loc))
			ok = false
			continue
		}
		if matchIdx == -1 {
			resolved[j] = defaultPort(m, p)
			continue
		}

		used[matchIdx] = true
		c := uc.Ports[matchIdx]
		if c.Width != p.Width {
			r.accum.Add(diag.New(diag.PortMismatch, "port %q: width mismatch (connection %d, port %d)", p.Name.Text, c.Width, p.Width).At(moduleName, loc))
			ok = false
			continue
		}

		net, err := connectPort(m, p, c)
		if err != nil {
			r.accum.Add(diag.New(diag.PortMismatch, "port %q: %v", p.Name.Text, err).At(moduleName, loc))
			ok = false
			continue
		}
		resolved[j] = ir.ResolvedPort{Name: p.Name, Net: net}
	}

	for ci, c := range uc.Ports {
		if used[ci] {
			continue
		}
		label := c.Name
		if c.IsPositional() {
			label = fmt.Sprintf("#%d", c.Position)
		}
		r.accum.Add(diag.New(diag.PortMismatch, "connection %q does not match any port of %q", label, target.Name().Text).At(moduleName, loc))
		ok = false
	}

	return resolved, ok
}

// defaultPort builds the net for an unconnected submodule port
// (spec.md §4.4 step 5, final bullet).
func defaultPort(m *ir.Module, p ir.Port) ir.ResolvedPort {
	switch p.Direction {
	case ir.DirBus:
		idx := m.AddCell(ir.BusCell{Width: p.Width})
		return ir.ResolvedPort{Name: p.Name, Net: ir.Net{Kind: ir.NetBus, CellIndex: idx}}
	case ir.DirOutput:
		idx := m.AddCell(ir.InstanceOutputCell{Width: p.Width})
		return ir.ResolvedPort{Name: p.Name, Net: ir.Net{Kind: ir.NetInstanceOutput, CellIndex: idx}}
	default: // DirInput
		bv := ir.AllX(p.Width)
		if p.Default != nil {
			bv = *p.Default
		}
		v := ir.BitsValue(bv)
		return ir.ResolvedPort{Name: p.Name, Net: ir.Net{Kind: ir.NetValue, Const: &v}}
	}
}

// connectPort applies the (submodule direction, cell direction)
// connection table of spec.md §4.4 step 5, mutating m when a rule
// calls for a fresh bus or instance-output cell (or for converting one
// into the other). It returns the net that represents the submodule
// port's own connection point.
//
// The minimal cell model (§1 "out of scope: full netlist fidelity")
// tracks a single driver reference per bus rather than a driver list;
// the (output, bus) rule's "attach a driver" therefore overwrites
// whatever the bus's driver field held, which is sufficient to link
// the port but not to represent multiple simultaneous drivers.
func connectPort(m *ir.Module, p ir.Port, c ir.PortConnection) (ir.Net, error) {
	switch p.Direction {
	case ir.DirInput:
		switch c.Hint {
		case ir.DirInput, ir.DirBus:
			return c.Net, nil
		default:
			return ir.Net{}, fmt.Errorf("an output-hinted connection cannot drive an input port")
		}

	case ir.DirBus:
		switch c.Hint {
		case ir.DirInput:
			driver := c.Net
			idx := m.AddCell(ir.BusCell{Width: p.Width, AlwaysEnabledDriver: &driver})
			return ir.Net{Kind: ir.NetBus, CellIndex: idx}, nil
		case ir.DirBus:
			return c.Net, nil
		case ir.DirOutput:
			existing, ok := m.Cell(c.Net.CellIndex).(ir.InstanceOutputCell)
			if !ok {
				return ir.Net{}, fmt.Errorf("connection does not reference an instance-output cell to convert")
			}
			m.RewriteCell(c.Net.CellIndex, ir.BusCell{Width: existing.Width})
			return ir.Net{Kind: ir.NetBus, CellIndex: c.Net.CellIndex}, nil
		}

	case ir.DirOutput:
		switch c.Hint {
		case ir.DirInput:
			return ir.Net{}, fmt.Errorf("an input-hinted connection cannot be driven by an output port")
		case ir.DirBus:
			outIdx := m.AddCell(ir.InstanceOutputCell{Width: p.Width})
			outNet := ir.Net{Kind: ir.NetInstanceOutput, CellIndex: outIdx}
			bus, ok := m.Cell(c.Net.CellIndex).(ir.BusCell)
			if !ok {
				return ir.Net{}, fmt.Errorf("connection does not reference a bus cell to drive")
			}
			bus.AlwaysEnabledDriver = &outNet
			m.RewriteCell(c.Net.CellIndex, bus)
			return outNet, nil
		case ir.DirOutput:
			return c.Net, nil
		}
	}

	return ir.Net{}, fmt.Errorf("unhandled port direction combination (%s, %s)", p.Direction, c.Hint)
}
