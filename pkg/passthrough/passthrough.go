// Package passthrough implements the Pass-through Frontend (spec.md
// §4.5): a built-in frontend that inlines a pre-elaborated IR design
// into an ongoing elaboration, either wholesale (top set) or on
// demand, module by module, as the driver asks for specific top-level
// names (top clear).
package passthrough

import (
	"context"
	"fmt"

	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/resolver"
)

// Frontend is the pass-through built-in frontend. Construct one per
// pre-elaborated design to inline; Top mirrors the "top" parameter of
// spec.md §4.5.
type Frontend struct {
	id       string
	input    *ir.Design
	top      bool
	resolver *resolver.Resolver
}

// New builds a pass-through frontend named id over input. rv is the
// session's Resolver, reused (not re-implemented) for the "blackbox
// handling during copy" rule, which is just the ordinary
// unresolved-instance linking procedure applied to a synthesized cell
// (spec.md §4.5); any diagnostic it raises lands in the same
// accumulator as the rest of the session.
func New(id string, input *ir.Design, top bool, rv *resolver.Resolver) *Frontend {
	return &Frontend{id: id, input: input, top: top, resolver: rv}
}

func (f *Frontend) ID() string       { return f.id }
func (f *Frontend) TopCapable() bool { return f.top }

func (f *Frontend) Initialize(context.Context, frontend.BuiltinAccess, frontend.InitOptions) error {
	return nil
}

// ListExported implements spec.md §4.5: empty when top is set; the
// names of input modules whose top flag is set, otherwise.
func (f *Frontend) ListExported(_ context.Context, _ frontend.BuiltinAccess) ([]ir.Name, bool) {
	if f.top {
		return nil, true
	}
	var names []ir.Name
	for _, m := range f.input.Modules() {
		if m.Top() {
			names = append(names, m.Name())
		}
	}
	return names, true
}

// ElaborateTop implements spec.md §4.5's top-set behavior: copy every
// module of the input design into the driver's design (preserving
// original module kinds, for round-trip fidelity — spec.md §8 "round
// trip laws"), and return the handles of the originally-top modules.
func (f *Frontend) ElaborateTop(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
	if !f.top {
		return nil, nil
	}

	visited := make(map[ir.ModuleHandle]ir.ModuleHandle)
	var tops []ir.ModuleHandle
	for _, m := range f.input.Modules() {
		h := f.copyModule(ctx, access, m.Handle(), visited, false)
		if m.Top() {
			tops = append(tops, h)
		}
		access.MarkForUnresolvedProcessing(h)
	}
	return tops, nil
}

// ElaborateSpecified implements spec.md §4.5. With top set, always
// not-provided. With top clear, it performs the module-matching
// procedure: find input top modules whose name matches req.Name and
// that are compatible with req's parameter bindings; exactly one
// compatible match (with every proper parameter covered by a request
// value or a default) is copied in (transitively) and returned.
func (f *Frontend) ElaborateSpecified(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
	if f.top {
		return ir.NotProvidedResponse(), nil
	}

	var compatible []*ir.Module
	for _, m := range f.input.Modules() {
		if !m.Top() || !m.Name().Matches(req.Name) {
			continue
		}
		if isCompatible(m, req.Params) {
			compatible = append(compatible, m)
		}
	}

	if len(compatible) != 1 {
		return ir.InvalidParameterResponse(), nil
	}
	match := compatible[0]
	if !everyProperParamCovered(match, req.Params) {
		return ir.InvalidParameterResponse(), nil
	}

	visited := make(map[ir.ModuleHandle]ir.ModuleHandle)
	h := f.copyModule(ctx, access, match.Handle(), visited, true)
	access.MarkForUnresolvedProcessing(h)

	imported := access.Design.Module(h)
	normalized := make([]ir.NormalizedParam, len(imported.ProperParams()))
	for i, pp := range imported.ProperParams() {
		if b, ok := findParamBinding(req.Params, pp.Descriptor.Name.Text, i); ok && b.Value.Available {
			v := b.Value.Value
			normalized[i] = ir.NormalizedParam{Value: &v}
		}
		// else: nil Value == "dynamic, requester supplies" — also the
		// correct answer when the request left this parameter to its
		// default, since the copied module's proper parameter cell
		// still exists and the requester's instantiation binds it.
	}

	return ir.SuccessResponse(h, normalized), nil
}

// isCompatible implements spec.md §4.5's module-compatibility rule:
// for every parameter name mentioned in the request, either the
// module's baked-in annotation of that name equals the request value,
// or the module's proper parameter cell of that name accepts it
// (dynamic request values are always accepted).
func isCompatible(m *ir.Module, params []ir.ParamBinding) bool {
	for _, b := range params {
		name := paramBindingName(m, b)
		if name == "" {
			continue
		}
		if baked, ok := m.FindBakedInParam(ir.Name{Text: name, CaseSensitive: true}); ok {
			if !b.Value.Available {
				return false
			}
			if !valueEqual(baked.Value, b.Value.Value) {
				return false
			}
			continue
		}
		if proper, ok := m.FindProperParam(ir.Name{Text: name, CaseSensitive: true}); ok {
			if !b.Value.Available {
				continue // dynamic is always accepted
			}
			if !proper.Descriptor.Accepts(b.Value.Value) {
				return false
			}
			continue
		}
		return false
	}
	return true
}

// paramBindingName resolves a (possibly positional) binding to the
// declared parameter name it addresses. A named binding yields its own
// name; a positional binding is looked up in the proper-parameter list
// only (baked-in annotations are not consulted), and a position outside
// that list yields "".
func paramBindingName(m *ir.Module, b ir.ParamBinding) string {
	if !b.IsPositional() {
		return b.Name
	}
	proper := m.ProperParams()
	if b.Position >= 0 && b.Position < len(proper) {
		return proper[b.Position].Descriptor.Name.Text
	}
	return ""
}

// everyProperParamCovered implements the second half of spec.md
// §4.5's match condition: every proper parameter of m has either a
// request value or a default.
func everyProperParamCovered(m *ir.Module, params []ir.ParamBinding) bool {
	for i, pp := range m.ProperParams() {
		if _, ok := findParamBinding(params, pp.Descriptor.Name.Text, i); ok {
			continue
		}
		if pp.Descriptor.Default == nil {
			return false
		}
	}
	return true
}

func findParamBinding(params []ir.ParamBinding, name string, position int) (ir.ParamBinding, bool) {
	for _, b := range params {
		if !b.IsPositional() && b.Name == name {
			return b, true
		}
	}
	for _, b := range params {
		if b.IsPositional() && b.Position == position {
			return b, true
		}
	}
	return ir.ParamBinding{}, false
}

func valueEqual(a, b ir.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.KindString:
		return a.Str == b.Str
	case ir.KindInt:
		return a.Int == b.Int
	case ir.KindReal:
		return a.Real == b.Real
	default:
		return a.Bits.Width == b.Bits.Width && a.Bits.Bits == b.Bits.Bits
	}
}

// copyModule copies one input module into the driver's design,
// recursively copying every module its instance cells reference
// (spec.md §4.5 "the module (and its transitive dependencies) is
// copied"). overrideKind marks newly-copied (non-blackbox) modules as
// passthru-imported, distinguishing an on-demand single-module import
// from the top-set bulk inline, which preserves original kinds
// verbatim for round-trip fidelity (spec.md §8).
func (f *Frontend) copyModule(ctx context.Context, access frontend.BuiltinAccess, inputHandle ir.ModuleHandle, visited map[ir.ModuleHandle]ir.ModuleHandle, overrideKind bool) ir.ModuleHandle {
	if h, ok := visited[inputHandle]; ok {
		return h
	}

	src := f.input.Module(inputHandle)
	kind := src.Kind()
	if overrideKind && kind != ir.KindBlackbox {
		kind = ir.KindPassthruImported
	}

	nm := ir.NewModule(src.Name(), kind)
	nm.SetTop(src.Top())
	for _, p := range src.BakedInParams() {
		nm.AddBakedInParam(p)
	}
	for _, p := range src.ProperParams() {
		nm.AddProperParam(p)
	}
	for _, p := range src.Ports() {
		nm.AddPort(p)
	}

	driverHandle := access.Design.Insert(nm)
	visited[inputHandle] = driverHandle

	for i, cell := range src.Cells() {
		nm.AddCell(f.copyCell(ctx, access, nm, i, cell, visited, overrideKind))
	}
	return driverHandle
}

// copyCell copies one cell of a module being copied. Only
// InstanceCell needs remapping (its Module field is a handle in the
// input design's arena); every other cell kind references cell
// indices within the same module, which copyModule preserves 1:1 by
// appending cells in their original order.
func (f *Frontend) copyCell(ctx context.Context, access frontend.BuiltinAccess, owner *ir.Module, loc int, cell ir.Cell, visited map[ir.ModuleHandle]ir.ModuleHandle, overrideKind bool) ir.Cell {
	inst, ok := cell.(ir.InstanceCell)
	if !ok {
		return cell
	}

	target := f.input.Module(inst.Module)
	if target.Kind() != ir.KindBlackbox {
		return ir.InstanceCell{Module: f.copyModule(ctx, access, inst.Module, visited, overrideKind), Params: inst.Params, Ports: inst.Ports}
	}

	return f.copyBlackboxInstance(ctx, access, owner, loc, target, inst, visited, overrideKind)
}

// copyBlackboxInstance implements spec.md §4.5's "blackbox handling
// during copy": synthesize an unresolved-instance request equivalent
// to the already-resolved cell and try to settle it through the
// driver's ordinary resolution machinery. Per §9 open question (c),
// an invalid-parameter response leaves the cell in place (as an
// unresolved instance, for later diagnosis) rather than falling back
// to a plain copy; not-provided and elaboration-error fall back to
// copying the blackbox unchanged, per the rule's literal "otherwise".
func (f *Frontend) copyBlackboxInstance(ctx context.Context, access frontend.BuiltinAccess, owner *ir.Module, loc int, target *ir.Module, inst ir.InstanceCell, visited map[ir.ModuleHandle]ir.ModuleHandle, overrideKind bool) ir.Cell {
	uc := reconstructUnresolved(target, inst)

	cell, kind, ok := f.resolver.ResolveInstance(ctx, owner, fmt.Sprintf("cell#%d", loc), uc)
	if ok {
		return cell
	}
	if kind == ir.RespInvalidParameter {
		return uc
	}

	blackboxHandle := f.copyModule(ctx, access, inst.Module, visited, overrideKind)
	return ir.InstanceCell{Module: blackboxHandle, Params: inst.Params, Ports: inst.Ports}
}

// reconstructUnresolved rebuilds an UnresolvedInstanceCell equivalent
// to a resolved InstanceCell targeting target, using target's own
// port widths and declared parameter list (the resolved cell itself
// does not carry widths).
func reconstructUnresolved(target *ir.Module, inst ir.InstanceCell) ir.UnresolvedInstanceCell {
	uc := ir.UnresolvedInstanceCell{ModuleName: target.Name()}
	for _, p := range inst.Params {
		uc.Params = append(uc.Params, ir.ParamBinding{Name: p.Name.Text, Value: p.Value})
	}
	ports := target.Ports()
	for _, p := range inst.Ports {
		width := 0
		for _, decl := range ports {
			if decl.Name.Matches(p.Name) {
				width = decl.Width
				break
			}
		}
		uc.Ports = append(uc.Ports, ir.PortConnection{
			Name:  p.Name.Text,
			Hint:  netKindToHint(p.Net.Kind),
			Width: width,
			Net:   p.Net,
		})
	}
	return uc
}

func netKindToHint(k ir.NetKind) ir.Direction {
	switch k {
	case ir.NetBus:
		return ir.DirBus
	case ir.NetInstanceOutput:
		return ir.DirOutput
	default:
		return ir.DirInput
	}
}
