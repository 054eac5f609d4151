package proto

import (
	"fmt"

	"github.com/hdlforge/elabdriver/pkg/ir"
)

// IngestFragment ingests a serialized IR fragment into design, the
// driver-side half of "insert IR" (spec.md §4.3, §6). standIns maps
// fragment module IDs to already-known driver handles — opaque
// placeholders the fragment may reference but whose interior the
// driver never inspects. It returns the full fragment-ID → driver
// handle mapping (stand-ins included) and the handles of the newly
// inserted (non-stand-in) modules, in fragment order.
func IngestFragment(design *ir.Design, frag WireFragment, standIns map[string]int) (mapping map[string]int, newHandles []ir.ModuleHandle, err error) {
	mapping = make(map[string]int, len(frag.Modules)+len(standIns))
	for id, h := range standIns {
		mapping[id] = h
	}

	type pending struct {
		module *ir.Module
		wire   WireModule
	}
	var toFill []pending

	for _, wm := range frag.Modules {
		if _, isStandIn := standIns[wm.FragmentID]; isStandIn {
			continue
		}
		if _, dup := mapping[wm.FragmentID]; dup {
			return nil, nil, fmt.Errorf("fragment module ID %q appears more than once", wm.FragmentID)
		}

		m := ir.NewModule(WireToName(wm.Name), wireToModuleKind[wm.Kind])
		m.SetTop(wm.Top)
		for _, b := range wm.BakedParams {
			m.AddBakedInParam(WireToBakedInParam(b))
		}
		for _, p := range wm.ProperParams {
			m.AddProperParam(ir.ProperParam{Descriptor: WireToParamDescriptor(p)})
		}
		for _, p := range wm.Ports {
			m.AddPort(WireToPort(p))
		}

		h := design.Insert(m)
		mapping[wm.FragmentID] = int(h)
		newHandles = append(newHandles, h)
		toFill = append(toFill, pending{module: m, wire: wm})
	}

	for _, pend := range toFill {
		for _, wc := range pend.wire.Cells {
			cell, err := wireCellToCell(wc, mapping)
			if err != nil {
				return nil, nil, fmt.Errorf("module %q: %w", pend.wire.Name.Text, err)
			}
			pend.module.AddCell(cell)
		}
	}

	return mapping, newHandles, nil
}

// DesignToFragment serializes every module of design into a
// WireFragment, using "h" followed by each module's decimal handle
// (e.g. "h0") as its FragmentID. This is the inverse of IngestFragment, used by a remote
// frontend to hand its own in-memory design to the driver over
// "frontend/insertIR".
func DesignToFragment(design *ir.Design) WireFragment {
	var frag WireFragment
	for _, m := range design.Modules() {
		frag.Modules = append(frag.Modules, moduleToWireFragment(m))
	}
	return frag
}

func moduleToWireFragment(m *ir.Module) WireModule {
	wm := WireModule{
		FragmentID: fragmentID(m.Handle()),
		Name:       NameToWire(m.Name()),
		Kind:       moduleKindToWire[m.Kind()],
		Top:        m.Top(),
	}
	for _, p := range m.BakedInParams() {
		wm.BakedParams = append(wm.BakedParams, BakedInParamToWire(p))
	}
	for _, p := range m.ProperParams() {
		wm.ProperParams = append(wm.ProperParams, ParamDescriptorToWire(p.Descriptor))
	}
	for _, p := range m.Ports() {
		wm.Ports = append(wm.Ports, PortToWire(p))
	}
	for _, c := range m.Cells() {
		wm.Cells = append(wm.Cells, cellToWireFragment(c))
	}
	return wm
}

func cellToWireFragment(c ir.Cell) WireCell {
	switch cell := c.(type) {
	case ir.UnresolvedInstanceCell:
		w := WireCell{Kind: "unresolved-instance"}
		name := NameToWire(cell.ModuleName)
		w.ModuleName = &name
		w.Params = ParamBindingsToWire(cell.Params)
		w.Ports = PortConnectionsToWire(cell.Ports)
		return w
	case ir.InstanceCell:
		w := WireCell{Kind: "instance", ModuleRef: fragmentID(cell.Module)}
		for _, p := range cell.Params {
			w.ResolvedParams = append(w.ResolvedParams, WireResolvedParam{Name: NameToWire(p.Name), Value: BindingValueToWire(p.Value)})
		}
		for _, p := range cell.Ports {
			w.ResolvedPorts = append(w.ResolvedPorts, WireResolvedPort{Name: NameToWire(p.Name), Net: NetToWire(p.Net)})
		}
		return w
	case ir.ConstCell:
		v := ValueToWire(cell.Value)
		return WireCell{Kind: "const", Value: &v}
	case ir.BusCell:
		w := WireCell{Kind: "bus", Width: cell.Width}
		if cell.AlwaysEnabledDriver != nil {
			n := NetToWire(*cell.AlwaysEnabledDriver)
			w.AlwaysEnabledDriver = &n
		}
		return w
	case ir.InstanceOutputCell:
		return WireCell{Kind: "instance-output", Width: cell.Width}
	default:
		return WireCell{Kind: "unresolved-instance"}
	}
}

func fragmentID(h ir.ModuleHandle) string {
	return fmt.Sprintf("h%d", int(h))
}

func wireCellToCell(w WireCell, mapping map[string]int) (ir.Cell, error) {
	switch w.Kind {
	case "unresolved-instance":
		if w.ModuleName == nil {
			return nil, fmt.Errorf("unresolved-instance cell missing moduleName")
		}
		return ir.UnresolvedInstanceCell{
			ModuleName: WireToName(*w.ModuleName),
			Params:     WireToParamBindings(w.Params),
			Ports:      WireToPortConnections(w.Ports),
		}, nil

	case "instance":
		h, ok := mapping[w.ModuleRef]
		if !ok {
			return nil, fmt.Errorf("instance cell references unknown fragment module %q", w.ModuleRef)
		}
		params := make([]ir.ResolvedParam, len(w.ResolvedParams))
		for i, p := range w.ResolvedParams {
			params[i] = ir.ResolvedParam{Name: WireToName(p.Name), Value: WireToBindingValue(p.Value)}
		}
		ports := make([]ir.ResolvedPort, len(w.ResolvedPorts))
		for i, p := range w.ResolvedPorts {
			ports[i] = ir.ResolvedPort{Name: WireToName(p.Name), Net: WireToNet(p.Net)}
		}
		return ir.InstanceCell{Module: ir.ModuleHandle(h), Params: params, Ports: ports}, nil

	case "const":
		if w.Value == nil {
			return nil, fmt.Errorf("const cell missing value")
		}
		return ir.ConstCell{Value: WireToValue(*w.Value)}, nil

	case "bus":
		cell := ir.BusCell{Width: w.Width}
		if w.AlwaysEnabledDriver != nil {
			n := WireToNet(*w.AlwaysEnabledDriver)
			cell.AlwaysEnabledDriver = &n
		}
		return cell, nil

	case "instance-output":
		return ir.InstanceOutputCell{Width: w.Width}, nil

	default:
		return nil, fmt.Errorf("unknown cell kind %q", w.Kind)
	}
}
