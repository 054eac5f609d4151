package proto

import "github.com/hdlforge/elabdriver/pkg/ir"

func NameToWire(n ir.Name) WireName {
	return WireName{Text: n.Text, CaseSensitive: n.CaseSensitive}
}

func WireToName(w WireName) ir.Name {
	return ir.Name{Text: w.Text, CaseSensitive: w.CaseSensitive}
}

var paramKindToWire = map[ir.ParamKind]string{
	ir.KindString:      "string",
	ir.KindInt:         "int",
	ir.KindReal:        "real",
	ir.KindBitVecFixed: "bitvec-fixed-width",
	ir.KindBitVecAny:   "bitvec-any-width",
}

var wireToParamKind = map[string]ir.ParamKind{
	"string":             ir.KindString,
	"int":                ir.KindInt,
	"real":               ir.KindReal,
	"bitvec-fixed-width": ir.KindBitVecFixed,
	"bitvec-any-width":   ir.KindBitVecAny,
}

func ValueToWire(v ir.Value) WireValue {
	w := WireValue{Kind: paramKindToWire[v.Kind]}
	switch v.Kind {
	case ir.KindString:
		w.Str = v.Str
	case ir.KindInt:
		w.Int = v.Int
	case ir.KindReal:
		w.Real = v.Real
	default:
		w.BitsWidth = v.Bits.Width
		w.Bits = v.Bits.Bits
	}
	return w
}

func WireToValue(w WireValue) ir.Value {
	kind := wireToParamKind[w.Kind]
	v := ir.Value{Kind: kind}
	switch kind {
	case ir.KindString:
		v.Str = w.Str
	case ir.KindInt:
		v.Int = w.Int
	case ir.KindReal:
		v.Real = w.Real
	default:
		v.Bits = ir.BitVector{Width: w.BitsWidth, Bits: w.Bits}
	}
	return v
}

func BindingValueToWire(b ir.BindingValue) WireBindingValue {
	if b.Available {
		v := ValueToWire(b.Value)
		return WireBindingValue{Available: true, Value: &v}
	}
	return WireBindingValue{DynamicKind: paramKindToWire[b.DynamicKind]}
}

func WireToBindingValue(w WireBindingValue) ir.BindingValue {
	if !w.Available || w.Value == nil {
		return ir.DynamicOfKind(wireToParamKind[w.DynamicKind])
	}
	return ir.Explicit(WireToValue(*w.Value))
}

func ParamBindingToWire(p ir.ParamBinding) WireParamBinding {
	return WireParamBinding{Name: p.Name, Position: p.Position, Value: BindingValueToWire(p.Value)}
}

func WireToParamBinding(w WireParamBinding) ir.ParamBinding {
	return ir.ParamBinding{Name: w.Name, Position: w.Position, Value: WireToBindingValue(w.Value)}
}

func ParamBindingsToWire(ps []ir.ParamBinding) []WireParamBinding {
	out := make([]WireParamBinding, len(ps))
	for i, p := range ps {
		out[i] = ParamBindingToWire(p)
	}
	return out
}

func WireToParamBindings(ws []WireParamBinding) []ir.ParamBinding {
	out := make([]ir.ParamBinding, len(ws))
	for i, w := range ws {
		out[i] = WireToParamBinding(w)
	}
	return out
}

var netKindToWire = map[ir.NetKind]string{
	ir.NetValue:          "value",
	ir.NetBus:            "bus",
	ir.NetInstanceOutput: "instance-output",
}

var wireToNetKind = map[string]ir.NetKind{
	"value":           ir.NetValue,
	"bus":             ir.NetBus,
	"instance-output": ir.NetInstanceOutput,
}

func NetToWire(n ir.Net) WireNet {
	w := WireNet{Kind: netKindToWire[n.Kind], CellIndex: int(n.CellIndex)}
	if n.Const != nil {
		v := ValueToWire(*n.Const)
		w.Const = &v
	}
	return w
}

func WireToNet(w WireNet) ir.Net {
	n := ir.Net{Kind: wireToNetKind[w.Kind], CellIndex: ir.CellIndex(w.CellIndex)}
	if w.Const != nil {
		v := WireToValue(*w.Const)
		n.Const = &v
	}
	return n
}

var directionToWire = map[ir.Direction]string{
	ir.DirInput:  "input",
	ir.DirOutput: "output",
	ir.DirBus:    "bus",
}

var wireToDirection = map[string]ir.Direction{
	"input":  ir.DirInput,
	"output": ir.DirOutput,
	"bus":    ir.DirBus,
}

func PortConnectionToWire(p ir.PortConnection) WirePortConnection {
	return WirePortConnection{
		Name: p.Name, Position: p.Position,
		Hint: directionToWire[p.Hint], Width: p.Width,
		Net: NetToWire(p.Net),
	}
}

func WireToPortConnection(w WirePortConnection) ir.PortConnection {
	return ir.PortConnection{
		Name: w.Name, Position: w.Position,
		Hint: wireToDirection[w.Hint], Width: w.Width,
		Net: WireToNet(w.Net),
	}
}

func PortConnectionsToWire(ps []ir.PortConnection) []WirePortConnection {
	out := make([]WirePortConnection, len(ps))
	for i, p := range ps {
		out[i] = PortConnectionToWire(p)
	}
	return out
}

func WireToPortConnections(ws []WirePortConnection) []ir.PortConnection {
	out := make([]ir.PortConnection, len(ws))
	for i, w := range ws {
		out[i] = WireToPortConnection(w)
	}
	return out
}

func PortToWire(p ir.Port) WirePort {
	w := WirePort{Name: NameToWire(p.Name), Direction: directionToWire[p.Direction], Width: p.Width}
	if p.Default != nil {
		v := ir.Value{Kind: ir.KindBitVecFixed, Bits: *p.Default}
		wv := ValueToWire(v)
		w.Default = &wv
	}
	return w
}

func WireToPort(w WirePort) ir.Port {
	p := ir.Port{Name: WireToName(w.Name), Direction: wireToDirection[w.Direction], Width: w.Width}
	if w.Default != nil {
		v := WireToValue(*w.Default)
		p.Default = &v.Bits
	}
	return p
}

func ParamDescriptorToWire(p ir.ParamDescriptor) WireParamDescriptor {
	w := WireParamDescriptor{Name: NameToWire(p.Name), Kind: paramKindToWire[p.Kind]}
	if p.Default != nil {
		v := ValueToWire(*p.Default)
		w.Default = &v
	}
	for _, r := range p.Restrictions {
		w.Restrictions = append(w.Restrictions, ValueToWire(r))
	}
	return w
}

func WireToParamDescriptor(w WireParamDescriptor) ir.ParamDescriptor {
	p := ir.ParamDescriptor{Name: WireToName(w.Name), Kind: wireToParamKind[w.Kind]}
	if w.Default != nil {
		v := WireToValue(*w.Default)
		p.Default = &v
	}
	for _, r := range w.Restrictions {
		p.Restrictions = append(p.Restrictions, WireToValue(r))
	}
	return p
}

func BakedInParamToWire(b ir.BakedInParam) WireBakedInParam {
	return WireBakedInParam{Name: NameToWire(b.Name), Value: ValueToWire(b.Value)}
}

func WireToBakedInParam(w WireBakedInParam) ir.BakedInParam {
	return ir.BakedInParam{Name: WireToName(w.Name), Value: WireToValue(w.Value)}
}

var moduleKindToWire = map[ir.ModuleKind]string{
	ir.KindUser:             "user",
	ir.KindBlackbox:         "blackbox",
	ir.KindWhitebox:         "whitebox",
	ir.KindPassthruImported: "passthru-imported",
}

var wireToModuleKind = map[string]ir.ModuleKind{
	"user":              ir.KindUser,
	"blackbox":          ir.KindBlackbox,
	"whitebox":          ir.KindWhitebox,
	"passthru-imported": ir.KindPassthruImported,
}
