package ir

// ParamDescriptor describes one parameter a module can accept at
// elaboration time or carry as a proper parameter cell.
type ParamDescriptor struct {
	Name         Name
	Kind         ParamKind
	Default      *Value  // nil if there is no default
	Restrictions []Value // optional enumerated set of legal values; empty means unrestricted
}

// Accepts reports whether v satisfies this descriptor's kind and, if
// present, its value restrictions.
func (p ParamDescriptor) Accepts(v Value) bool {
	if !v.SameKind(p.Kind) {
		return false
	}
	if len(p.Restrictions) == 0 {
		return true
	}
	for _, r := range p.Restrictions {
		if valuesEqual(r, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInt:
		return a.Int == b.Int
	case KindReal:
		return a.Real == b.Real
	default:
		return a.Bits.Width == b.Bits.Width && a.Bits.Bits == b.Bits.Bits
	}
}

// BakedInParam is a parameter value consumed during elaboration and
// stored as an immutable annotation on the resulting module.
type BakedInParam struct {
	Name  Name
	Value Value
}

// ProperParam is a parameter preserved as a cell on the elaborated
// module; its value is supplied by the instantiating cell.
type ProperParam struct {
	Descriptor ParamDescriptor
}

// BindingValue is either an explicit value or "value unavailable"
// (dynamic), as carried by a parameter binding at a request. When
// Available is false, DynamicKind still records the static kind of the
// cell's symbolic source (if known), since the Resolver must type-match
// it against the target parameter's kind exactly even though no
// concrete value is known yet (spec.md §4.4 step 4).
type BindingValue struct {
	Available   bool
	Value       Value
	DynamicKind ParamKind
}

func Explicit(v Value) BindingValue { return BindingValue{Available: true, Value: v} }

// Dynamic builds a "value unavailable" binding with no known source
// kind; callers that do know the symbolic source's kind should use
// DynamicOfKind instead so the Resolver can type-check it.
func Dynamic() BindingValue { return BindingValue{} }

// DynamicOfKind builds a "value unavailable" binding whose symbolic
// source is statically known to be of kind k.
func DynamicOfKind(k ParamKind) BindingValue { return BindingValue{DynamicKind: k} }

// ParamBinding is one entry of a parameter-binding list attached to a
// request or to an unresolved-instance cell: either positional (Name
// empty, Position is the 0-based ordinal) or named.
type ParamBinding struct {
	Name     string // "" for positional
	Position int
	Value    BindingValue
}

func (b ParamBinding) IsPositional() bool { return b.Name == "" }
