package ir

import "strings"

// ParamKind is the type lattice a parameter or port default may carry.
type ParamKind uint8

const (
	KindString ParamKind = iota
	KindInt
	KindReal
	KindBitVecFixed
	KindBitVecAny
)

func (k ParamKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBitVecFixed:
		return "bitvec-fixed-width"
	case KindBitVecAny:
		return "bitvec-any-width"
	default:
		return "unknown"
	}
}

// BitVector is a fixed-width vector of 0/1/x/z digits, most-significant
// digit first.
type BitVector struct {
	Width int
	Bits  string // len == Width, each byte in {'0','1','x','z'}
}

// AllX returns an all-unknown bit vector of the given width, the value
// an unconnected input port receives when it has no default.
func AllX(width int) BitVector {
	return BitVector{Width: width, Bits: strings.Repeat("x", width)}
}

// Value is a tagged union over the parameter kinds. Only the field
// matching Kind is meaningful.
type Value struct {
	Kind ParamKind
	Str  string
	Int  int64
	Real float64
	Bits BitVector
}

// SameKind reports whether v could be accepted by a parameter of kind k:
// exact kind match, except that a fixed-width value may also satisfy an
// any-width bitvec parameter. The reverse is rejected: an any-width
// value only satisfies an any-width parameter.
func (v Value) SameKind(k ParamKind) bool {
	if v.Kind == k {
		return true
	}
	if k == KindBitVecAny && v.Kind == KindBitVecFixed {
		return true
	}
	return false
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func RealValue(r float64) Value   { return Value{Kind: KindReal, Real: r} }
func BitsValue(b BitVector) Value { return Value{Kind: KindBitVecFixed, Bits: b} }
