package ir

// CellIndex is a stable position within a module's cell list. Rewriting
// a cell means replacing the interface value at this index in place;
// the index itself is never reused for a different logical cell within
// the module's lifetime.
type CellIndex int

// Cell is the common marker for everything that can live in a module's
// cell list. The core does not need a shared method set across cell
// kinds beyond identification, so CellKind is the only one.
type Cell interface {
	CellKind() CellType
}

// CellType tags the concrete cell variant.
type CellType uint8

const (
	CellUnresolvedInstance CellType = iota
	CellInstance
	CellConst
	CellBus
	CellInstanceOutput
)

// ConstCell carries a constant value, the source a parameter binding or
// port connection may point at.
type ConstCell struct {
	Value Value
}

func (ConstCell) CellKind() CellType { return CellConst }

// BusCell is a bus: a net with "current value" read semantics and zero
// or more drivers. AlwaysEnabledDriver is set when the bus was created
// to satisfy a (bus, input) connection per §4.4.
type BusCell struct {
	Width               int
	AlwaysEnabledDriver *Net
}

func (BusCell) CellKind() CellType { return CellBus }

// InstanceOutputCell stands for the output of some instance; it may be
// a dummy created for an unconnected output port, or later converted
// into a BusCell by the Resolver per the (bus, output) connection rule.
type InstanceOutputCell struct {
	Width int
}

func (InstanceOutputCell) CellKind() CellType { return CellInstanceOutput }

// UnresolvedInstanceCell is an instantiation whose target module has
// not yet been linked.
type UnresolvedInstanceCell struct {
	ModuleName Name
	Params     []ParamBinding
	Ports      []PortConnection
}

func (UnresolvedInstanceCell) CellKind() CellType { return CellUnresolvedInstance }

// ResolvedParam is one proper-parameter binding on a linked instance.
type ResolvedParam struct {
	Name  Name
	Value BindingValue // Available=false means the cell's symbolic source drives it
}

// ResolvedPort is one port connection on a linked instance.
type ResolvedPort struct {
	Name Name
	Net  Net
}

// InstanceCell is a proper instantiation of a concrete module, produced
// by rewriting an UnresolvedInstanceCell in place.
type InstanceCell struct {
	Module ModuleHandle
	Params []ResolvedParam
	Ports  []ResolvedPort
}

func (InstanceCell) CellKind() CellType { return CellInstance }
