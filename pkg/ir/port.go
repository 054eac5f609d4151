package ir

// Direction is a module port's direction, as declared by the module
// that owns the port.
type Direction uint8

const (
	DirInput Direction = iota
	DirOutput
	DirBus
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirBus:
		return "bus"
	default:
		return "unknown"
	}
}

// Port describes one port on a module.
type Port struct {
	Name      Name
	Direction Direction
	Width     int
	Default   *BitVector // only meaningful for Direction == DirInput
}

// NetKind classifies what a port connection on an unresolved-instance
// cell refers to within the caller's module.
type NetKind uint8

const (
	// NetValue is a plain wired value: a constant, or the output of
	// another cell referenced without bus semantics.
	NetValue NetKind = iota
	// NetBus references an existing bus cell in the caller's module.
	NetBus
	// NetInstanceOutput references an existing "instance output" cell.
	NetInstanceOutput
)

// Net is a reference to the connected value on the caller side of an
// unresolved-instance cell's port connection. CellIndex indexes into
// the same module's cell list: for NetBus and NetInstanceOutput it is
// the bus or instance-output cell being referenced (possibly rewritten
// in place by the Resolver); for a NetValue that is not a constant it
// names the source cell. The Resolver reads CellIndex only for bus and
// instance-output nets.
type Net struct {
	Kind      NetKind
	CellIndex CellIndex
	Const     *Value // populated when Kind == NetValue and the source is a constant
}

// PortConnection is one entry of the connected-port list on an
// unresolved-instance cell: a name-or-position, a direction hint as
// perceived by the caller, a width, and the net it connects to.
type PortConnection struct {
	Name     string // "" for positional
	Position int
	Hint     Direction // the cell-side "direction" column of the §4.4 table
	Width    int
	Net      Net
}

func (c PortConnection) IsPositional() bool { return c.Name == "" }
