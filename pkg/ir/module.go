package ir

import "fmt"

// ModuleKind classifies a module for routing and linking purposes.
type ModuleKind uint8

const (
	KindUser ModuleKind = iota
	KindBlackbox
	KindWhitebox
	KindPassthruImported
)

func (k ModuleKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindBlackbox:
		return "blackbox"
	case KindWhitebox:
		return "whitebox"
	case KindPassthruImported:
		return "passthru-imported"
	default:
		return "unknown"
	}
}

// Module is a module in the driver's IR. Its shape — Ports and
// BakedParams — becomes immutable the moment it is inserted into a
// Design (see Design.Insert); only its Cells may be rewritten
// afterward, and only by the Unresolved-Instance Resolver.
type Module struct {
	handle ModuleHandle
	name   Name
	kind   ModuleKind
	top    bool

	baked  []BakedInParam
	proper []ProperParam
	ports  []Port
	cells  []Cell

	inserted bool
}

// NewModule builds a module under construction; it is not visible to
// any other component until a Design inserts it.
func NewModule(name Name, kind ModuleKind) *Module {
	return &Module{name: name, kind: kind}
}

func (m *Module) Handle() ModuleHandle { return m.handle }
func (m *Module) Name() Name           { return m.name }
func (m *Module) Kind() ModuleKind     { return m.kind }
func (m *Module) Top() bool            { return m.top }
func (m *Module) SetTop(top bool)      { m.top = top }

// mustBeBuilding panics (a programmer error, not a user-facing one) if
// the module's shape is being mutated after insertion.
func (m *Module) mustBeBuilding() {
	if m.inserted {
		panic(fmt.Sprintf("module %q: shape is immutable once inserted", m.name.Text))
	}
}

// AddBakedInParam records a baked-in parameter annotation. Shape-only;
// must happen before insertion.
func (m *Module) AddBakedInParam(p BakedInParam) {
	m.mustBeBuilding()
	m.baked = append(m.baked, p)
}

// AddProperParam appends a proper-parameter cell descriptor. Shape-only;
// must happen before insertion.
func (m *Module) AddProperParam(p ProperParam) {
	m.mustBeBuilding()
	m.proper = append(m.proper, p)
}

// AddPort appends a port descriptor. Shape-only; must happen before
// insertion.
func (m *Module) AddPort(p Port) {
	m.mustBeBuilding()
	m.ports = append(m.ports, p)
}

// AddCell appends a cell and returns its stable index.
func (m *Module) AddCell(c Cell) CellIndex {
	m.cells = append(m.cells, c)
	return CellIndex(len(m.cells) - 1)
}

// RewriteCell replaces the cell at idx in place. Only the Resolver
// should call this once the module has been inserted.
func (m *Module) RewriteCell(idx CellIndex, c Cell) {
	m.cells[int(idx)] = c
}

func (m *Module) Cell(idx CellIndex) Cell { return m.cells[int(idx)] }
func (m *Module) CellCount() int          { return len(m.cells) }

// Cells returns a read-only view of the cell list in index order.
func (m *Module) Cells() []Cell {
	out := make([]Cell, len(m.cells))
	copy(out, m.cells)
	return out
}

// BakedInParams returns the immutable baked-in parameter annotations.
func (m *Module) BakedInParams() []BakedInParam {
	out := make([]BakedInParam, len(m.baked))
	copy(out, m.baked)
	return out
}

// ProperParams returns the proper parameter cells in declaration order.
func (m *Module) ProperParams() []ProperParam {
	out := make([]ProperParam, len(m.proper))
	copy(out, m.proper)
	return out
}

// Ports returns the immutable port list.
func (m *Module) Ports() []Port {
	out := make([]Port, len(m.ports))
	copy(out, m.ports)
	return out
}

// FindProperParam locates a proper parameter by name.
func (m *Module) FindProperParam(n Name) (ProperParam, bool) {
	for _, p := range m.proper {
		if p.Descriptor.Name.Matches(n) {
			return p, true
		}
	}
	return ProperParam{}, false
}

// FindBakedInParam locates a baked-in parameter annotation by name.
func (m *Module) FindBakedInParam(n Name) (BakedInParam, bool) {
	for _, p := range m.baked {
		if p.Name.Matches(n) {
			return p, true
		}
	}
	return BakedInParam{}, false
}

// freeze is called by Design.Insert to latch the module's shape.
func (m *Module) freeze(handle ModuleHandle) {
	m.handle = handle
	m.inserted = true
}
