package proto

// WireName mirrors ir.Name for JSON transport.
type WireName struct {
	Text          string `json:"text"`
	CaseSensitive bool   `json:"caseSensitive"`
}

// WireValue mirrors ir.Value. Kind is one of "string", "int", "real",
// "bitvec-fixed-width", "bitvec-any-width".
type WireValue struct {
	Kind      string  `json:"kind"`
	Str       string  `json:"str,omitempty"`
	Int       int64   `json:"int,omitempty"`
	Real      float64 `json:"real,omitempty"`
	BitsWidth int     `json:"bitsWidth,omitempty"`
	Bits      string  `json:"bits,omitempty"`
}

// WireBindingValue mirrors ir.BindingValue. DynamicKind is only
// meaningful when Available is false and non-empty.
type WireBindingValue struct {
	Available   bool       `json:"available"`
	Value       *WireValue `json:"value,omitempty"`
	DynamicKind string     `json:"dynamicKind,omitempty"`
}

// WireParamBinding mirrors ir.ParamBinding.
type WireParamBinding struct {
	Name     string           `json:"name,omitempty"`
	Position int              `json:"position"`
	Value    WireBindingValue `json:"value"`
}

// WireNet mirrors ir.Net. Kind is one of "value", "bus",
// "instance-output". CellIndex has the same meaning as ir.Net.CellIndex.
type WireNet struct {
	Kind      string     `json:"kind"`
	CellIndex int        `json:"cellIndex,omitempty"`
	Const     *WireValue `json:"const,omitempty"`
}

// WirePortConnection mirrors ir.PortConnection. Hint is one of "input",
// "output", "bus".
type WirePortConnection struct {
	Name     string  `json:"name,omitempty"`
	Position int     `json:"position"`
	Hint     string  `json:"hint"`
	Width    int     `json:"width"`
	Net      WireNet `json:"net"`
}

// WireParamDescriptor mirrors ir.ParamDescriptor.
type WireParamDescriptor struct {
	Name         WireName    `json:"name"`
	Kind         string      `json:"kind"`
	Default      *WireValue  `json:"default,omitempty"`
	Restrictions []WireValue `json:"restrictions,omitempty"`
}

// WireBakedInParam mirrors ir.BakedInParam.
type WireBakedInParam struct {
	Name  WireName  `json:"name"`
	Value WireValue `json:"value"`
}

// WirePort mirrors ir.Port. Direction is one of "input", "output", "bus".
type WirePort struct {
	Name      WireName   `json:"name"`
	Direction string     `json:"direction"`
	Width     int        `json:"width"`
	Default   *WireValue `json:"default,omitempty"`
}

// WireCell is a tagged union over the cell kinds. Kind selects which
// of the kind-specific fields are populated.
type WireCell struct {
	Kind string `json:"kind"` // "unresolved-instance", "instance", "const", "bus", "instance-output"

	// unresolved-instance
	ModuleName *WireName            `json:"moduleName,omitempty"`
	Params     []WireParamBinding   `json:"params,omitempty"`
	Ports      []WirePortConnection `json:"ports,omitempty"`

	// instance. ModuleRef is a fragment-local ID, resolved through the
	// stand-in/new-module mapping for modules within this same payload.
	ModuleRef      string              `json:"moduleRef,omitempty"`
	ResolvedParams []WireResolvedParam `json:"resolvedParams,omitempty"`
	ResolvedPorts  []WireResolvedPort  `json:"resolvedPorts,omitempty"`

	// const
	Value *WireValue `json:"value,omitempty"`

	// bus
	Width               int      `json:"width,omitempty"`
	AlwaysEnabledDriver *WireNet `json:"alwaysEnabledDriver,omitempty"`
}

// WireResolvedParam mirrors ir.ResolvedParam.
type WireResolvedParam struct {
	Name  WireName         `json:"name"`
	Value WireBindingValue `json:"value"`
}

// WireResolvedPort mirrors ir.ResolvedPort.
type WireResolvedPort struct {
	Name WireName `json:"name"`
	Net  WireNet  `json:"net"`
}

// WireModule mirrors ir.Module plus a FragmentID identifying it within
// one insert-IR payload.
type WireModule struct {
	FragmentID   string                `json:"fragmentId"`
	Name         WireName              `json:"name"`
	Kind         string                `json:"kind"` // "user", "blackbox", "whitebox", "passthru-imported"
	Top          bool                  `json:"top"`
	BakedParams  []WireBakedInParam    `json:"bakedParams,omitempty"`
	ProperParams []WireParamDescriptor `json:"properParams,omitempty"`
	Ports        []WirePort            `json:"ports,omitempty"`
	Cells        []WireCell            `json:"cells,omitempty"`
}

// WireFragment is a serialized IR fragment, the payload of an
// insert-IR request.
type WireFragment struct {
	Modules []WireModule `json:"modules"`
}
