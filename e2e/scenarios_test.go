package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hdlforge/elabdriver/pkg/coordinator"
	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/passthrough"
)

func newSession(opts coordinator.Options) (*coordinator.Coordinator, *ir.Design, *frontend.Registry) {
	design := ir.NewDesign()
	registry := frontend.NewRegistry()
	coord := coordinator.New(design, registry, opts, logging.Noop())
	return coord, design, registry
}

func mustRegister(registry *frontend.Registry, coord *coordinator.Coordinator, design *ir.Design, f frontend.BuiltinFrontend, targetProvided bool) {
	adapter := frontend.NewBuiltinAdapter(f, design, coord.Route, coord.Mark)
	ExpectWithOffset(1, registry.Register(adapter, targetProvided)).To(Succeed())
}

var _ = Describe("Scenario 1: cross-language instance resolution", func() {
	It("links a Top module's unresolved Adder(8) instance to a module a second frontend elaborates on demand", func() {
		coord, design, registry := newSession(coordinator.Options{
			ErrorOnUnknownModule: true,
			TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
		})

		top := &scriptedFrontend{
			id: "top", topCapable: true,
			onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
				m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
				aIdx := m.AddCell(ir.ConstCell{Value: ir.BitsValue(ir.AllX(8))})
				m.AddCell(ir.UnresolvedInstanceCell{
					ModuleName: ir.NewName("Adder"),
					Params:     []ir.ParamBinding{{Position: 0, Value: ir.Explicit(ir.IntValue(8))}},
					Ports: []ir.PortConnection{
						{Position: 0, Hint: ir.DirInput, Width: 8, Net: ir.Net{Kind: ir.NetValue, CellIndex: aIdx}},
						{Position: 1, Hint: ir.DirInput, Width: 8, Net: ir.Net{Kind: ir.NetValue, CellIndex: aIdx}},
						{Position: 2, Hint: ir.DirOutput, Width: 9},
					},
				})
				h := access.Design.Insert(m)
				access.MarkForUnresolvedProcessing(h)
				return []ir.ModuleHandle{h}, nil
			},
		}

		adder := &scriptedFrontend{
			id: "adder-frontend",
			onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
				return []ir.Name{ir.NewName("Adder")}, true
			},
			onElaborateSpecified: func(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
				if !req.Name.Matches(ir.NewName("Adder")) {
					return ir.NotProvidedResponse(), nil
				}
				w := 8
				for _, p := range req.Params {
					if p.Position == 0 && p.Value.Available {
						w = int(p.Value.Value.Int)
					}
				}
				m := ir.NewModule(ir.NewName("Adder"), ir.KindUser)
				m.AddProperParam(ir.ProperParam{Descriptor: ir.ParamDescriptor{Name: ir.NewName("W"), Kind: ir.KindInt, Default: refInt(8)}})
				m.AddPort(ir.Port{Name: ir.NewName("a"), Direction: ir.DirInput, Width: w})
				m.AddPort(ir.Port{Name: ir.NewName("b"), Direction: ir.DirInput, Width: w})
				m.AddPort(ir.Port{Name: ir.NewName("y"), Direction: ir.DirOutput, Width: w + 1})
				h := access.Design.Insert(m)
				wv := ir.IntValue(int64(w))
				return ir.SuccessResponse(h, []ir.NormalizedParam{{Value: &wv}}), nil
			},
		}

		mustRegister(registry, coord, design, top, false)
		mustRegister(registry, coord, design, adder, false)

		result := coord.Run(context.Background())
		Expect(result.Failed).To(BeFalse())
		Expect(result.Tops).To(HaveLen(1))

		topModule := design.Module(result.Tops[0])
		Expect(topModule.CellCount()).To(Equal(2))

		inst, ok := topModule.Cell(1).(ir.InstanceCell)
		Expect(ok).To(BeTrue(), "the unresolved cell must be rewritten to a proper instance")

		target := design.Module(inst.Module)
		Expect(target.Name().Text).To(Equal("Adder"))
		Expect(target.Ports()).To(HaveLen(3))
		Expect(target.Ports()[2].Width).To(Equal(9))
	})
})

var _ = Describe("Scenario 2: name ambiguity across frontends", func() {
	It("fails the session when a case-insensitive request matches two distinct case-sensitive spellings", func() {
		coord, design, registry := newSession(coordinator.Options{
			ErrorOnUnknownModule: true,
			TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
		})

		top := &scriptedFrontend{
			id: "top", topCapable: true,
			onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
				m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
				m.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewInsensitiveName("adder")})
				h := access.Design.Insert(m)
				access.MarkForUnresolvedProcessing(h)
				return []ir.ModuleHandle{h}, nil
			},
		}
		a := &scriptedFrontend{id: "A", onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
			return []ir.Name{ir.NewName("ADDER")}, true
		}}
		b := &scriptedFrontend{id: "B", onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
			return []ir.Name{ir.NewName("Adder")}, true
		}}

		mustRegister(registry, coord, design, top, false)
		mustRegister(registry, coord, design, a, false)
		mustRegister(registry, coord, design, b, false)

		result := coord.Run(context.Background())
		Expect(result.Failed).To(BeTrue())

		var found bool
		for _, err := range coord.Accumulator().Errors() {
			if d, ok := err.(*diag.Diagnostic); ok && d.Kind == diag.NameAmbiguity {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})
})

var _ = Describe("Scenario 3: duplicate proper-module provider", func() {
	It("fails the session when two frontends both answer round one for the same proper module", func() {
		coord, design, registry := newSession(coordinator.Options{
			ErrorOnUnknownModule: true,
			TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
		})

		makeProvider := func(id string) *scriptedFrontend {
			return &scriptedFrontend{
				id: id,
				onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
					return []ir.Name{ir.NewName("Shared")}, true
				},
				onElaborateSpecified: func(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
					if req.Mode != ir.ModeProperModuleOnly || !req.Name.Matches(ir.NewName("Shared")) {
						return ir.NotProvidedResponse(), nil
					}
					m := ir.NewModule(ir.NewName("Shared"), ir.KindUser)
					h := access.Design.Insert(m)
					return ir.SuccessResponse(h, nil), nil
				},
			}
		}

		top := &scriptedFrontend{
			id: "top", topCapable: true,
			onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
				m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
				m.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("Shared")})
				h := access.Design.Insert(m)
				access.MarkForUnresolvedProcessing(h)
				return []ir.ModuleHandle{h}, nil
			},
		}

		mustRegister(registry, coord, design, top, false)
		mustRegister(registry, coord, design, makeProvider("X"), false)
		mustRegister(registry, coord, design, makeProvider("Y"), false)

		result := coord.Run(context.Background())
		Expect(result.Failed).To(BeTrue())

		var found bool
		for _, err := range coord.Accumulator().Errors() {
			if d, ok := err.(*diag.Diagnostic); ok && d.Kind == diag.DuplicateProvider {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})
})

var _ = Describe("Scenario 4: a proper module shadows a blackbox any-module answer", func() {
	It("never asks round two once round one succeeds", func() {
		coord, design, registry := newSession(coordinator.Options{
			ErrorOnUnknownModule: true,
			TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
		})

		var roundTwoAsked bool

		top := &scriptedFrontend{
			id: "top", topCapable: true,
			onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
				m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
				m.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("Gate")})
				h := access.Design.Insert(m)
				access.MarkForUnresolvedProcessing(h)
				return []ir.ModuleHandle{h}, nil
			},
		}
		proper := &scriptedFrontend{
			id: "proper",
			onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
				return []ir.Name{ir.NewName("Gate")}, true
			},
			onElaborateSpecified: func(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
				if !req.Name.Matches(ir.NewName("Gate")) || req.Mode != ir.ModeProperModuleOnly {
					return ir.NotProvidedResponse(), nil
				}
				m := ir.NewModule(ir.NewName("Gate"), ir.KindUser)
				h := access.Design.Insert(m)
				return ir.SuccessResponse(h, nil), nil
			},
		}
		blackbox := &scriptedFrontend{
			id: "blackbox",
			onListExported: func(context.Context, frontend.BuiltinAccess) ([]ir.Name, bool) {
				return []ir.Name{ir.NewName("Gate")}, true
			},
			onElaborateSpecified: func(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
				if req.Mode != ir.ModeAnyModule {
					return ir.NotProvidedResponse(), nil
				}
				roundTwoAsked = true
				if !req.Name.Matches(ir.NewName("Gate")) {
					return ir.NotProvidedResponse(), nil
				}
				m := ir.NewModule(ir.NewName("Gate"), ir.KindBlackbox)
				h := access.Design.Insert(m)
				return ir.SuccessResponse(h, nil), nil
			},
		}

		mustRegister(registry, coord, design, top, false)
		mustRegister(registry, coord, design, proper, false)
		mustRegister(registry, coord, design, blackbox, false)

		result := coord.Run(context.Background())
		Expect(result.Failed).To(BeFalse())
		Expect(roundTwoAsked).To(BeFalse(), "round one's single success must skip round two entirely")

		topModule := design.Module(result.Tops[0])
		inst := topModule.Cell(0).(ir.InstanceCell)
		Expect(design.Module(inst.Module).Kind()).To(Equal(ir.KindUser), "the proper module, not the blackbox, must have won")
	})
})

var _ = Describe("Scenario 5: unknown module", func() {
	It("raises an UnknownModule diagnostic only when the flag is set", func() {
		run := func(flag bool) (coordinator.Result, *diag.Accumulator) {
			coord, design, registry := newSession(coordinator.Options{
				ErrorOnUnknownModule: flag,
				TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
			})
			top := &scriptedFrontend{
				id: "top", topCapable: true,
				onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
					m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
					m.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("NoSuchModule")})
					h := access.Design.Insert(m)
					access.MarkForUnresolvedProcessing(h)
					return []ir.ModuleHandle{h}, nil
				},
			}
			mustRegister(registry, coord, design, top, false)
			result := coord.Run(context.Background())
			return result, coord.Accumulator()
		}

		withFlag, accumWithFlag := run(true)
		Expect(withFlag.Failed).To(BeTrue())
		var foundWithFlag bool
		for _, err := range accumWithFlag.Errors() {
			if d, ok := err.(*diag.Diagnostic); ok && d.Kind == diag.UnknownModule {
				foundWithFlag = true
			}
		}
		Expect(foundWithFlag).To(BeTrue())

		withoutFlag, _ := run(false)
		Expect(withoutFlag.Failed).To(BeFalse(), "an unresolved instance with no provider and the flag off is not itself fatal")
	})
})

var _ = Describe("Scenario 6: pass-through frontend dynamic parameter request", func() {
	It("copies Core in with its proper parameter intact and echoes the requested value", func() {
		input := ir.NewDesign()
		core := ir.NewModule(ir.NewName("Core"), ir.KindUser)
		core.SetTop(true)
		core.AddProperParam(ir.ProperParam{Descriptor: ir.ParamDescriptor{Name: ir.NewName("FREQ"), Kind: ir.KindInt, Default: refInt(100)}})
		input.Insert(core)

		design := ir.NewDesign()
		registry := frontend.NewRegistry()
		coord := coordinator.New(design, registry, coordinator.Options{
			ErrorOnUnknownModule: true,
			TopSelection:         coordinator.TopSelection{Mode: coordinator.TopFrontendBased, FrontendID: "top"},
		}, logging.Noop())

		pt := passthrough.New("pt", input, false, coord.Resolver())
		adapter := frontend.NewBuiltinAdapter(pt, design, coord.Route, coord.Mark)
		Expect(registry.Register(adapter, false)).To(Succeed())

		top := &scriptedFrontend{
			id: "top", topCapable: true,
			onElaborateTop: func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
				resp := coord.Route(ctx, ir.Request{
					Mode: ir.ModeAnyModule,
					Name: ir.NewName("Core"),
					Params: []ir.ParamBinding{
						{Name: "FREQ", Value: ir.Explicit(ir.IntValue(200))},
					},
				})
				Expect(resp.Kind).To(Equal(ir.RespSuccess))
				Expect(resp.NormalizedParams).To(HaveLen(1))
				Expect(resp.NormalizedParams[0].Value).NotTo(BeNil())
				Expect(resp.NormalizedParams[0].Value.Int).To(Equal(int64(200)))
				return []ir.ModuleHandle{resp.Module}, nil
			},
		}
		mustRegister(registry, coord, design, top, false)

		result := coord.Run(context.Background())
		Expect(result.Failed).To(BeFalse())

		m := design.Module(result.Tops[0])
		Expect(m.ProperParams()).To(HaveLen(1))
		Expect(m.ProperParams()[0].Descriptor.Name.Text).To(Equal("FREQ"))
	})
})
