package passthrough

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/resolver"
	"github.com/hdlforge/elabdriver/pkg/router"
)

func newTestAccess(t *testing.T) (frontend.BuiltinAccess, *ir.Design, *resolver.Resolver) {
	t.Helper()
	design := ir.NewDesign()
	reg := frontend.NewRegistry()
	accum := &diag.Accumulator{}
	rt := router.New(reg, false, accum, logging.Noop())
	rv := resolver.New(rt, design, accum, false, logging.Noop())

	access := frontend.BuiltinAccess{
		Design:                      design,
		Route:                       rt.Route,
		MarkForUnresolvedProcessing: rv.Enqueue,
	}
	return access, design, rv
}

func buildCoreDesign(t *testing.T) *ir.Design {
	t.Helper()
	input := ir.NewDesign()
	core := ir.NewModule(ir.NewName("Core"), ir.KindUser)
	core.SetTop(true)
	core.AddProperParam(ir.ProperParam{Descriptor: ir.ParamDescriptor{
		Name: ir.NewName("FREQ"), Kind: ir.KindInt, Default: refInt(100),
	}})
	input.Insert(core)
	return input
}

func refInt(i int64) *ir.Value {
	v := ir.IntValue(i)
	return &v
}

func TestPassThroughTopModeCopiesAllModulesAndPreservesTop(t *testing.T) {
	input := buildCoreDesign(t)
	access, design, _ := newTestAccess(t)

	f := New("pt", input, true, nil)
	require.NoError(t, f.Initialize(context.Background(), access, frontend.InitOptions{}))

	handles, err := f.ElaborateTop(context.Background(), access)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	m := design.Module(handles[0])
	require.NotNil(t, m)
	assert.True(t, m.Top())
	assert.Equal(t, "Core", m.Name().Text)

	names, ok := f.ListExported(context.Background(), access)
	assert.True(t, ok)
	assert.Empty(t, names, "list-exported is always empty when top is set")
}

func TestPassThroughOnDemandListsTopModuleNames(t *testing.T) {
	input := buildCoreDesign(t)
	access, _, _ := newTestAccess(t)

	f := New("pt", input, false, nil)
	names, ok := f.ListExported(context.Background(), access)
	require.True(t, ok)
	require.Len(t, names, 1)
	assert.Equal(t, "Core", names[0].Text)
}

// TestPassThroughDynamicParameterScenario implements spec.md §8 scenario
// 6: requesting FREQ=200 copies Core in with its proper parameter cell
// intact; the instantiating cell's binding is not baked into Core.
func TestPassThroughDynamicParameterScenario(t *testing.T) {
	input := buildCoreDesign(t)

	rg := frontend.NewRegistry()
	accum := &diag.Accumulator{}
	rt := router.New(rg, false, accum, logging.Noop())
	design := ir.NewDesign()
	rv := resolver.New(rt, design, accum, false, logging.Noop())

	f := New("pt", input, false, rv)
	access := frontend.BuiltinAccess{Design: design, Route: rt.Route, MarkForUnresolvedProcessing: rv.Enqueue}

	req := ir.Request{
		Mode: ir.ModeAnyModule,
		Name: ir.NewName("Core"),
		Params: []ir.ParamBinding{
			{Name: "FREQ", Value: ir.Explicit(ir.IntValue(200))},
		},
	}
	resp, err := f.ElaborateSpecified(context.Background(), access, req)
	require.NoError(t, err)
	require.Equal(t, ir.RespSuccess, resp.Kind)

	m := design.Module(resp.Module)
	require.NotNil(t, m)
	require.Len(t, m.ProperParams(), 1, "Core's proper parameter cell remains")
	assert.Equal(t, "FREQ", m.ProperParams()[0].Descriptor.Name.Text)

	require.Len(t, resp.NormalizedParams, 1)
	require.NotNil(t, resp.NormalizedParams[0].Value)
	assert.Equal(t, int64(200), resp.NormalizedParams[0].Value.Int)
}

func TestPassThroughTopSetNeverElaboratesSpecified(t *testing.T) {
	input := buildCoreDesign(t)
	access, _, _ := newTestAccess(t)
	f := New("pt", input, true, nil)

	resp, err := f.ElaborateSpecified(context.Background(), access, ir.Request{Name: ir.NewName("Core")})
	require.NoError(t, err)
	assert.Equal(t, ir.RespNotProvided, resp.Kind)
}

func TestPassThroughIncompatibleRequestIsInvalidParameter(t *testing.T) {
	input := buildCoreDesign(t)
	access, design, rv := newTestAccess(t)
	f := New("pt", input, false, rv)

	req := ir.Request{
		Name: ir.NewName("Core"),
		Params: []ir.ParamBinding{
			{Name: "FREQ", Value: ir.Explicit(ir.StringValue("not-an-int"))},
		},
	}
	resp, err := f.ElaborateSpecified(context.Background(), access, req)
	require.NoError(t, err)
	assert.Equal(t, ir.RespInvalidParameter, resp.Kind)
	assert.Empty(t, design.Modules(), "an incompatible request must not copy anything in")
}
