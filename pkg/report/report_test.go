package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdlforge/elabdriver/pkg/diag"
	"github.com/hdlforge/elabdriver/pkg/ir"
)

func TestBuildSuccessWithNoDiagnostics(t *testing.T) {
	design := ir.NewDesign()
	top := ir.NewModule(ir.NewName("Top"), ir.KindUser)
	top.SetTop(true)
	h := design.Insert(top)

	accum := &diag.Accumulator{}
	r := Build("ice40", design, []ir.ModuleHandle{h}, accum, 2*time.Second)

	assert.True(t, r.Success)
	assert.Equal(t, "ice40", r.Target)
	require.Len(t, r.Tops, 1)
	assert.Equal(t, "Top", r.Tops[0])
	require.Len(t, r.Modules, 1)
	assert.True(t, r.Modules[0].Top)
	assert.Empty(t, r.Diagnostics)
}

func TestBuildFailureProjectsDiagnostics(t *testing.T) {
	design := ir.NewDesign()
	accum := &diag.Accumulator{}
	accum.Add(diag.New(diag.UnknownModule, "no provider for %q", "Foo").At("Top", "cell0"))

	r := Build("ice40", design, nil, accum, time.Millisecond)
	assert.False(t, r.Success)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, "unknown-module", r.Diagnostics[0].Kind)
	assert.Equal(t, "Top", r.Diagnostics[0].Module)
}

func TestBuildCountsUnresolvedCells(t *testing.T) {
	design := ir.NewDesign()
	m := ir.NewModule(ir.NewName("Top"), ir.KindUser)
	m.AddCell(ir.UnresolvedInstanceCell{ModuleName: ir.NewName("Sub")})
	design.Insert(m)

	r := Build("t", design, nil, &diag.Accumulator{}, 0)
	require.Len(t, r.Modules, 1)
	assert.Equal(t, 1, r.Modules[0].Unresolved)
}

func TestWriteYAMLIncludesTarget(t *testing.T) {
	design := ir.NewDesign()
	r := Build("t", design, nil, &diag.Accumulator{}, time.Second)

	var buf bytes.Buffer
	require.NoError(t, r.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "target: t")
}

func TestPrintDoesNotPanic(t *testing.T) {
	design := ir.NewDesign()
	top := ir.NewModule(ir.NewName("Top"), ir.KindUser)
	design.Insert(top)

	accum := &diag.Accumulator{}
	accum.Add(diag.New(diag.PortMismatch, "width mismatch"))
	r := Build("t", design, nil, accum, time.Second)

	var buf bytes.Buffer
	r.Print(&buf)
	assert.Contains(t, buf.String(), "elabdriver")
}
