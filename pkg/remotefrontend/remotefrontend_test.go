package remotefrontend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/proto"
)

// testAdderLogic mirrors cmd/elabdriver-frontend's demo Logic without
// importing a main package: it answers "Adder" with a width-8 adder
// inserted into the driver via InsertIR, exercising the full remote
// round trip of spec.md §8 scenario 1 over an actual jsonrpc2 connection.
type testAdderLogic struct{}

func (testAdderLogic) Initialize(context.Context, proto.InitializeParams) error { return nil }

func (testAdderLogic) ListExported(context.Context) ([]ir.Name, bool) {
	return []ir.Name{ir.NewName("Adder")}, true
}

func (testAdderLogic) ElaborateTop(context.Context, *Client) ([]ir.ModuleHandle, error) {
	return nil, nil
}

func (testAdderLogic) ElaborateSpecified(ctx context.Context, client *Client, req ir.Request) (ir.Response, error) {
	if !req.Name.Matches(ir.NewName("Adder")) {
		return ir.NotProvidedResponse(), nil
	}

	local := ir.NewDesign()
	m := ir.NewModule(ir.NewName("Adder"), ir.KindUser)
	m.AddPort(ir.Port{Name: ir.NewName("a"), Direction: ir.DirInput, Width: 8})
	m.AddPort(ir.Port{Name: ir.NewName("b"), Direction: ir.DirInput, Width: 8})
	m.AddPort(ir.Port{Name: ir.NewName("y"), Direction: ir.DirOutput, Width: 9})
	local.Insert(m)

	frag := proto.DesignToFragment(local)
	mapping, err := client.InsertIR(ctx, frag, nil, false)
	if err != nil {
		return ir.Response{}, err
	}

	handle, ok := mapping[frag.Modules[0].FragmentID]
	if !ok {
		return ir.ElaborationErrorResponse(assertErr("missing handle")), nil
	}
	wv := ir.IntValue(8)
	return ir.SuccessResponse(ir.ModuleHandle(handle), []ir.NormalizedParam{{Value: &wv}}), nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestRemoteRoundTripElaboratesAdder(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })

	server := NewServer(testAdderLogic{}, logging.Noop())
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(context.Background(), serverConn) }()

	design := ir.NewDesign()
	noopRoute := func(context.Context, ir.Request) ir.Response { return ir.NotProvidedResponse() }
	noopMark := func(ir.ModuleHandle) {}

	adapter := frontend.NewRemoteAdapter("adder", false, clientConn, design, noopRoute, noopMark, logging.Noop())
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, adapter.Initialize(ctx, frontend.InitOptions{Target: "test"}))

	names, available := adapter.ListExported(ctx)
	require.True(t, available)
	require.Len(t, names, 1)
	assert.Equal(t, "Adder", names[0].Text)

	resp, err := adapter.ElaborateSpecified(ctx, ir.Request{Mode: ir.ModeAnyModule, Name: ir.NewName("Adder")})
	require.NoError(t, err)
	require.Equal(t, ir.RespSuccess, resp.Kind)
	require.Len(t, resp.NormalizedParams, 1)
	require.NotNil(t, resp.NormalizedParams[0].Value)
	assert.Equal(t, int64(8), resp.NormalizedParams[0].Value.Int)

	m := design.Module(resp.Module)
	require.NotNil(t, m)
	assert.Equal(t, "Adder", m.Name().Text)
	require.Len(t, m.Ports(), 3)
	assert.Equal(t, 9, m.Ports()[2].Width)
}

// twoPhaseLogic inserts a leaf module on its first request and, on the
// second, inserts a wrapper whose instance cell references that leaf
// through the stand-in mapping — a frontend referencing its own
// previously-inserted modules across insertIR calls.
type twoPhaseLogic struct {
	leafHandle int
}

func (*twoPhaseLogic) Initialize(context.Context, proto.InitializeParams) error { return nil }

func (*twoPhaseLogic) ListExported(context.Context) ([]ir.Name, bool) {
	return []ir.Name{ir.NewName("Leaf"), ir.NewName("Wrapper")}, true
}

func (*twoPhaseLogic) ElaborateTop(context.Context, *Client) ([]ir.ModuleHandle, error) {
	return nil, nil
}

func (l *twoPhaseLogic) ElaborateSpecified(ctx context.Context, client *Client, req ir.Request) (ir.Response, error) {
	switch {
	case req.Name.Matches(ir.NewName("Leaf")):
		local := ir.NewDesign()
		leaf := ir.NewModule(ir.NewName("Leaf"), ir.KindUser)
		leaf.AddPort(ir.Port{Name: ir.NewName("q"), Direction: ir.DirOutput, Width: 1})
		local.Insert(leaf)

		mapping, err := client.InsertIR(ctx, proto.DesignToFragment(local), nil, false)
		if err != nil {
			return ir.Response{}, err
		}
		l.leafHandle = mapping["h0"]
		return ir.SuccessResponse(ir.ModuleHandle(l.leafHandle), nil), nil

	case req.Name.Matches(ir.NewName("Wrapper")):
		frag := proto.WireFragment{
			Modules: []proto.WireModule{
				{FragmentID: "leaf-standin", Name: proto.WireName{Text: "Leaf", CaseSensitive: true}, Kind: "blackbox"},
				{
					FragmentID: "wrapper",
					Name:       proto.WireName{Text: "Wrapper", CaseSensitive: true},
					Kind:       "user",
					Cells: []proto.WireCell{
						{Kind: "instance", ModuleRef: "leaf-standin"},
					},
				},
			},
		}
		mapping, err := client.InsertIR(ctx, frag, map[string]int{"leaf-standin": l.leafHandle}, true)
		if err != nil {
			return ir.Response{}, err
		}
		return ir.SuccessResponse(ir.ModuleHandle(mapping["wrapper"]), nil), nil
	}
	return ir.NotProvidedResponse(), nil
}

func TestRemoteStandInReferencesOwnPriorInsertion(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })

	server := NewServer(&twoPhaseLogic{}, logging.Noop())
	go func() { _ = server.Serve(context.Background(), serverConn) }()

	design := ir.NewDesign()
	var queued []ir.ModuleHandle
	noopRoute := func(context.Context, ir.Request) ir.Response { return ir.NotProvidedResponse() }
	mark := func(h ir.ModuleHandle) { queued = append(queued, h) }

	adapter := frontend.NewRemoteAdapter("two-phase", false, clientConn, design, noopRoute, mark, logging.Noop())
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	leafResp, err := adapter.ElaborateSpecified(ctx, ir.Request{Mode: ir.ModeAnyModule, Name: ir.NewName("Leaf")})
	require.NoError(t, err)
	require.Equal(t, ir.RespSuccess, leafResp.Kind)

	wrapResp, err := adapter.ElaborateSpecified(ctx, ir.Request{Mode: ir.ModeAnyModule, Name: ir.NewName("Wrapper")})
	require.NoError(t, err)
	require.Equal(t, ir.RespSuccess, wrapResp.Kind)

	wrapper := design.Module(wrapResp.Module)
	require.NotNil(t, wrapper)
	require.Equal(t, 1, wrapper.CellCount())
	inst, ok := wrapper.Cell(0).(ir.InstanceCell)
	require.True(t, ok)
	assert.Equal(t, leafResp.Module, inst.Module, "the stand-in must resolve to the frontend's own prior insertion, not a fresh module")

	assert.Equal(t, []ir.ModuleHandle{wrapResp.Module}, queued, "auto-queue must enqueue only the newly inserted wrapper, not the stand-in")
}
