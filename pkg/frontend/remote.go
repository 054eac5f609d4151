package frontend

import (
	"context"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"

	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/proto"
)

// RemoteAdapter implements Frontend over a jsonrpc2 connection to an
// out-of-process frontend, adapted from the teacher's gopls subprocess
// client (pkg/lsp/gopls_client.go) and its server-side reply dispatch
// (pkg/lsp/server.go). Unlike gopls, the remote peer here is itself a
// caller: it may issue insert-IR, mark-for-unresolved-processing and
// elaborate-specified requests back to the driver at any point while
// one of the driver's own calls to it is outstanding (spec.md §9
// "Cyclic ownership between driver and frontend"), so both directions
// share one jsonrpc2.Conn and are multiplexed by the library's own
// correlation IDs.
type RemoteAdapter struct {
	id         string
	topCapable bool
	conn       jsonrpc2.Conn
	logger     logging.Logger

	design *ir.Design
	route  RouteFunc
	mark   func(ir.ModuleHandle)
}

// NewRemoteAdapter wraps rwc (typically a subprocess's stdin/stdout, or
// a socket) in a jsonrpc2 connection and starts dispatching the peer's
// re-entrant requests. design/route/mark give the handler the same
// driver access a BuiltinAdapter would construct per call, except here
// it is shared for the remote frontend's entire lifetime: a remote
// frontend cannot be trusted to only touch the driver's IR lexically
// within one call, as jsonrpc2 interleaves reads, but grabs no lock
// beyond what Design and the Resolver's own synchronization provide.
func NewRemoteAdapter(id string, topCapable bool, rwc io.ReadWriteCloser, design *ir.Design, route RouteFunc, mark func(ir.ModuleHandle), logger logging.Logger) *RemoteAdapter {
	a := &RemoteAdapter{
		id:         id,
		topCapable: topCapable,
		design:     design,
		route:      route,
		mark:       mark,
		logger:     logger,
	}

	stream := jsonrpc2.NewStream(rwc)
	a.conn = jsonrpc2.NewConn(stream)
	a.conn.Go(context.Background(), a.handle())
	return a
}

func (a *RemoteAdapter) ID() string       { return a.id }
func (a *RemoteAdapter) TopCapable() bool { return a.topCapable }

// Close shuts down the underlying connection.
func (a *RemoteAdapter) Close() error { return a.conn.Close() }

func (a *RemoteAdapter) Initialize(ctx context.Context, opts InitOptions) error {
	params := proto.InitializeParams{
		Target:               opts.Target,
		ErrorOnUnknownModule: opts.ErrorOnUnknownModule,
		CorrelationID:        proto.NewCorrelationID(),
	}
	var result proto.InitializeResult
	_, err := a.conn.Call(ctx, proto.MethodInitialize, params, &result)
	if err != nil {
		return fmt.Errorf("frontend %q: initialize: %w", a.id, err)
	}
	return nil
}

func (a *RemoteAdapter) ListExported(ctx context.Context) ([]ir.Name, bool) {
	params := proto.ListExportedParams{CorrelationID: proto.NewCorrelationID()}
	var result proto.ListExportedResult
	_, err := a.conn.Call(ctx, proto.MethodListExported, params, &result)
	if err != nil {
		a.logger.Warnf("frontend %q: listExported: %v", a.id, err)
		return nil, false
	}
	if !result.Available {
		return nil, false
	}
	names := make([]ir.Name, len(result.Names))
	for i, n := range result.Names {
		names[i] = proto.WireToName(n)
	}
	return names, true
}

func (a *RemoteAdapter) ElaborateTop(ctx context.Context) ([]ir.ModuleHandle, error) {
	params := proto.ElaborateTopParams{CorrelationID: proto.NewCorrelationID()}
	var result proto.ElaborateTopResult
	_, err := a.conn.Call(ctx, proto.MethodElaborateTop, params, &result)
	if err != nil {
		return nil, fmt.Errorf("frontend %q: elaborateTop: %w", a.id, err)
	}
	handles := make([]ir.ModuleHandle, len(result.ModuleHandles))
	for i, h := range result.ModuleHandles {
		handles[i] = ir.ModuleHandle(h)
	}
	return handles, nil
}

func (a *RemoteAdapter) ElaborateSpecified(ctx context.Context, req ir.Request) (ir.Response, error) {
	params := proto.RequestToWire(req)
	params.CorrelationID = proto.NewCorrelationID()
	var result proto.ElaborateSpecifiedResult
	_, err := a.conn.Call(ctx, proto.MethodElaborateSpecified, params, &result)
	if err != nil {
		return ir.Response{}, fmt.Errorf("frontend %q: elaborateSpecified: %w", a.id, err)
	}
	return proto.WireToResponse(result), nil
}

// handle builds the handler that answers requests the remote frontend
// initiates: insertIR, markForUnresolvedProcessing, and its own
// recursive elaborateSpecified. AsyncHandler moves dispatch off the
// connection's read loop: a recursive elaborateSpecified routed back
// into this same frontend must be able to receive its response while
// the handler that triggered it is still running.
func (a *RemoteAdapter) handle() jsonrpc2.Handler {
	return jsonrpc2.AsyncHandler(jsonrpc2.ReplyHandler(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case proto.MethodInsertIR:
			return a.handleInsertIR(ctx, reply, req)
		case proto.MethodMarkForUnresolvedProcessing:
			return a.handleMarkForUnresolvedProcessing(ctx, reply, req)
		case proto.MethodFrontendElaborateSpecified:
			return a.handleFrontendElaborateSpecified(ctx, reply, req)
		default:
			a.logger.Warnf("frontend %q: unknown method %q", a.id, req.Method())
			return reply(ctx, nil, fmt.Errorf("unknown method %q", req.Method()))
		}
	}))
}

func (a *RemoteAdapter) handleInsertIR(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params proto.InsertIRParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("insertIR: bad params: %w", err))
	}

	mapping, newHandles, err := proto.IngestFragment(a.design, params.Design, params.StandIns)
	if err != nil {
		return reply(ctx, nil, fmt.Errorf("insertIR: %w", err))
	}

	if params.AutoQueue {
		for _, h := range newHandles {
			a.mark(h)
		}
	}

	return reply(ctx, proto.InsertIRResult{Mapping: mapping}, nil)
}

func (a *RemoteAdapter) handleMarkForUnresolvedProcessing(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params proto.MarkForUnresolvedProcessingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("markForUnresolvedProcessing: bad params: %w", err))
	}
	a.mark(ir.ModuleHandle(params.ModuleHandle))
	return reply(ctx, nil, nil)
}

func (a *RemoteAdapter) handleFrontendElaborateSpecified(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params proto.ElaborateSpecifiedParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("elaborateSpecified: bad params: %w", err))
	}

	ireq := proto.WireToRequest(a.id, params)
	resp := a.route(ctx, ireq)

	var iface *proto.WireInterface
	if resp.Kind == ir.RespSuccess {
		if m := a.design.Module(resp.Module); m != nil {
			iface = moduleInterface(m)
		}
	}

	return reply(ctx, proto.ResponseToWire(resp, iface), nil)
}

// moduleInterface builds the serialized interface a remote frontend
// needs to reference an elaborated module as a stand-in later: its
// proper-parameter descriptors and its ports, without exposing any
// cell (§6 "[remote only] serialized interface").
func moduleInterface(m *ir.Module) *proto.WireInterface {
	iface := &proto.WireInterface{}
	for _, p := range m.ProperParams() {
		iface.ProperParams = append(iface.ProperParams, proto.ParamDescriptorToWire(p.Descriptor))
	}
	for _, p := range m.Ports() {
		iface.Ports = append(iface.Ports, proto.PortToWire(p))
	}
	return iface
}
