// Package remotefrontend implements the frontend side of the wire
// protocol defined by pkg/proto: the half of spec.md §6 that a
// standalone HDL frontend process, rather than the driver, speaks.
// Like pkg/frontend.RemoteAdapter on the driver side, it is adapted
// from the teacher's pkg/lsp.Server (ReplyHandler dispatch over a
// single jsonrpc2.Conn) and pkg/lsp.GoplsClient (typed wrappers around
// conn.Call for the calls this side initiates).
package remotefrontend

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

// Logic is implemented by a concrete HDL frontend's module-generation
// code. A Server dispatches every driver-initiated method to it,
// supplying a Client for the calls it may need to make back into the
// driver (insert IR, mark for unresolved processing, or recursively
// request a sub-module).
type Logic interface {
	Initialize(ctx context.Context, opts proto.InitializeParams) error
	ListExported(ctx context.Context) (names []ir.Name, available bool)
	ElaborateTop(ctx context.Context, client *Client) ([]ir.ModuleHandle, error)
	ElaborateSpecified(ctx context.Context, client *Client, req ir.Request) (ir.Response, error)
}

// Server answers a driver's calls over one jsonrpc2.Conn, dispatching
// to Logic and handing it a Client scoped to that connection.
type Server struct {
	logic  Logic
	logger logging.Logger
	conn   jsonrpc2.Conn
}

// NewServer builds a Server bound to logic, not yet attached to any
// connection.
func NewServer(logic Logic, logger logging.Logger) *Server {
	return &Server{logic: logic, logger: logger}
}

// Serve wraps rwc (typically stdin/stdout) in a jsonrpc2 connection,
// starts dispatching driver requests, and blocks until the connection
// closes.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	s.conn = jsonrpc2.NewConn(stream)
	s.conn.Go(ctx, s.handler())
	<-s.conn.Done()
	return nil
}

func (s *Server) client() *Client { return &Client{conn: s.conn} }

// handler dispatches driver requests. AsyncHandler keeps the read loop
// free: Logic blocks on Client calls back into the driver (insertIR,
// recursive elaborateSpecified) mid-request, and those responses arrive
// over this same connection.
func (s *Server) handler() jsonrpc2.Handler {
	return jsonrpc2.AsyncHandler(jsonrpc2.ReplyHandler(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debugf("remotefrontend: received %s", req.Method())
		switch req.Method() {
		case proto.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case proto.MethodListExported:
			return s.handleListExported(ctx, reply, req)
		case proto.MethodElaborateTop:
			return s.handleElaborateTop(ctx, reply, req)
		case proto.MethodElaborateSpecified:
			return s.handleElaborateSpecified(ctx, reply, req)
		default:
			return reply(ctx, nil, fmt.Errorf("unknown method %q", req.Method()))
		}
	}))
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params proto.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("initialize: bad params: %w", err))
	}
	if err := s.logic.Initialize(ctx, params); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, proto.InitializeResult{}, nil)
}

func (s *Server) handleListExported(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	names, available := s.logic.ListExported(ctx)
	result := proto.ListExportedResult{Available: available}
	for _, n := range names {
		result.Names = append(result.Names, proto.NameToWire(n))
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleElaborateTop(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	handles, err := s.logic.ElaborateTop(ctx, s.client())
	if err != nil {
		return reply(ctx, nil, err)
	}
	result := proto.ElaborateTopResult{ModuleHandles: make([]int, len(handles))}
	for i, h := range handles {
		result.ModuleHandles[i] = int(h)
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleElaborateSpecified(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params proto.ElaborateSpecifiedParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("elaborateSpecified: bad params: %w", err))
	}
	ireq := proto.WireToRequest("", params)
	resp, err := s.logic.ElaborateSpecified(ctx, s.client(), ireq)
	if err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, proto.ResponseToWire(resp, nil), nil)
}

// Client lets Logic call back into the driver while answering one of
// its requests: insert an IR fragment, mark a module for unresolved
// processing, or recursively ask the driver to route a sub-module
// request (spec.md §9 "Cyclic ownership between driver and frontend").
type Client struct {
	conn jsonrpc2.Conn
}

// InsertIR hands design to the driver, returning the fragment-ID to
// driver-handle mapping (stand-ins included).
func (c *Client) InsertIR(ctx context.Context, frag proto.WireFragment, standIns map[string]int, autoQueue bool) (map[string]int, error) {
	params := proto.InsertIRParams{Design: frag, StandIns: standIns, AutoQueue: autoQueue}
	var result proto.InsertIRResult
	_, err := c.conn.Call(ctx, proto.MethodInsertIR, params, &result)
	if err != nil {
		return nil, fmt.Errorf("insertIR: %w", err)
	}
	return result.Mapping, nil
}

// MarkForUnresolvedProcessing queues a module the driver already knows
// about (by handle) for the Resolver to sweep.
func (c *Client) MarkForUnresolvedProcessing(ctx context.Context, handle ir.ModuleHandle) error {
	params := proto.MarkForUnresolvedProcessingParams{ModuleHandle: int(handle)}
	var result struct{}
	_, err := c.conn.Call(ctx, proto.MethodMarkForUnresolvedProcessing, params, &result)
	if err != nil {
		return fmt.Errorf("markForUnresolvedProcessing: %w", err)
	}
	return nil
}

// ElaborateSpecified recursively asks the driver to route a sub-module
// request through its full two-round router, the same capability a
// built-in frontend gets via frontend.RouteFunc.
func (c *Client) ElaborateSpecified(ctx context.Context, req ir.Request) (ir.Response, error) {
	params := proto.RequestToWire(req)
	params.Mode = "" // frontend-initiated requests omit Mode, spec.md §6
	var result proto.ElaborateSpecifiedResult
	_, err := c.conn.Call(ctx, proto.MethodFrontendElaborateSpecified, params, &result)
	if err != nil {
		return ir.Response{}, fmt.Errorf("elaborateSpecified: %w", err)
	}
	return proto.WireToResponse(result), nil
}
