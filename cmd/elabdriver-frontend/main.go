// Command elabdriver-frontend is a demo out-of-process HDL frontend
// for the elaboration driver, wired over stdio exactly the way the
// teacher's cmd/dingo-lsp wires its stdin/stdout transport to gopls.
// It answers "Adder" requests with a width-parameterized adder
// (spec.md §8 scenario 1), proving out the remote transport end to
// end: driver spawns this process, asks it to elaborate a sub-module,
// and this process inserts the result back into the driver's design
// over frontend/insertIR.
package main

import (
	"context"
	"os"

	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/proto"
	"github.com/hdlforge/elabdriver/pkg/remotefrontend"
)

func main() {
	logLevel := os.Getenv("ELABDRIVER_FRONTEND_LOG")
	if logLevel == "" {
		logLevel = "info"
	}
	logger, base, err := logging.New(logLevel)
	if err != nil {
		os.Exit(1)
	}
	defer base.Sync()

	logic := &adderLogic{logger: logger}
	server := remotefrontend.NewServer(logic, logger)

	rwc := &stdinoutCloser{stdin: os.Stdin, stdout: os.Stdout}
	if err := server.Serve(context.Background(), rwc); err != nil {
		logger.Errorf("elabdriver-frontend: %v", err)
		os.Exit(1)
	}
}

// adderLogic implements remotefrontend.Logic with a single generated
// module: Adder(W), W defaulting to 8, ports a,b:input[W] and
// y:output[W+1].
type adderLogic struct {
	logger logging.Logger
}

func (a *adderLogic) Initialize(ctx context.Context, opts proto.InitializeParams) error {
	a.logger.Infof("initialize: target=%q errorOnUnknownModule=%v", opts.Target, opts.ErrorOnUnknownModule)
	return nil
}

func (a *adderLogic) ListExported(ctx context.Context) ([]ir.Name, bool) {
	return []ir.Name{ir.NewName("Adder")}, true
}

// ElaborateTop never contributes a top module; Adder only ever appears
// as a sub-module instantiation.
func (a *adderLogic) ElaborateTop(ctx context.Context, client *remotefrontend.Client) ([]ir.ModuleHandle, error) {
	return nil, nil
}

func (a *adderLogic) ElaborateSpecified(ctx context.Context, client *remotefrontend.Client, req ir.Request) (ir.Response, error) {
	if !req.Name.Matches(ir.NewName("Adder")) {
		return ir.NotProvidedResponse(), nil
	}

	width := 8
	for _, p := range req.Params {
		if (p.Name != "" && p.Name == "W") || (p.Name == "" && p.Position == 0) {
			if p.Value.Available {
				width = int(p.Value.Value.Int)
			}
		}
	}

	design := ir.NewDesign()
	m := ir.NewModule(ir.NewName("Adder"), ir.KindUser)
	m.AddProperParam(ir.ProperParam{Descriptor: ir.ParamDescriptor{
		Name: ir.NewName("W"), Kind: ir.KindInt, Default: refInt(8),
	}})
	m.AddPort(ir.Port{Name: ir.NewName("a"), Direction: ir.DirInput, Width: width})
	m.AddPort(ir.Port{Name: ir.NewName("b"), Direction: ir.DirInput, Width: width})
	m.AddPort(ir.Port{Name: ir.NewName("y"), Direction: ir.DirOutput, Width: width + 1})
	design.Insert(m)

	frag := proto.DesignToFragment(design)
	mapping, err := client.InsertIR(ctx, frag, nil, false)
	if err != nil {
		return ir.Response{}, err
	}

	driverHandle, ok := mapping[frag.Modules[0].FragmentID]
	if !ok {
		return ir.ElaborationErrorResponse(errNoHandle), nil
	}

	wv := ir.IntValue(int64(width))
	return ir.SuccessResponse(ir.ModuleHandle(driverHandle), []ir.NormalizedParam{{Value: &wv}}), nil
}

func refInt(i int64) *ir.Value {
	v := ir.IntValue(i)
	return &v
}

type noHandleErr string

func (e noHandleErr) Error() string { return string(e) }

const errNoHandle = noHandleErr("driver did not return a handle for the inserted Adder module")

// stdinoutCloser wraps os.Stdin/os.Stdout as an io.ReadWriteCloser,
// adapted from the teacher's cmd/dingo-lsp stdinoutCloser. Close is a
// no-op: a frontend subprocess's stdio belongs to the parent that
// spawned it, not to this process.
type stdinoutCloser struct {
	stdin  *os.File
	stdout *os.File
}

func (s *stdinoutCloser) Read(p []byte) (int, error)  { return s.stdin.Read(p) }
func (s *stdinoutCloser) Write(p []byte) (int, error) { return s.stdout.Write(p) }
func (s *stdinoutCloser) Close() error                { return nil }
