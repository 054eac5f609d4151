package e2e

import (
	"context"

	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
)

// scriptedFrontend is a frontend.BuiltinFrontend whose behavior is
// supplied per call as closures, letting each scenario describe only
// the behavior it actually exercises.
type scriptedFrontend struct {
	id         string
	topCapable bool

	onElaborateTop       func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error)
	onElaborateSpecified func(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error)
	onListExported       func(ctx context.Context, access frontend.BuiltinAccess) ([]ir.Name, bool)
}

func (s *scriptedFrontend) ID() string       { return s.id }
func (s *scriptedFrontend) TopCapable() bool { return s.topCapable }

func (s *scriptedFrontend) Initialize(context.Context, frontend.BuiltinAccess, frontend.InitOptions) error {
	return nil
}

func (s *scriptedFrontend) ListExported(ctx context.Context, access frontend.BuiltinAccess) ([]ir.Name, bool) {
	if s.onListExported != nil {
		return s.onListExported(ctx, access)
	}
	return nil, true
}

func (s *scriptedFrontend) ElaborateTop(ctx context.Context, access frontend.BuiltinAccess) ([]ir.ModuleHandle, error) {
	if s.onElaborateTop != nil {
		return s.onElaborateTop(ctx, access)
	}
	return nil, nil
}

func (s *scriptedFrontend) ElaborateSpecified(ctx context.Context, access frontend.BuiltinAccess, req ir.Request) (ir.Response, error) {
	if s.onElaborateSpecified != nil {
		return s.onElaborateSpecified(ctx, access, req)
	}
	return ir.NotProvidedResponse(), nil
}

func refInt(i int64) *ir.Value {
	v := ir.IntValue(i)
	return &v
}
