package proto

import "github.com/hdlforge/elabdriver/pkg/ir"

var modeToWire = map[ir.Mode]string{
	ir.ModeTopModule:        "top-module",
	ir.ModeProperModuleOnly: "proper-module-only",
	ir.ModeAnyModule:        "any-module",
}

var wireToMode = map[string]ir.Mode{
	"top-module":         ir.ModeTopModule,
	"proper-module-only": ir.ModeProperModuleOnly,
	"any-module":         ir.ModeAnyModule,
}

// RequestToWire converts a request the driver is sending to a remote
// frontend. Mode is always populated in this direction.
func RequestToWire(req ir.Request) ElaborateSpecifiedParams {
	return ElaborateSpecifiedParams{
		Mode:   modeToWire[req.Mode],
		Name:   NameToWire(req.Name),
		Params: ParamBindingsToWire(req.Params),
		Ports:  PortConnectionsToWire(req.Ports),
	}
}

// WireToRequest converts a frontend-initiated request arriving over the
// wire. Mode is absent on this variant (spec.md §6); the Router always
// drives such requests through its own two-round mode sequence, so the
// resulting Request's Mode field is left at its zero value and ignored
// by callers that route rather than dispatch it directly.
func WireToRequest(source string, p ElaborateSpecifiedParams) ir.Request {
	return ir.Request{
		Source: source,
		Name:   WireToName(p.Name),
		Params: WireToParamBindings(p.Params),
		Ports:  WireToPortConnections(p.Ports),
	}
}

func responseKindToWire(k ir.ResponseKind) string {
	switch k {
	case ir.RespNotProvided:
		return "not-provided"
	case ir.RespInvalidParameter:
		return "invalid-parameter"
	case ir.RespElaborationError:
		return "elaboration-error"
	case ir.RespSuccess:
		return "success"
	default:
		return "not-provided"
	}
}

// ResponseToWire converts a Response for transmission. iface is only
// populated for success responses addressed to remote frontends.
func ResponseToWire(resp ir.Response, iface *WireInterface) ElaborateSpecifiedResult {
	w := ElaborateSpecifiedResult{Kind: responseKindToWire(resp.Kind)}
	switch resp.Kind {
	case ir.RespElaborationError:
		if resp.Err != nil {
			w.Error = resp.Err.Error()
		}
	case ir.RespSuccess:
		w.ModuleHandle = int(resp.Module)
		w.NormalizedParams = make([]*WireValue, len(resp.NormalizedParams))
		for i, p := range resp.NormalizedParams {
			if p.Value == nil {
				continue
			}
			v := ValueToWire(*p.Value)
			w.NormalizedParams[i] = &v
		}
		w.Interface = iface
	}
	return w
}

func WireToResponse(w ElaborateSpecifiedResult) ir.Response {
	switch w.Kind {
	case "invalid-parameter":
		return ir.InvalidParameterResponse()
	case "elaboration-error":
		return ir.ElaborationErrorResponse(errString(w.Error))
	case "success":
		params := make([]ir.NormalizedParam, len(w.NormalizedParams))
		for i, v := range w.NormalizedParams {
			if v == nil {
				continue
			}
			val := WireToValue(*v)
			params[i] = ir.NormalizedParam{Value: &val}
		}
		return ir.SuccessResponse(ir.ModuleHandle(w.ModuleHandle), params)
	default:
		return ir.NotProvidedResponse()
	}
}

type wireError string

func (e wireError) Error() string { return string(e) }

func errString(s string) error {
	if s == "" {
		return nil
	}
	return wireError(s)
}
