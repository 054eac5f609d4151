// Package proto defines the wire messages exchanged between the
// elaboration driver and a remote (out-of-process) frontend: the
// driver→frontend and frontend→driver method sets of spec.md §6, JSON
// request/response payloads for go.lsp.dev/jsonrpc2, and a codec
// converting between these wire shapes and pkg/ir's in-memory types.
//
// go.lsp.dev/protocol and go.lsp.dev/uri are deliberately not reused
// here even though the teacher imports them alongside jsonrpc2: those
// two packages are LSP document/capability types (text documents,
// positions, server capabilities) that have no counterpart in this
// protocol — every message below is a type this package defines itself
// and serializes with github.com/segmentio/encoding/json, a drop-in,
// faster encoding/json replacement well suited to the potentially
// large "insert IR" fragment payloads.
package proto

// Method names, driver → frontend.
const (
	MethodInitialize         = "driver/initialize"
	MethodElaborateTop       = "driver/elaborateTop"
	MethodListExported       = "driver/listExported"
	MethodElaborateSpecified = "driver/elaborateSpecified"
)

// Method names, frontend → driver (remote transport only, besides
// elaborateSpecified which both directions use).
const (
	MethodInsertIR                    = "frontend/insertIR"
	MethodMarkForUnresolvedProcessing = "frontend/markForUnresolvedProcessing"
	MethodFrontendElaborateSpecified  = "frontend/elaborateSpecified"
)
