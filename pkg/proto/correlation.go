package proto

import "github.com/rs/xid"

// NewCorrelationID mints a correlation ID for one driver→frontend
// message. Distinct from jsonrpc2's own call ID, which only has to be
// unique for the lifetime of one Conn: a correlation ID is sortable and
// globally unique, so a frontend log line (or a driver-side trace) can
// name the exact request that produced it even across a frontend
// restart, and even if the transport swaps away from jsonrpc2 entirely.
func NewCorrelationID() string {
	return xid.New().String()
}
