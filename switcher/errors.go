package switcher

import "github.com/broadcastkit/corectl/switcher/wire"

// Re-exported so callers of this package never need to import the wire
// package directly to classify a failure; lower layers convert raw
// socket and parse faults into these shapes.
type (
	NetworkFailure    = wire.NetworkFailure
	ProtocolViolation = wire.ProtocolViolation
	CommandTimeout    = wire.CommandTimeout
)

var (
	ErrNoSession = wire.ErrNoSession
)
