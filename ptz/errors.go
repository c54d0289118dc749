package ptz

import (
	"errors"
	"fmt"
)

// ErrNotConnected signals a command attempted while the stream layer
// has no live connection.
var ErrNotConnected = errors.New("ptz: not connected")

// ErrConnectionLost signals the stream's socket closing or the remote
// end closing it (a zero-byte read).
var ErrConnectionLost = errors.New("ptz: connection lost")

// CommandFailure reports why a pan/tilt/zoom/focus/preset command
// failed: no live connection, a write error, or a malformed or missing
// ACK/COMPLETION frame.
type CommandFailure struct {
	Stage string // "connect", "write", "ack", or "completion"
	Err   error
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("ptz: command failed at %s: %v", e.Stage, e.Err)
}

func (e *CommandFailure) Unwrap() error { return e.Err }

// ErrTimeout signals no response frame arrived within the stage's
// deadline.
var ErrTimeout = errors.New("ptz: response timed out")

// ErrMalformedResponse signals a response frame that did not match the
// expected ACK or COMPLETION pattern.
var ErrMalformedResponse = errors.New("ptz: malformed response frame")
