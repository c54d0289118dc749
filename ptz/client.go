// Package ptz implements the Stream and Command layers of the PTZ
// camera client: a persistent, auto-reconnecting TCP connection and a
// serialized pan/tilt/zoom/focus/preset command API with ACK and
// COMPLETION validation.
package ptz

import (
	"bytes"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	ackTimeout        = 1 * time.Second
	completionTimeout = 3 * time.Second
)

// Client is one PTZ camera connection. The host application owns
// zero-or-more Clients, one per configured camera, each running
// independently.
type Client struct {
	stream  *Stream
	metrics *Metrics

	panMax, tiltMax int

	mu        sync.Mutex // serializes command execution
	lastFrame []byte
}

// NewClient constructs a Client without connecting. Call Start to
// begin the stream supervisor. Speed ceilings default to the device
// family's maxima; see SetSpeedLimits for models with lower ones.
func NewClient(addr string, log *logrus.Entry, metrics *Metrics) *Client {
	return &Client{
		stream:  newStream(addr, log, metrics),
		metrics: metrics,
		panMax:  maxPanTiltSpeed,
		tiltMax: maxPanTiltSpeed,
	}
}

// SetSpeedLimits lowers the pan/tilt speed ceilings for camera models
// that reject the protocol maximum of 17. Values are clamped to
// [1, 17]. Not safe to call concurrently with commands.
func (c *Client) SetSpeedLimits(panMax, tiltMax int) {
	c.panMax = clampSpeedLimit(panMax)
	c.tiltMax = clampSpeedLimit(tiltMax)
}

// Start launches the stream's reconnect supervisor.
func (c *Client) Start() { c.stream.Start() }

// Close stops the supervisor and any live connection.
func (c *Client) Close() error { return c.stream.Close() }

// Connected reports whether the stream currently has a live socket.
func (c *Client) Connected() bool { return c.stream.Connected() }

// OnConnectionStatus subscribes to connect/disconnect transitions.
func (c *Client) OnConnectionStatus(fn func(connected bool)) xid.ID {
	return c.stream.OnConnectionStatus(fn)
}

// Unsubscribe removes a connection status subscriber.
func (c *Client) Unsubscribe(id xid.ID) { c.stream.Unsubscribe(id) }

// PanTilt moves at the given normalized pan/tilt magnitudes in
// [-1, 1]; (0, 0) issues STOP. Returns false on any failure.
func (c *Client) PanTilt(pan, tilt float64) bool {
	return c.execute(panTiltFrame(pan, tilt, c.panMax, c.tiltMax))
}

// Zoom moves at the given normalized magnitude in [-1, 1].
func (c *Client) Zoom(z float64) bool { return c.execute(zoomFrame(z)) }

// Focus moves at the given normalized magnitude in [-1, 1].
func (c *Client) Focus(f float64) bool { return c.execute(focusFrame(f)) }

// SavePreset stores the current position under index, in [0, 15].
func (c *Client) SavePreset(index int) bool { return c.execute(savePresetFrame(index)) }

// RecallPreset moves to the position stored under index, in [0, 15].
func (c *Client) RecallPreset(index int) bool { return c.execute(recallPresetFrame(index)) }

// execute serializes one command: drain stale bytes, write the frame,
// validate ACK within ackTimeout and COMPLETION within an additional
// completionTimeout unless already present in the ACK read. An
// identical consecutive frame is suppressed as a no-op.
func (c *Client) execute(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stream.Connected() {
		return c.fail("connect", ErrNotConnected)
	}

	if c.lastFrame != nil && bytes.Equal(frame, c.lastFrame) {
		return true
	}

	start := time.Now()
	c.stream.drainStale()

	if err := c.stream.write(frame); err != nil {
		return c.fail("write", err)
	}

	// the 3 ACK bytes may themselves arrive split across reads, so
	// accumulate bursts until at least a full frame is in hand
	deadline := time.Now().Add(ackTimeout)
	var ackBuf []byte
	for len(ackBuf) < 3 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.fail("ack", ErrTimeout)
		}
		chunk, ok := c.stream.readResponse(remaining)
		if !ok {
			return c.fail("ack", ErrTimeout)
		}
		ackBuf = append(ackBuf, chunk...)
	}
	if !isACK(ackBuf) {
		return c.fail("ack", ErrMalformedResponse)
	}

	rest := ackBuf[3:]
	deadline = time.Now().Add(completionTimeout)
	for !isCompletion(rest) {
		if len(rest) >= 3 {
			return c.fail("completion", ErrMalformedResponse)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.fail("completion", ErrTimeout)
		}
		more, ok := c.stream.readResponse(remaining)
		if !ok {
			return c.fail("completion", ErrTimeout)
		}
		rest = append(rest, more...)
	}

	c.lastFrame = frame
	if c.metrics != nil {
		c.metrics.CommandLatency.Observe(time.Since(start).Seconds())
	}
	return true
}

// fail records the failure, restarts the stream, and returns false.
func (c *Client) fail(stage string, err error) bool {
	cf := &CommandFailure{Stage: stage, Err: err}
	if c.stream.log != nil {
		c.stream.log.WithError(cf).Debug("ptz command failed")
	}
	if c.metrics != nil {
		c.metrics.CommandFailures.Inc()
	}
	c.lastFrame = nil
	c.stream.Restart()
	return false
}
