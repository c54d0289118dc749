// Package switcher implements the User Layer of the video switcher
// client: decoded domain state, operator commands, and a push-style
// event bus, built on top of the wire package's transport.
package switcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/broadcastkit/corectl/switcher/wire"
)

// Config holds Client-level options layered on top of the wire
// transport's own Config.
type Config struct {
	Wire wire.Config

	// AudioMinDB is the configured minimum audio level, used to derive
	// the decibel floor reported for a raw-zero sample (floor =
	// AudioMinDB + 1). Default -96.
	AudioMinDB float64

	Log     *logrus.Entry
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.AudioMinDB == 0 {
		c.AudioMinDB = -96
	}
	return c
}

// Client is the Switcher User Layer: the last-known state, the
// operator-facing command API, and the event bus subscribers observe.
// Composition owns exactly one Client per physical switcher, with no
// state shared across instances.
type Client struct {
	cfg       Config
	transport *wire.Transport
	state     *State
	bus       *EventBus
}

// NewClient constructs a Client without connecting. Call Initialize to
// dial the device and start the handshake/supervisor.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:   cfg.withDefaults(),
		state: newState(),
		bus:   newEventBus(),
	}
}

// Events returns the subscription surface for this client.
func (c *Client) Events() *EventBus { return c.bus }

// State returns the last-known observable switcher state.
func (c *Client) State() *State { return c.state }

// Initialize dials the device at ip and begins the handshake and
// liveness supervisor. It returns once the socket is open; reaching
// the Ready level is reported asynchronously via OnConnectionStatus.
func (c *Client) Initialize(ip string) error {
	var metrics *wire.Metrics
	if c.cfg.Metrics != nil {
		metrics = c.cfg.Metrics.wire
	}

	transport, err := wire.Dial(ip, c.cfg.Wire, metrics, c.cfg.Log)
	if err != nil {
		return err
	}
	c.transport = transport

	transport.OnFields(func(fields []wire.Field) {
		for _, f := range fields {
			c.dispatchField(f)
		}
	})
	transport.OnLevel(func(l wire.Level) {
		connected := l == wire.Ready
		if connected == c.state.Connected() {
			return
		}
		c.state.setConnected(connected)
		for _, fn := range c.bus.connection.snapshot() {
			fn(connected)
		}
	})

	transport.Start()
	return nil
}

// Close shuts down the transport and its socket.
func (c *Client) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

func (c *Client) audioFloorDB() float64 { return c.cfg.AudioMinDB + 1 }

func (c *Client) send(mnemonic string, data []byte) error {
	if c.transport == nil {
		return wire.ErrNoSession
	}
	return c.transport.SendCommand(mnemonic, data)
}

// SetProgram selects the program input by index.
func (c *Client) SetProgram(index int) error { return c.send("CPgI", encodeProgram(index)) }

// SetPreview selects the preview input by index.
func (c *Client) SetPreview(index int) error { return c.send("CPvI", encodePreview(index)) }

// Cut performs an immediate program/preview swap.
func (c *Client) Cut() error { return c.send("DCut", encodeCut()) }

// Auto starts an automatic transition.
func (c *Client) Auto() error { return c.send("DAut", encodeAuto()) }

// FadeToBlack triggers a fade-to-black transition.
func (c *Client) FadeToBlack() error { return c.send("FtbA", encodeFadeToBlack()) }

// SetTransitionPosition sets the manual transition lever position,
// clamped to [0, 9999].
func (c *Client) SetTransitionPosition(position int) error {
	return c.send("CTPs", encodeTransitionPosition(position))
}

// SetKeyerOnAir toggles the upstream keyer.
func (c *Client) SetKeyerOnAir(on bool) error { return c.send("CKOn", encodeKeyerOnAir(on)) }

// EnableLiveAudio toggles the live-audio level stream.
func (c *Client) EnableLiveAudio(enable bool) error { return c.send("SALN", encodeLiveAudio(enable)) }

// SetMasterAudio sets the master audio level as a fraction in [0, 1].
func (c *Client) SetMasterAudio(fraction float64) error {
	return c.send("CAMM", encodeMasterAudio(fraction))
}

// SetAux selects the aux bus source by index.
func (c *Client) SetAux(index int) error { return c.send("CAuS", encodeAux(index)) }

// Metrics holds the optional Prometheus instrumentation for a Client,
// wrapping the wire package's own collector set so callers need not
// import wire directly.
type Metrics struct {
	wire *wire.Metrics
}

// NewMetrics builds the Metrics for one switcher instance.
func NewMetrics(namespace string, constLabels prometheus.Labels) *Metrics {
	return &Metrics{wire: wire.NewMetrics(namespace, constLabels)}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error { return m.wire.Register(reg) }
