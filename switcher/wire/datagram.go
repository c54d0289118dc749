package wire

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Datagram owns a single UDP socket bound to an ephemeral local port,
// directed at the device's fixed port. It serializes outgoing packets
// and runs a background receive loop that both enqueues parsed packets
// onto a bounded delivery queue and invokes a subscriber callback
// exactly once per inbound datagram.
type Datagram struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	log    *logrus.Entry

	metrics *Metrics

	deliver chan *Packet
	errs    chan error

	callback atomic.Value // func(*Packet)

	closeOnce sync.Once
	done      chan struct{}
}

// dialDatagram opens the UDP socket toward ip:port and starts the
// receive loop. Wire tracing is logged at Trace level, gated by the
// logger's own level.
func dialDatagram(ip string, port int, cfg Config, metrics *Metrics, log *logrus.Entry) (*Datagram, error) {
	cfg = cfg.withDefaults()
	if port == 0 {
		port = cfg.RemotePort
	}

	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return nil, &NetworkFailure{Op: "resolve", Err: err}
	}

	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, &NetworkFailure{Op: "dial", Err: err}
	}

	d := &Datagram{
		conn:    conn,
		remote:  remote,
		log:     log,
		metrics: metrics,
		deliver: make(chan *Packet, cfg.DeliveryQueueSize),
		errs:    make(chan error, 8),
		done:    make(chan struct{}),
	}
	d.callback.Store(func(*Packet) {})
	go d.receiveLoop()
	return d, nil
}

// SetCallback installs the function invoked for every inbound packet,
// in addition to the packet being queued on Deliveries.
func (d *Datagram) SetCallback(fn func(*Packet)) {
	d.callback.Store(fn)
}

// Deliveries returns the ordered delivery queue the transport layer
// drains during handshake.
func (d *Datagram) Deliveries() <-chan *Packet { return d.deliver }

// Errs reports ConnectionLost once the receive loop exits.
func (d *Datagram) Errs() <-chan error { return d.errs }

// Send serializes p and transmits it, failing with NetworkFailure if
// the OS rejects the send.
func (d *Datagram) Send(p *Packet) error {
	b, err := p.Marshal()
	if err != nil {
		return err
	}
	if _, err := d.conn.Write(b); err != nil {
		return &NetworkFailure{Op: "send", Err: err}
	}
	if d.metrics != nil {
		d.metrics.PacketsSent.Inc()
	}
	if d.log != nil {
		d.log.WithField("packet", p.String()).Trace("sent")
	}
	return nil
}

// receiveLoop blocks on datagram reception until the socket is closed.
func (d *Datagram) receiveLoop() {
	defer close(d.done)

	buf := make([]byte, MaxPacketSize)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			select {
			case d.errs <- ErrConnLost:
			default:
			}
			return
		}

		p, err := Unmarshal(buf[:n])
		if err != nil {
			if d.metrics != nil {
				d.metrics.MalformedDropped.Inc()
			}
			if d.log != nil {
				d.log.WithError(err).Warn("dropped malformed datagram")
			}
			continue
		}

		if d.metrics != nil {
			d.metrics.PacketsReceived.Inc()
		}
		if d.log != nil {
			d.log.WithField("packet", p.String()).Trace("received")
		}

		select {
		case d.deliver <- p:
		default:
			// delivery queue full; drop the oldest to make room so a
			// slow handshake drain never wedges the receive loop
			select {
			case <-d.deliver:
			default:
			}
			d.deliver <- p
		}

		if cb, ok := d.callback.Load().(func(*Packet)); ok {
			cb(p)
		}
	}
}

// Close shuts down the socket, causing the receive loop to exit.
func (d *Datagram) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.conn.Close()
		<-d.done
	})
	return err
}
