package wire

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// tempSessionIDMax bounds the random temporary session id chosen for
// the SYN packet.
const tempSessionIDMax = 1000

// handshakeAccepted is the first payload byte of a SYN reply that
// accepts the connection.
const handshakeAccepted = 0x02

// handshakeOffer is the first payload byte the client sends in its SYN.
const handshakeOffer = 0x01

// finalDumpAckSentinel is the literal value the device requires in the
// remote sequence number field of the ACK for the final (empty
// payload) state-dump packet. An opaque device constant; not derived.
const finalDumpAckSentinel = 0x61

// Transport establishes and maintains a switcher session: the
// handshake, steady-state reliability, and the liveness supervisor.
// It is the sole owner of the Session and the Datagram; callers only
// interact through SendCommand and the OnFields/OnLevel hooks.
type Transport struct {
	cfg     Config
	dg      *Datagram
	session *Session
	metrics *Metrics
	log     *logrus.Entry

	onFields func([]Field)
	onLevel  func(Level)

	pendingMu sync.Mutex
	pending   map[uint16]chan struct{}

	stop chan struct{}
	done chan struct{}
}

// Dial opens the datagram socket and returns a Transport with level
// Disconnected. Call Start to begin the supervisor and run the first
// handshake.
func Dial(ip string, cfg Config, metrics *Metrics, log *logrus.Entry) (*Transport, error) {
	cfg = cfg.withDefaults()
	dg, err := dialDatagram(ip, cfg.RemotePort, cfg, metrics, log)
	if err != nil {
		return nil, err
	}
	t := &Transport{
		cfg:     cfg,
		dg:      dg,
		session: &Session{},
		metrics: metrics,
		log:     log,
		pending: make(map[uint16]chan struct{}),
		stop:    make(chan struct{}),
	}
	dg.SetCallback(t.handleInbound)
	return t, nil
}

// OnFields registers the callback invoked with every TLV field batch
// decoded from an inbound packet, in arrival order per packet and in
// TLV order within a packet.
func (t *Transport) OnFields(fn func([]Field)) { t.onFields = fn }

// OnLevel registers the callback invoked whenever the session's level
// changes.
func (t *Transport) OnLevel(fn func(Level)) { t.onLevel = fn }

// Level returns the current session level.
func (t *Transport) Level() Level { return t.session.Level() }

// Start launches the supervisor loop, which performs the first
// handshake immediately and thereafter on every SupervisorTick while
// uninitialized or silent.
func (t *Transport) Start() {
	t.done = make(chan struct{})
	go t.supervisorLoop()
}

// Close shuts down the supervisor, if Start launched one, and the
// underlying socket.
func (t *Transport) Close() error {
	close(t.stop)
	if t.done != nil {
		<-t.done
	}
	return t.dg.Close()
}

func (t *Transport) supervisorLoop() {
	defer close(t.done)

	t.attemptHandshake()

	ticker := time.NewTicker(t.cfg.SupervisorTick)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-t.dg.Errs():
			t.session.markInvalid()
		case now := <-ticker.C:
			if !t.session.isInitialized() || t.session.silenceSince(now) > t.cfg.LivenessTimeout {
				if t.session.isInitialized() {
					// was ready, went silent
					t.session.reset()
					t.setLevel(Disconnected)
				}
				t.attemptHandshake()
			}
		}
	}
}

func (t *Transport) setLevel(l Level) {
	t.session.setLevel(l)
	if t.metrics != nil {
		t.metrics.SessionLevel.Set(float64(l))
	}
	if t.onLevel != nil {
		t.onLevel(l)
	}
}

// attemptHandshake runs the three-step session handshake. Any
// failure leaves the session Disconnected for the next supervisor
// tick to retry; it never panics and never blocks past its timeouts.
func (t *Transport) attemptHandshake() {
	if t.metrics != nil {
		t.metrics.Reconnects.Inc()
	}
	t.session.reset() // a fresh session starts its sequence counter over
	t.setLevel(Handshaking)

	// The receive loop enqueues every packet; steady state consumes
	// them through the callback while this queue just cycles. Discard
	// whatever a dead session left behind before speaking.
	replies := t.dg.Deliveries()
drain:
	for {
		select {
		case <-replies:
		default:
			break drain
		}
	}

	tempID := uint16(rand.Intn(tempSessionIDMax))

	syn := &Packet{
		Flags:     FlagSYN,
		SessionID: tempID,
		Payload:   []byte{handshakeOffer, 0, 0, 0, 0, 0, 0, 0},
	}
	if err := t.dg.Send(syn); err != nil {
		t.logErr(err)
		t.setLevel(Disconnected)
		return
	}

	reply, ok := t.await(replies, t.cfg.HandshakeTimeout)
	if !ok {
		t.logErr(ErrHandshakeTimeout)
		t.setLevel(Disconnected)
		return
	}
	if len(reply.Payload) == 0 || reply.Payload[0] != handshakeAccepted {
		t.logErr(ErrHandshakeRejected)
		t.setLevel(Disconnected)
		return
	}

	ack := &Packet{Flags: FlagACK, SessionID: tempID}
	if err := t.dg.Send(ack); err != nil {
		t.logErr(err)
		t.setLevel(Disconnected)
		return
	}
	t.setLevel(Initializing)

	// The first packet received after this ACK defines the real
	// session id; every client-originated packet after this point
	// carries it.
	var sessionID uint16
	sessionAssigned := false

	for {
		// each dump packet is one handshake step, bounded like the rest
		pkt, ok := t.await(replies, t.cfg.HandshakeTimeout)
		if !ok {
			t.logErr(ErrHandshakeTimeout)
			t.setLevel(Disconnected)
			return
		}
		if !sessionAssigned {
			sessionID = pkt.SessionID
			t.session.setID(sessionID)
			sessionAssigned = true
		}

		fields, err := UnpackFields(pkt.Payload)
		if err != nil {
			t.logErr(&ProtocolViolation{Reason: err.Error()})
			t.setLevel(Disconnected)
			return
		}
		if len(fields) > 0 && t.onFields != nil {
			t.onFields(fields)
		}

		reply := &Packet{Flags: FlagACK, SessionID: sessionID, AckNo: pkt.LocalSeqNo}
		if len(pkt.Payload) == 0 {
			// dump complete: the sentinel ACK for the final packet only
			reply.RemoteSeqNo = finalDumpAckSentinel
			if err := t.dg.Send(reply); err != nil {
				t.logErr(err)
				t.setLevel(Disconnected)
				return
			}
			t.session.touch(time.Now())
			t.session.markInitialized()
			t.setLevel(Ready)
			return
		}

		if err := t.dg.Send(reply); err != nil {
			t.logErr(err)
			t.setLevel(Disconnected)
			return
		}
		t.session.touch(time.Now())
	}
}

// await waits for the next packet on ch, or reports !ok on timeout.
func (t *Transport) await(ch <-chan *Packet, timeout time.Duration) (*Packet, bool) {
	select {
	case p := <-ch:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (t *Transport) logErr(err error) {
	if t.log != nil {
		t.log.WithError(err).Debug("handshake step failed")
	}
}

// handleInbound is the steady-state callback invoked by the Datagram's
// receive loop for every inbound packet. Until the session is Ready
// the handshake owns reception through the delivery queue, so packets
// are ignored here to avoid double processing.
func (t *Transport) handleInbound(pkt *Packet) {
	if t.session.Level() != Ready {
		return
	}
	t.session.touch(time.Now())

	if pkt.Flags&FlagRetransmission != 0 && t.metrics != nil {
		t.metrics.Retransmits.Inc()
	}

	if pkt.Flags&FlagACK != 0 {
		t.pendingMu.Lock()
		ch, ok := t.pending[pkt.AckNo]
		t.pendingMu.Unlock()
		if ok {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		return
	}

	fields, err := UnpackFields(pkt.Payload)
	if err != nil {
		t.logErr(&ProtocolViolation{Reason: err.Error()})
		t.session.markInvalid()
		return
	}
	if len(fields) > 0 && t.onFields != nil {
		t.onFields(fields)
	}

	if pkt.Flags&FlagReliable != 0 {
		reply := &Packet{Flags: FlagACK, SessionID: t.session.ID(), AckNo: pkt.LocalSeqNo}
		if err := t.dg.Send(reply); err != nil {
			t.logErr(err)
		}
	}
}

// SendCommand builds a reliable packet carrying a single TLV field
// for mnemonic/data, transmits it, and waits for the device's ACK. On
// timeout the session is marked for re-handshake on the next
// supervisor tick and a CommandTimeout error is returned.
func (t *Transport) SendCommand(mnemonic string, data []byte) error {
	if t.session.Level() != Ready {
		return ErrNoSession
	}

	seq := t.session.nextLocalSeq()
	ackCh := make(chan struct{}, 1)
	t.pendingMu.Lock()
	t.pending[seq] = ackCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, seq)
		t.pendingMu.Unlock()
	}()

	pkt := &Packet{
		Flags:      FlagReliable,
		SessionID:  t.session.ID(),
		LocalSeqNo: seq,
		Payload:    PackFields(NewField(mnemonic, data)),
	}

	start := time.Now()
	if err := t.dg.Send(pkt); err != nil {
		return err
	}

	deadline := start.Add(t.cfg.CommandAckTimeout)
	ticker := time.NewTicker(t.cfg.CommandPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ackCh:
			if t.metrics != nil {
				t.metrics.CommandLatency.Observe(time.Since(start).Seconds())
			}
			return nil
		case now := <-ticker.C:
			if now.After(deadline) {
				t.session.markInvalid()
				if t.metrics != nil {
					t.metrics.CommandTimeouts.Inc()
				}
				return &CommandTimeout{Mnemonic: mnemonic, LocalSeq: seq}
			}
		}
	}
}
