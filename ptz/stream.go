package ptz

import (
	"net"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// reconnectInterval is the supervisor's connect-attempt period.
const reconnectInterval = 3 * time.Second

// readBufferSize bounds one read() call; response frames are at most
// a few bytes but ACK and COMPLETION are often concatenated.
const readBufferSize = 256

// deliveryQueueSize bounds the Stream's message queue.
const deliveryQueueSize = 16

// Stream maintains one persistent TCP connection to a PTZ camera,
// reconnecting on a fixed schedule and publishing every arriving
// byte-burst as a discrete message.
type Stream struct {
	addr    string
	log     *logrus.Entry
	metrics *Metrics

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	deliver chan []byte

	connHandlersMu sync.Mutex
	connHandlers   map[xid.ID]func(bool)

	stop chan struct{}
	done chan struct{}
}

func newStream(addr string, log *logrus.Entry, metrics *Metrics) *Stream {
	return &Stream{
		addr:         addr,
		log:          log,
		metrics:      metrics,
		deliver:      make(chan []byte, deliveryQueueSize),
		connHandlers: make(map[xid.ID]func(bool)),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// OnConnectionStatus subscribes to connect/disconnect transitions.
func (s *Stream) OnConnectionStatus(fn func(connected bool)) xid.ID {
	id := xid.New()
	s.connHandlersMu.Lock()
	s.connHandlers[id] = fn
	s.connHandlersMu.Unlock()
	return id
}

// Unsubscribe removes a connection status subscriber.
func (s *Stream) Unsubscribe(id xid.ID) {
	s.connHandlersMu.Lock()
	delete(s.connHandlers, id)
	s.connHandlersMu.Unlock()
}

func (s *Stream) fireConnStatus(connected bool) {
	s.connHandlersMu.Lock()
	handlers := make([]func(bool), 0, len(s.connHandlers))
	for _, fn := range s.connHandlers {
		handlers = append(handlers, fn)
	}
	s.connHandlersMu.Unlock()
	for _, fn := range handlers {
		fn(connected)
	}
}

// Start launches the reconnect supervisor.
func (s *Stream) Start() {
	go s.superviseLoop()
}

// Close stops the supervisor and any live connection.
func (s *Stream) Close() error {
	close(s.stop)
	<-s.done
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Connected reports whether the stream currently has a live socket.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Stream) superviseLoop() {
	defer close(s.done)

	s.connect()

	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.Connected() {
				s.connect()
			}
		}
	}
}

func (s *Stream) connect() {
	conn, err := net.DialTimeout("tcp", s.addr, reconnectInterval)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).Debug("ptz connect failed")
		}
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Reconnects.Inc()
	}
	s.fireConnStatus(true)

	go s.readLoop(conn)
}

func (s *Stream) readLoop(conn net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			conn.Close()
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connected = false
			}
			s.mu.Unlock()
			if s.log != nil {
				s.log.WithError(ErrConnectionLost).Debug("ptz stream closed")
			}
			s.fireConnStatus(false)
			return
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		select {
		case s.deliver <- msg:
		default:
			select {
			case <-s.deliver:
			default:
			}
			s.deliver <- msg
		}
	}
}

// drainStale empties the delivery queue of bytes left over from a
// prior command.
func (s *Stream) drainStale() {
	for {
		select {
		case <-s.deliver:
		default:
			return
		}
	}
}

// write sends a command frame on the live connection.
func (s *Stream) write(frame []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write(frame)
	return err
}

// Restart forces the current connection closed so the supervisor's
// read loop observes the failure and schedules a reconnect.
func (s *Stream) Restart() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// readResponse waits up to timeout for the next delivered byte-burst.
func (s *Stream) readResponse(timeout time.Duration) ([]byte, bool) {
	select {
	case b := <-s.deliver:
		return b, true
	case <-time.After(timeout):
		return nil, false
	}
}
