package ptz

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockCamera accepts one TCP connection and lets the test script
// exactly what bytes to reply with, standing in for the device.
type mockCamera struct {
	t        *testing.T
	listener net.Listener
	accepted chan net.Conn
}

func newMockCamera(t *testing.T) *mockCamera {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	m := &mockCamera{t: t, listener: ln, accepted: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			m.accepted <- conn
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return m
}

func (m *mockCamera) addr() string { return m.listener.Addr().String() }

func (m *mockCamera) conn(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-m.accepted:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("camera never accepted a connection")
		return nil
	}
}

func TestClientPanTiltSucceedsOnAckAndCompletion(t *testing.T) {
	cam := newMockCamera(t)
	c := NewClient(cam.addr(), nil, nil)
	c.Start()
	defer c.Close()

	conn := cam.conn(t)
	defer conn.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	frames := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		frames <- buf[:n]
		conn.Write([]byte{0x90, 0x41, 0xFF, 0x90, 0x51, 0xFF})
	}()

	ok := c.PanTilt(1, 0)
	require.True(t, ok)

	select {
	case frame := <-frames:
		require.Len(t, frame, 9)
		require.Equal(t, byte(0x81), frame[0])
		require.Equal(t, byte(0xFF), frame[8])
	case <-time.After(time.Second):
		t.Fatal("camera never saw the command frame")
	}
}

func TestClientSeparateAckAndCompletionReads(t *testing.T) {
	cam := newMockCamera(t)
	c := NewClient(cam.addr(), nil, nil)
	c.Start()
	defer c.Close()

	conn := cam.conn(t)
	defer conn.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	go func() {
		buf := make([]byte, 8)
		conn.Read(buf)
		conn.Write([]byte{0x90, 0x41, 0xFF})
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte{0x90, 0x51, 0xFF})
	}()

	ok := c.Zoom(1)
	require.True(t, ok)
}

func TestClientAckSplitAcrossReads(t *testing.T) {
	cam := newMockCamera(t)
	c := NewClient(cam.addr(), nil, nil)
	c.Start()
	defer c.Close()

	conn := cam.conn(t)
	defer conn.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	go func() {
		buf := make([]byte, 16)
		conn.Read(buf)
		conn.Write([]byte{0x90})
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte{0x41, 0xFF})
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte{0x90, 0x51, 0xFF})
	}()

	require.True(t, c.Zoom(-1))
}

func TestClientTimeoutRestartsStream(t *testing.T) {
	cam := newMockCamera(t)
	c := NewClient(cam.addr(), nil, nil)
	c.Start()
	defer c.Close()

	conn := cam.conn(t)
	defer conn.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	// never reply: ACK wait should time out
	ok := c.Focus(1)
	require.False(t, ok)

	buf := make([]byte, 8)
	_, err := conn.Read(buf)
	require.NoError(t, err)
}

func awaitStatus(t *testing.T, ch <-chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("no connection status %v within deadline", want)
	}
}

func TestStreamReconnectAfterDrop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	statuses := make(chan bool, 4)
	c := NewClient(ln.Addr().String(), nil, nil)
	c.OnConnectionStatus(func(connected bool) { statuses <- connected })
	c.Start()
	defer c.Close()

	require.NoError(t, ln.(*net.TCPListener).SetDeadline(time.Now().Add(5*time.Second)))
	conn1, err := ln.Accept()
	require.NoError(t, err)
	awaitStatus(t, statuses, true)

	conn1.Close()
	awaitStatus(t, statuses, false)

	// the supervisor redials on its fixed schedule
	conn2, err := ln.Accept()
	require.NoError(t, err)
	defer conn2.Close()
	awaitStatus(t, statuses, true)
}

func TestClientIdempotentNoOpSuppressed(t *testing.T) {
	cam := newMockCamera(t)
	c := NewClient(cam.addr(), nil, nil)
	c.Start()
	defer c.Close()

	conn := cam.conn(t)
	defer conn.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	go func() {
		buf := make([]byte, 16)
		conn.Read(buf)
		conn.Write([]byte{0x90, 0x41, 0xFF, 0x90, 0x51, 0xFF})
	}()

	require.True(t, c.PanTilt(1, 0))
	// identical consecutive command: suppressed, no further write expected
	require.True(t, c.PanTilt(1, 0))
}
