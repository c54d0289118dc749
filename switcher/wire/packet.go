// Package wire implements the datagram and transport layers of the
// switcher's reliable UDP protocol: packet framing, the TLV payload
// codec, the session handshake, and the reliability state machine.
// See the root switcher package for the decoded domain model.
package wire

import (
	"errors"
	"fmt"
)

// RemotePort is the device's fixed UDP port.
const RemotePort = 9910

// HeaderSize is the fixed octet count preceding the payload.
const HeaderSize = 12

// MaxPacketSize bounds total length (11 bits).
const MaxPacketSize = 1<<11 - 1

var (
	// ErrTooLarge signals a payload that would not fit in the 11-bit
	// total length field.
	ErrTooLarge = errors.New("wire: packet exceeds 2047 octets")
	// ErrShort signals fewer than HeaderSize octets on decode.
	ErrShort = errors.New("wire: packet shorter than header")
	// ErrLengthMismatch signals a declared total length that does not
	// match the octets actually present.
	ErrLengthMismatch = errors.New("wire: declared length does not match received octets")
)

// Flags are the 5 control bits carried in the high bits of byte 0.
type Flags uint8

const (
	FlagReliable Flags = 1 << iota
	FlagSYN
	FlagRetransmission
	FlagRequestRetransmission
	FlagACK
)

var flagNames = [...]string{"REL", "SYN", "RTX", "RRQ", "ACK"}

// String renders the set flags for logging.
func (f Flags) String() string {
	if f == 0 {
		return "-"
	}
	s := ""
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	return s
}

// Packet is a single switcher datagram: a 12-byte header plus an
// optional payload of opaque bytes (handshake) or packed TLV fields
// (everything else).
type Packet struct {
	Flags       Flags
	SessionID   uint16
	AckNo       uint16
	RemoteSeqNo uint16 // only meaningful on specific handshake frames
	LocalSeqNo  uint16 // monotonic per-session counter on reliable sends
	Payload     []byte
}

// totalLength is header length plus payload length.
func (p *Packet) totalLength() int {
	return HeaderSize + len(p.Payload)
}

// Marshal encodes p to exactly totalLength() bytes.
func (p *Packet) Marshal() ([]byte, error) {
	n := p.totalLength()
	if n > MaxPacketSize {
		return nil, ErrTooLarge
	}

	b := make([]byte, n)
	b[0] = byte(p.Flags)<<3 | byte(n>>8&7)
	b[1] = byte(n)
	b[2] = byte(p.SessionID >> 8)
	b[3] = byte(p.SessionID)
	b[4] = byte(p.AckNo >> 8)
	b[5] = byte(p.AckNo)
	b[6] = 0
	b[7] = 0
	b[8] = byte(p.RemoteSeqNo >> 8)
	b[9] = byte(p.RemoteSeqNo)
	b[10] = byte(p.LocalSeqNo >> 8)
	b[11] = byte(p.LocalSeqNo)
	copy(b[HeaderSize:], p.Payload)
	return b, nil
}

// Unmarshal decodes a Packet from exactly the bytes received for one
// datagram. It fails with ErrLengthMismatch when the declared total
// length does not equal len(b).
func Unmarshal(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, ErrShort
	}

	length := int(b[0]&7)<<8 | int(b[1])
	if length != len(b) {
		return nil, fmt.Errorf("%w: declared %d, got %d", ErrLengthMismatch, length, len(b))
	}

	p := &Packet{
		Flags:       Flags(b[0] >> 3),
		SessionID:   uint16(b[2])<<8 | uint16(b[3]),
		AckNo:       uint16(b[4])<<8 | uint16(b[5]),
		RemoteSeqNo: uint16(b[8])<<8 | uint16(b[9]),
		LocalSeqNo:  uint16(b[10])<<8 | uint16(b[11]),
	}
	if n := length - HeaderSize; n > 0 {
		p.Payload = make([]byte, n)
		copy(p.Payload, b[HeaderSize:])
	}
	return p, nil
}

// String returns a compact description for wire tracing.
func (p *Packet) String() string {
	return fmt.Sprintf("[%s sess=%04x ack=%04x rseq=%04x lseq=%04x len=%d]",
		p.Flags, p.SessionID, p.AckNo, p.RemoteSeqNo, p.LocalSeqNo, len(p.Payload))
}
