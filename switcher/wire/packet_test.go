package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPacketMarshalRoundTrip(t *testing.T) {
	cases := []*Packet{
		{Flags: FlagSYN, SessionID: 7, Payload: []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{Flags: FlagACK, SessionID: 42, AckNo: 99},
		{Flags: FlagACK, SessionID: 42, AckNo: 5, RemoteSeqNo: finalDumpAckSentinel},
		{Flags: FlagReliable, SessionID: 1234, LocalSeqNo: 1, Payload: PackFields(NewField("DCut", []byte{0, 0, 0, 0}))},
	}

	for _, want := range cases {
		b, err := want.Marshal()
		require.NoError(t, err)

		got, err := Unmarshal(b)
		require.NoError(t, err)

		assert.Equal(t, want.Flags, got.Flags)
		assert.Equal(t, want.SessionID, got.SessionID)
		assert.Equal(t, want.AckNo, got.AckNo)
		assert.Equal(t, want.RemoteSeqNo, got.RemoteSeqNo)
		assert.Equal(t, want.LocalSeqNo, got.LocalSeqNo)
		assert.Equal(t, want.Payload, got.Payload)
	}
}

func TestUnmarshalLengthMismatch(t *testing.T) {
	p := &Packet{Flags: FlagACK, SessionID: 1}
	b, err := p.Marshal()
	require.NoError(t, err)

	_, err = Unmarshal(append(b, 0, 0, 0))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestUnmarshalShort(t *testing.T) {
	_, err := Unmarshal([]byte{0x00, 0x04})
	assert.ErrorIs(t, err, ErrShort)
}

// TestPacketRoundTripProperty checks that for any header field
// combination and any payload within the 11-bit length budget,
// encode followed by decode is the identity.
func TestPacketRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := &Packet{
			Flags:       Flags(rapid.UintRange(0, 31).Draw(t, "flags")),
			SessionID:   uint16(rapid.UintRange(0, 0xffff).Draw(t, "session")),
			AckNo:       uint16(rapid.UintRange(0, 0xffff).Draw(t, "ack")),
			RemoteSeqNo: uint16(rapid.UintRange(0, 0xffff).Draw(t, "rseq")),
			LocalSeqNo:  uint16(rapid.UintRange(0, 0xffff).Draw(t, "lseq")),
			Payload:     rapid.SliceOfN(rapid.Byte(), 0, MaxPacketSize-HeaderSize).Draw(t, "payload"),
		}
		if len(p.Payload) == 0 {
			p.Payload = nil // an empty payload decodes as nil
		}

		b, err := p.Marshal()
		require.NoError(t, err)

		got, err := Unmarshal(b)
		require.NoError(t, err)

		require.Equal(t, p.Flags, got.Flags)
		require.Equal(t, p.SessionID, got.SessionID)
		require.Equal(t, p.AckNo, got.AckNo)
		require.Equal(t, p.RemoteSeqNo, got.RemoteSeqNo)
		require.Equal(t, p.LocalSeqNo, got.LocalSeqNo)
		require.Equal(t, p.Payload, got.Payload)
	})
}

func TestMarshalTooLarge(t *testing.T) {
	p := &Packet{Payload: make([]byte, MaxPacketSize)}
	_, err := p.Marshal()
	assert.ErrorIs(t, err, ErrTooLarge)
}
