package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewFieldPanicsOnShortMnemonic(t *testing.T) {
	assert.Panics(t, func() { NewField("ABC", nil) })
}

func TestPackUnpackFields(t *testing.T) {
	fields := []Field{
		NewField("PrgI", []byte{0, 3}),
		NewField("PrvI", []byte{0, 1}),
		NewField("KeOn", []byte{1}),
	}

	payload := PackFields(fields...)
	got, err := UnpackFields(payload)
	require.NoError(t, err)
	require.Len(t, got, len(fields))
	for i, f := range fields {
		assert.Equal(t, f.Mnemonic, got[i].Mnemonic)
		assert.Equal(t, f.Data, got[i].Data)
	}
}

func TestUnpackFieldsEmptyPayload(t *testing.T) {
	fields, err := UnpackFields(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestUnpackFieldsMalformed(t *testing.T) {
	cases := [][]byte{
		{0, 0, 0, 0, 'C'},                      // short of prefix
		{0, 3, 0, 0, 'C', 'O', 'N', 'N'},        // declared length below prefix size
		{0xFF, 0xFF, 0, 0, 'C', 'O', 'N', 'N'}, // declared length past payload
	}
	for _, b := range cases {
		_, err := UnpackFields(b)
		assert.ErrorIs(t, err, ErrMalformedTLV)
	}
}

func TestFieldSizeMatchesAppendTo(t *testing.T) {
	f := NewField("AMLv", []byte{0, 0, 0, 1})
	assert.Equal(t, f.Size(), len(f.AppendTo(nil)))
}

// TestPackUnpackFieldsProperty checks that packing any sequence of
// fields and unpacking it recovers the same mnemonics and data.
func TestPackUnpackFieldsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		fields := make([]Field, n)
		for i := range fields {
			mnemonic := string(rapid.SliceOfN(rapid.ByteRange('A', 'Z'), 4, 4).Draw(t, "mnemonic"))
			data := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "data")
			if len(data) == 0 {
				data = nil // empty field data decodes as nil
			}
			fields[i] = NewField(mnemonic, data)
		}

		payload := PackFields(fields...)
		got, err := UnpackFields(payload)
		require.NoError(t, err)
		require.Len(t, got, len(fields))
		for i := range fields {
			require.Equal(t, fields[i].Mnemonic, got[i].Mnemonic)
			require.Equal(t, fields[i].Data, got[i].Data)
		}
	})
}
