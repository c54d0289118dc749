package wire

import (
	"errors"
	"fmt"
)

// fieldPrefixSize is the length+reserved+mnemonic prefix preceding a
// TLV field's data.
const fieldPrefixSize = 8

// ErrMalformedTLV signals a payload whose TLV fields do not sum
// exactly to the payload size.
var ErrMalformedTLV = errors.New("wire: malformed TLV payload")

// Field is one packed status or command value: a four-letter ASCII
// mnemonic plus its data bytes.
type Field struct {
	Mnemonic [4]byte
	Data     []byte
}

// NewField builds a Field from a string mnemonic, panicking if it is
// not exactly four ASCII bytes — a programmer error, never triggered
// by wire input.
func NewField(mnemonic string, data []byte) Field {
	if len(mnemonic) != 4 {
		panic("wire: mnemonic must be 4 bytes: " + mnemonic)
	}
	var f Field
	copy(f.Mnemonic[:], mnemonic)
	f.Data = data
	return f
}

// String returns the mnemonic as a Go string.
func (f Field) String() string {
	return string(f.Mnemonic[:])
}

// Size is the encoded octet count of the field, prefix included.
func (f Field) Size() int { return fieldPrefixSize + len(f.Data) }

// AppendTo appends the packed encoding of f to buf.
func (f Field) AppendTo(buf []byte) []byte {
	n := f.Size()
	buf = append(buf, byte(n>>8), byte(n))
	buf = append(buf, 0, 0) // reserved
	buf = append(buf, f.Mnemonic[:]...)
	buf = append(buf, f.Data...)
	return buf
}

// PackFields encodes fields back-to-back with no padding.
func PackFields(fields ...Field) []byte {
	var buf []byte
	for _, f := range fields {
		buf = f.AppendTo(buf)
	}
	return buf
}

// UnpackFields decodes a payload into its TLV fields. It fails with
// ErrMalformedTLV when the fields' summed sizes do not equal exactly
// len(payload).
func UnpackFields(payload []byte) ([]Field, error) {
	var fields []Field
	for len(payload) > 0 {
		if len(payload) < fieldPrefixSize {
			return nil, fmt.Errorf("%w: %d trailing octets short of prefix", ErrMalformedTLV, len(payload))
		}
		n := int(payload[0])<<8 | int(payload[1])
		if n < fieldPrefixSize || n > len(payload) {
			return nil, fmt.Errorf("%w: field length %d out of range", ErrMalformedTLV, n)
		}

		var f Field
		copy(f.Mnemonic[:], payload[4:8])
		if dataLen := n - fieldPrefixSize; dataLen > 0 {
			f.Data = make([]byte, dataLen)
			copy(f.Data, payload[fieldPrefixSize:n])
		}
		fields = append(fields, f)

		payload = payload[n:]
	}
	return fields, nil
}
