package switcher

import "github.com/broadcastkit/corectl/internal/byteutil"

// masterAudioScale converts a 0.0-1.0 fraction into the device's 16-bit
// master level units. The value is empirical (not derivable from the
// wire format alone) and documented as such rather than presented as a
// physical constant.
const masterAudioScale = 52000

func encodeIndex16(index int) []byte {
	b := make([]byte, 4)
	byteutil.PutUint16(b[2:], uint16(byteutil.ClampInt(index, 0, 0xffff)))
	return b
}

func encodeProgram(index int) []byte { return encodeIndex16(index) }

func encodePreview(index int) []byte { return encodeIndex16(index) }

func encodeCut() []byte { return make([]byte, 4) }

func encodeAuto() []byte { return make([]byte, 4) }

func encodeTransitionPosition(position int) []byte {
	return encodeIndex16(byteutil.ClampInt(position, 0, 9999))
}

func encodeKeyerOnAir(on bool) []byte {
	b := make([]byte, 4)
	if on {
		b[2] = 1
	}
	return b
}

func encodeLiveAudio(enable bool) []byte {
	b := make([]byte, 4)
	if enable {
		b[0] = 1
	}
	return b
}

func encodeMasterAudio(fraction float64) []byte {
	level := byteutil.ClampInt(byteutil.Round(fraction*masterAudioScale), 0, masterAudioScale)
	b := make([]byte, 8)
	b[0] = 0x01
	b[1] = 0x1E
	byteutil.PutUint16(b[2:], uint16(level))
	return b
}

func encodeFadeToBlack() []byte { return make([]byte, 4) }

func encodeAux(index int) []byte {
	b := make([]byte, 4)
	b[0] = 0x01
	byteutil.PutUint16(b[2:], uint16(byteutil.ClampInt(index, 0, 0xffff)))
	return b
}
