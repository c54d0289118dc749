package ptz

import "github.com/broadcastkit/corectl/internal/byteutil"

const (
	frameHeader1 = 0x81
	frameHeader2 = 0x01
	frameTerm    = 0xFF

	maxPanTiltSpeed = 17
	maxZoomSpeed    = 7
	maxFocusSpeed   = 7

	dirStop = 3
	dirLow  = 1 // pan: left, tilt: down
	dirHigh = 2 // pan: right, tilt: up
)

// clampSpeedLimit bounds a configured pan/tilt speed ceiling to what
// the wire format can carry.
func clampSpeedLimit(max int) int {
	return byteutil.ClampInt(max, 1, maxPanTiltSpeed)
}

// direction maps a signed magnitude to one of the three quadrant
// codes of the 3x3 direction grid: low, stop, or high.
func direction(v float64) byte {
	switch {
	case v < 0:
		return dirLow
	case v > 0:
		return dirHigh
	default:
		return dirStop
	}
}

// speedMagnitude scales a normalized [-1, 1] input to an integer speed
// clamped to [0, max].
func speedMagnitude(v float64, max int) byte {
	if v < 0 {
		v = -v
	}
	return byte(byteutil.ClampInt(byteutil.Round(v*float64(max)), 0, max))
}

func buildFrame(body ...byte) []byte {
	f := make([]byte, 0, len(body)+3)
	f = append(f, frameHeader1, frameHeader2)
	f = append(f, body...)
	f = append(f, frameTerm)
	return f
}

// panTiltFrame builds the pan/tilt command frame. pan and tilt are
// normalized magnitudes in [-1, 1]; when both are zero the frame is
// STOP (direction 3,3 with zero speeds). panMax and tiltMax are the
// device-specific speed ceilings (each up to 17), letting a camera
// configured with a lower ceiling scale its speeds accordingly.
func panTiltFrame(pan, tilt float64, panMax, tiltMax int) []byte {
	panSpeed := speedMagnitude(pan, panMax)
	tiltSpeed := speedMagnitude(tilt, tiltMax)
	return buildFrame(0x06, 0x01, panSpeed, tiltSpeed, direction(pan), direction(tilt))
}

// zoomFocusByte encodes a signed zoom or focus magnitude into the
// single opcode byte: 0x20|speed for positive, 0x30|speed for
// negative, 0x00 for zero, speed masked to 4 bits.
func zoomFocusByte(v float64, max int) byte {
	if v == 0 {
		return 0x00
	}
	speed := speedMagnitude(v, max) & 0x0F
	if v > 0 {
		return 0x20 | speed
	}
	return 0x30 | speed
}

func zoomFrame(z float64) []byte {
	return buildFrame(0x04, 0x07, zoomFocusByte(z, maxZoomSpeed))
}

func focusFrame(f float64) []byte {
	return buildFrame(0x04, 0x08, zoomFocusByte(f, maxFocusSpeed))
}

func savePresetFrame(index int) []byte {
	return buildFrame(0x04, 0x3F, 0x01, byte(index)&0x0F)
}

func recallPresetFrame(index int) []byte {
	return buildFrame(0x04, 0x3F, 0x02, byte(index)&0x0F)
}

// isACK reports whether b is a well-formed ACK frame: byte 0 = 0x90,
// byte 1 high nibble = 0x4, byte 2 = 0xFF.
func isACK(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x90 && b[1]&0xF0 == 0x40 && b[2] == 0xFF
}

// isCompletion reports whether b is a well-formed COMPLETION frame:
// byte 0 = 0x90, byte 1 high nibble = 0x5, byte 2 = 0xFF.
func isCompletion(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x90 && b[1]&0xF0 == 0x50 && b[2] == 0xFF
}
