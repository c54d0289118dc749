package switcher

import (
	"github.com/broadcastkit/corectl/internal/byteutil"
	"github.com/broadcastkit/corectl/switcher/wire"
)

// dispatchField decodes one TLV field into a state mutation and fires
// the matching event bus callbacks. Unknown mnemonics are ignored
// silently.
func (c *Client) dispatchField(f wire.Field) {
	switch f.String() {
	case "CONN":
		c.decodeConn(f)
	case "PrgI":
		c.decodeProgram(f)
	case "PrvI":
		c.decodePreview(f)
	case "AuxS":
		c.decodeAux(f)
	case "KeOn":
		c.decodeKeyerOnAir(f)
	case "FtbS":
		c.decodeFadeToBlack(f)
	case "TrPs":
		c.decodeTransition(f)
	case "TlIn":
		c.decodeTally(f)
	case "AMLv":
		c.decodeAudioLevels(f)
	}
}

func (c *Client) decodeConn(f wire.Field) {
	if len(f.Data) < 1 {
		return
	}
	connected := f.Data[0] != 0
	// cached values remain but are stale until a fresh dump arrives
	c.state.setConnected(connected)
	for _, fn := range c.bus.connection.snapshot() {
		fn(connected)
	}
}

func (c *Client) decodeProgram(f wire.Field) {
	if len(f.Data) < 4 {
		return
	}
	index := int(byteutil.Uint16(f.Data[2:4]))
	c.state.setProgramIndex(index)
	for _, fn := range c.bus.program.snapshot() {
		fn(index)
	}
}

func (c *Client) decodePreview(f wire.Field) {
	if len(f.Data) < 4 {
		return
	}
	index := int(byteutil.Uint16(f.Data[2:4]))
	c.state.setPreviewIndex(index)
	for _, fn := range c.bus.preview.snapshot() {
		fn(index)
	}
}

func (c *Client) decodeAux(f wire.Field) {
	if len(f.Data) < 4 {
		return
	}
	index := int(byteutil.Uint16(f.Data[2:4]))
	c.state.setAuxIndex(index)
	for _, fn := range c.bus.aux.snapshot() {
		fn(index)
	}
}

func (c *Client) decodeKeyerOnAir(f wire.Field) {
	if len(f.Data) < 3 {
		return
	}
	onAir := f.Data[2] != 0
	c.state.setKeyerOnAir(onAir)
	for _, fn := range c.bus.keyerOnAir.snapshot() {
		fn(onAir)
	}
}

func (c *Client) decodeFadeToBlack(f wire.Field) {
	if len(f.Data) < 3 {
		return
	}
	active := f.Data[1] != 0
	transitioning := f.Data[2] != 0
	c.state.setFadeToBlack(active, transitioning)
	for _, fn := range c.bus.fadeToBlack.snapshot() {
		fn(active, transitioning)
	}
}

func (c *Client) decodeTransition(f wire.Field) {
	if len(f.Data) < 6 {
		return
	}
	inProgress := f.Data[1] != 0
	position := int(byteutil.Uint16(f.Data[4:6]))
	c.state.setTransition(inProgress, position)
	for _, fn := range c.bus.transitionProg.snapshot() {
		fn(inProgress)
	}
	for _, fn := range c.bus.transitionPos.snapshot() {
		fn(position)
	}
}

// decodeTally unpacks the TlIn field: a 16-bit count N followed by N
// flag bytes, one per input, bit0=program, bit1=preview. Inputs are
// numbered from 1: the first flag byte is reported as input 1.
func (c *Client) decodeTally(f wire.Field) {
	if len(f.Data) < 2 {
		return
	}
	n := int(byteutil.Uint16(f.Data[0:2]))
	if len(f.Data) < 2+n {
		return
	}
	for i := 0; i < n; i++ {
		flags := f.Data[2+i]
		t := Tally{Program: flags&0x01 != 0, Preview: flags&0x02 != 0}
		index := i + 1
		c.state.setTally(index, t)
		for _, fn := range c.bus.tally.snapshot() {
			fn(index, t)
		}
	}
}

func (c *Client) decodeAudioLevels(f wire.Field) {
	if len(f.Data) < 12 {
		return
	}
	leftRaw := byteutil.Uint32(f.Data[4:8])
	rightRaw := byteutil.Uint32(f.Data[8:12])
	floor := c.audioFloorDB()
	leftDB := byteutil.Decibel(leftRaw, floor)
	rightDB := byteutil.Decibel(rightRaw, floor)
	c.state.setAudioLevels(leftDB, rightDB)
	for _, fn := range c.bus.audio.snapshot() {
		fn(leftDB, rightDB)
	}
}
