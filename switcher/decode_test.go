package switcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcastkit/corectl/internal/byteutil"
	"github.com/broadcastkit/corectl/switcher/wire"
)

func newTestClient() *Client {
	return NewClient(Config{})
}

func TestDecodeProgramPreviewAux(t *testing.T) {
	c := newTestClient()

	var gotProgram, gotPreview, gotAux int
	c.bus.OnProgramChange(func(i int) { gotProgram = i })
	c.bus.OnPreviewChange(func(i int) { gotPreview = i })
	c.bus.OnAuxChange(func(i int) { gotAux = i })

	c.dispatchField(wire.NewField("PrgI", []byte{0, 0, 0, 4}))
	c.dispatchField(wire.NewField("PrvI", []byte{0, 0, 0, 2}))
	c.dispatchField(wire.NewField("AuxS", []byte{0, 0, 0, 7}))

	assert.Equal(t, 4, c.state.ProgramIndex())
	assert.Equal(t, 2, c.state.PreviewIndex())
	assert.Equal(t, 7, c.state.AuxIndex())
	assert.Equal(t, 4, gotProgram)
	assert.Equal(t, 2, gotPreview)
	assert.Equal(t, 7, gotAux)
}

func TestDecodeKeyerOnAir(t *testing.T) {
	c := newTestClient()
	var got bool
	c.bus.OnKeyerOnAir(func(on bool) { got = on })

	c.dispatchField(wire.NewField("KeOn", []byte{0, 0, 1, 0}))
	assert.True(t, got)
	assert.True(t, c.state.KeyerOnAir())

	c.dispatchField(wire.NewField("KeOn", []byte{0, 0, 0, 0}))
	assert.False(t, got)
}

func TestDecodeFadeToBlack(t *testing.T) {
	c := newTestClient()
	var active, transitioning bool
	c.bus.OnFadeToBlack(func(a, tr bool) { active, transitioning = a, tr })

	c.dispatchField(wire.NewField("FtbS", []byte{0, 1, 1, 0}))
	assert.True(t, active)
	assert.True(t, transitioning)

	gotActive, gotTransitioning := c.state.FadeToBlack()
	assert.True(t, gotActive)
	assert.True(t, gotTransitioning)
}

func TestDecodeTransition(t *testing.T) {
	c := newTestClient()
	var gotProgress bool
	var gotPos int
	c.bus.OnTransitionInProgress(func(p bool) { gotProgress = p })
	c.bus.OnTransitionPosition(func(p int) { gotPos = p })

	// byte1=inProgress, bytes4-5=position(big-endian)=0x2328=9000
	c.dispatchField(wire.NewField("TrPs", []byte{0, 1, 0, 0, 0x23, 0x28}))
	assert.True(t, gotProgress)
	assert.Equal(t, 9000, gotPos)

	inProgress, pos := c.state.Transition()
	assert.True(t, inProgress)
	assert.Equal(t, 9000, pos)
}

func TestDecodeTally(t *testing.T) {
	c := newTestClient()
	var updates []struct {
		index int
		flags Tally
	}
	c.bus.OnTally(func(i int, f Tally) {
		updates = append(updates, struct {
			index int
			flags Tally
		}{i, f})
	})

	// N=2 inputs: input 1 program-only, input 2 preview-only
	c.dispatchField(wire.NewField("TlIn", []byte{0, 2, 0x01, 0x02}))

	require.Len(t, updates, 2)
	assert.Equal(t, 1, updates[0].index)
	assert.Equal(t, Tally{Program: true, Preview: false}, updates[0].flags)
	assert.Equal(t, 2, updates[1].index)
	assert.Equal(t, Tally{Program: false, Preview: true}, updates[1].flags)

	assert.Equal(t, Tally{Program: true}, c.state.TallyFor(1))
}

func TestDecodeAudioLevelsZeroIsFloor(t *testing.T) {
	c := newTestClient()
	var leftDB, rightDB float64
	c.bus.OnAudioLevels(func(l, r float64) { leftDB, rightDB = l, r })

	data := make([]byte, 12)
	c.dispatchField(wire.NewField("AMLv", data))

	assert.Equal(t, c.audioFloorDB(), leftDB)
	assert.Equal(t, c.audioFloorDB(), rightDB)
}

func TestDecodeAudioLevelsNonZero(t *testing.T) {
	c := newTestClient()
	var leftDB float64
	c.bus.OnAudioLevels(func(l, r float64) { leftDB = l })

	data := make([]byte, 12)
	// raw = 128*65536 => db = 0
	byteutil.PutUint32(data[4:], 128*65536)
	c.dispatchField(wire.NewField("AMLv", data))

	assert.InDelta(t, 0, leftDB, 0.0001)
}

func TestAudioFloorTracksConfiguredMinimum(t *testing.T) {
	c := NewClient(Config{AudioMinDB: -65})
	var leftDB, rightDB float64
	c.bus.OnAudioLevels(func(l, r float64) { leftDB, rightDB = l, r })

	data := make([]byte, 12)
	byteutil.PutUint32(data[4:], 0x00800000) // full-scale reference
	c.dispatchField(wire.NewField("AMLv", data))

	assert.InDelta(t, 0, leftDB, 0.0001)
	assert.Equal(t, -64.0, rightDB)
}

func TestDecodeUnknownMnemonicIgnored(t *testing.T) {
	c := newTestClient()
	assert.NotPanics(t, func() {
		c.dispatchField(wire.NewField("ZZZZ", []byte{1, 2, 3, 4}))
	})
}

func TestDecodeConnDisconnectKeepsStaleState(t *testing.T) {
	c := newTestClient()
	c.dispatchField(wire.NewField("PrgI", []byte{0, 0, 0, 5}))
	c.dispatchField(wire.NewField("CONN", []byte{0}))

	assert.False(t, c.state.Connected())
	assert.Equal(t, 5, c.state.ProgramIndex())
}
