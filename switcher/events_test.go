package switcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := newEventBus()

	calls := 0
	id := bus.OnProgramChange(func(i int) { calls++ })
	for _, fn := range bus.program.snapshot() {
		fn(1)
	}
	assert.Equal(t, 1, calls)

	bus.Unsubscribe(id)
	for _, fn := range bus.program.snapshot() {
		fn(2)
	}
	assert.Equal(t, 1, calls)
}

func TestEventBusMultipleSubscribersAllFire(t *testing.T) {
	bus := newEventBus()

	var a, b bool
	bus.OnKeyerOnAir(func(on bool) { a = on })
	bus.OnKeyerOnAir(func(on bool) { b = on })

	for _, fn := range bus.keyerOnAir.snapshot() {
		fn(true)
	}

	assert.True(t, a)
	assert.True(t, b)
}

func TestEventBusUnsubscribeIsIdempotentAcrossKinds(t *testing.T) {
	bus := newEventBus()
	id := bus.OnAuxChange(func(int) {})
	assert.NotPanics(t, func() {
		bus.Unsubscribe(id)
		bus.Unsubscribe(id)
	})
}
