package switcher

import (
	"sync"

	"github.com/rs/xid"
)

// handlerSet is a concurrency-safe registry of subscriber callbacks of
// one event shape, keyed by an xid.ID subscription handle so Unsubscribe
// never mismatches entries and never double-delivers, per the ownership
// rule that subscribers hold only weak references.
type handlerSet[F any] struct {
	mu       sync.Mutex
	handlers map[xid.ID]F
}

func newHandlerSet[F any]() *handlerSet[F] {
	return &handlerSet[F]{handlers: make(map[xid.ID]F)}
}

func (h *handlerSet[F]) add(fn F) xid.ID {
	id := xid.New()
	h.mu.Lock()
	h.handlers[id] = fn
	h.mu.Unlock()
	return id
}

func (h *handlerSet[F]) remove(id xid.ID) {
	h.mu.Lock()
	delete(h.handlers, id)
	h.mu.Unlock()
}

// snapshot returns the current handlers for dispatch outside the lock,
// so a subscriber callback can safely subscribe or unsubscribe without
// deadlocking against its own delivery.
func (h *handlerSet[F]) snapshot() []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]F, 0, len(h.handlers))
	for _, fn := range h.handlers {
		out = append(out, fn)
	}
	return out
}

// Tally reports the program/preview tally flags for one input.
type Tally struct {
	Program bool
	Preview bool
}

// EventBus holds every subscriber list for a Client. Dispatch happens
// synchronously on the transport's goroutine that decoded the fields
// (the supervisor during the initial state dump, the receive loop
// afterwards), in TLV arrival order; the order among subscribers of one
// event is not defined. Subscriber callbacks must not block.
type EventBus struct {
	connection     *handlerSet[func(connected bool)]
	program        *handlerSet[func(index int)]
	preview        *handlerSet[func(index int)]
	aux            *handlerSet[func(index int)]
	keyerOnAir     *handlerSet[func(onAir bool)]
	fadeToBlack    *handlerSet[func(active, transitioning bool)]
	transitionProg *handlerSet[func(inProgress bool)]
	transitionPos  *handlerSet[func(position int)]
	tally          *handlerSet[func(index int, flags Tally)]
	audio          *handlerSet[func(leftDB, rightDB float64)]
}

func newEventBus() *EventBus {
	return &EventBus{
		connection:     newHandlerSet[func(bool)](),
		program:        newHandlerSet[func(int)](),
		preview:        newHandlerSet[func(int)](),
		aux:            newHandlerSet[func(int)](),
		keyerOnAir:     newHandlerSet[func(bool)](),
		fadeToBlack:    newHandlerSet[func(bool, bool)](),
		transitionProg: newHandlerSet[func(bool)](),
		transitionPos:  newHandlerSet[func(int)](),
		tally:          newHandlerSet[func(int, Tally)](),
		audio:          newHandlerSet[func(float64, float64)](),
	}
}

// OnConnectionStatus subscribes to connected/disconnected transitions.
func (b *EventBus) OnConnectionStatus(fn func(connected bool)) xid.ID { return b.connection.add(fn) }

// OnProgramChange subscribes to program input index changes.
func (b *EventBus) OnProgramChange(fn func(index int)) xid.ID { return b.program.add(fn) }

// OnPreviewChange subscribes to preview input index changes.
func (b *EventBus) OnPreviewChange(fn func(index int)) xid.ID { return b.preview.add(fn) }

// OnAuxChange subscribes to aux input index changes.
func (b *EventBus) OnAuxChange(fn func(index int)) xid.ID { return b.aux.add(fn) }

// OnKeyerOnAir subscribes to upstream-keyer on-air changes.
func (b *EventBus) OnKeyerOnAir(fn func(onAir bool)) xid.ID { return b.keyerOnAir.add(fn) }

// OnFadeToBlack subscribes to fade-to-black active/transitioning changes.
func (b *EventBus) OnFadeToBlack(fn func(active, transitioning bool)) xid.ID {
	return b.fadeToBlack.add(fn)
}

// OnTransitionInProgress subscribes to transition-in-progress changes.
func (b *EventBus) OnTransitionInProgress(fn func(inProgress bool)) xid.ID {
	return b.transitionProg.add(fn)
}

// OnTransitionPosition subscribes to transition position changes.
func (b *EventBus) OnTransitionPosition(fn func(position int)) xid.ID {
	return b.transitionPos.add(fn)
}

// OnTally subscribes to per-input tally flag updates.
func (b *EventBus) OnTally(fn func(index int, flags Tally)) xid.ID { return b.tally.add(fn) }

// OnAudioLevels subscribes to left/right decibel level updates.
func (b *EventBus) OnAudioLevels(fn func(leftDB, rightDB float64)) xid.ID { return b.audio.add(fn) }

// Unsubscribe removes a previously registered handler by its id,
// regardless of which On* method produced it.
func (b *EventBus) Unsubscribe(id xid.ID) {
	b.connection.remove(id)
	b.program.remove(id)
	b.preview.remove(id)
	b.aux.remove(id)
	b.keyerOnAir.remove(id)
	b.fadeToBlack.remove(id)
	b.transitionProg.remove(id)
	b.transitionPos.remove(id)
	b.tally.remove(id)
	b.audio.remove(id)
}
