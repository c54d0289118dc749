package switcher

import "sync"

// State holds the last-known observable state of the switcher. It is
// mutated only by decoded TLV fields and, for the connected flag, by
// session level changes, and read by the accessor methods below; all access is guarded by a
// single mutex since both the receiver task (writer) and caller tasks
// (readers) touch it concurrently.
type State struct {
	mu sync.RWMutex

	connected bool

	programIndex int
	previewIndex int
	auxIndex     int

	keyerOnAir bool

	fadeToBlackActive        bool
	fadeToBlackTransitioning bool

	transitionInProgress bool
	transitionPosition   int

	tally map[int]Tally

	leftDB, rightDB float64
}

func newState() *State {
	return &State{tally: make(map[int]Tally)}
}

// Connected reports whether the switcher is connected, as last set by a
// CONN field or by the session reaching or leaving Ready.
func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// ProgramIndex returns the current program input index.
func (s *State) ProgramIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.programIndex
}

// PreviewIndex returns the current preview input index.
func (s *State) PreviewIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewIndex
}

// AuxIndex returns the current aux input index.
func (s *State) AuxIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auxIndex
}

// KeyerOnAir reports the upstream keyer on-air flag.
func (s *State) KeyerOnAir() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyerOnAir
}

// FadeToBlack reports the fade-to-black active and transitioning flags.
func (s *State) FadeToBlack() (active, transitioning bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fadeToBlackActive, s.fadeToBlackTransitioning
}

// Transition reports whether a transition is in progress and its
// current position (0-9999).
func (s *State) Transition() (inProgress bool, position int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transitionInProgress, s.transitionPosition
}

// TallyFor returns the tally flags for one input index.
func (s *State) TallyFor(index int) Tally {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tally[index]
}

// AudioLevels returns the most recent left/right levels in decibels.
func (s *State) AudioLevels() (leftDB, rightDB float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leftDB, s.rightDB
}

func (s *State) setConnected(c bool) {
	s.mu.Lock()
	s.connected = c
	s.mu.Unlock()
}

func (s *State) setProgramIndex(i int) {
	s.mu.Lock()
	s.programIndex = i
	s.mu.Unlock()
}

func (s *State) setPreviewIndex(i int) {
	s.mu.Lock()
	s.previewIndex = i
	s.mu.Unlock()
}

func (s *State) setAuxIndex(i int) {
	s.mu.Lock()
	s.auxIndex = i
	s.mu.Unlock()
}

func (s *State) setKeyerOnAir(on bool) {
	s.mu.Lock()
	s.keyerOnAir = on
	s.mu.Unlock()
}

func (s *State) setFadeToBlack(active, transitioning bool) {
	s.mu.Lock()
	s.fadeToBlackActive = active
	s.fadeToBlackTransitioning = transitioning
	s.mu.Unlock()
}

func (s *State) setTransition(inProgress bool, position int) {
	s.mu.Lock()
	s.transitionInProgress = inProgress
	s.transitionPosition = position
	s.mu.Unlock()
}

func (s *State) setTally(index int, t Tally) {
	s.mu.Lock()
	s.tally[index] = t
	s.mu.Unlock()
}

func (s *State) setAudioLevels(leftDB, rightDB float64) {
	s.mu.Lock()
	s.leftDB = leftDB
	s.rightDB = rightDB
	s.mu.Unlock()
}
