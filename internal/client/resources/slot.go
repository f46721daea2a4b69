package resources

import "sync"

// SlotState is what a slot currently shows.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotLoading
	SlotReady
	SlotUnavailable
)

func (s SlotState) String() string {
	switch s {
	case SlotLoading:
		return "loading"
	case SlotReady:
		return "ready"
	case SlotUnavailable:
		return "unavailable"
	default:
		return "empty"
	}
}

// Slot is a rendering target: a thumbnail cell, the viewer or the send
// preview. It owns at most one live handle.
type Slot struct {
	name string

	mu     sync.Mutex
	gen    uint64
	state  SlotState
	handle *Handle
	err    error
}

// NewSlot returns an empty slot. name only appears in logs.
func NewSlot(name string) *Slot {
	return &Slot{name: name}
}

func (s *Slot) Name() string { return s.name }

// State reports what the slot currently shows.
func (s *Slot) State() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the live handle, if any.
func (s *Slot) Handle() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return Handle{}, false
	}
	return *s.handle, true
}

// Err is the failure of the last load when State is SlotUnavailable.
func (s *Slot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// begin starts a new load and returns its generation.
func (s *Slot) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = SlotLoading
	s.err = nil
	return s.gen
}

// fail records err if gen is still current. The unavailable indicator
// replaces the image, so the live handle is detached and returned for the
// caller to release.
func (s *Slot) fail(gen uint64, err error) (prev *Handle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, false
	}
	prev = s.handle
	s.handle = nil
	s.state = SlotUnavailable
	s.err = err
	return prev, true
}

// detach removes the live handle if gen is still current, so it can be
// released before its replacement is registered.
func (s *Slot) detach(gen uint64) (prev *Handle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, false
	}
	prev = s.handle
	s.handle = nil
	return prev, true
}

// commit installs h if gen is still current.
func (s *Slot) commit(gen uint64, h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.handle = &h
	s.state = SlotReady
	s.err = nil
	return true
}

// forget is called by the registry when id is released behind the slot's
// back.
func (s *Slot) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil && s.handle.ID == id {
		s.handle = nil
		if s.state == SlotReady {
			s.state = SlotEmpty
		}
	}
}

// reset empties the slot and invalidates any load in flight. The caller
// releases the returned handle.
func (s *Slot) reset() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	prev := s.handle
	s.handle = nil
	s.state = SlotEmpty
	s.err = nil
	return prev
}
