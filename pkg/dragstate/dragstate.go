// Package dragstate holds the shared interaction state for cell dragging:
// one writer (the cell being dragged), many readers (drop targets and
// indicators). It is an explicit observable injected into participants, never
// a package-level global.
package dragstate

import (
	"sync"

	"github.com/google/uuid"
)

// Listener is notified whenever the dragged cell changes. active is false
// when the drag ended.
type Listener func(cellId uuid.UUID, active bool)

type State struct {
	mu        sync.RWMutex
	current   uuid.UUID
	active    bool
	listeners []Listener
}

func New() *State {
	return &State{}
}

// Set marks a cell as being dragged.
func (s *State) Set(cellId uuid.UUID) {
	s.mu.Lock()
	s.current = cellId
	s.active = true
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(cellId, true)
	}
}

// Clear ends the drag.
func (s *State) Clear() {
	s.mu.Lock()
	id := s.current
	s.current = uuid.Nil
	s.active = false
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(id, false)
	}
}

// Current returns the dragged cell id, if a drag is active.
func (s *State) Current() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.active
}

// Subscribe registers a listener for drag changes.
func (s *State) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
