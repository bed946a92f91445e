package cellstore

import (
	"strings"

	"github.com/google/uuid"
)

// StreamState is the lifecycle of a cell's streaming session.
type StreamState int

const (
	StateIdle StreamState = iota
	StateStreaming
	StateCompleting
	// StateAbandoned means the user edited the cell mid-stream; the session
	// stays open only to swallow the remainder of the generator's output.
	StateAbandoned
)

// Session tracks one cell while content arrives incrementally from the
// generator. At most one session exists per cell at a time.
type Session struct {
	State StreamState

	// PreservedPrefix is content stripped before generation began (e.g.
	// inline images) and re-prepended to every update.
	PreservedPrefix string

	// LastApplied is the serialized content of the most recent automatic
	// update, used to detect concurrent user edits.
	LastApplied string

	// Error holds the last generation failure for this cell, if any.
	Error string

	buf strings.Builder
}

// StartStreaming opens a streaming session for a cell. A second session on
// the same cell is refused.
func (s *Store) StartStreaming(id uuid.UUID, preservedPrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cells[id]; !ok {
		return ErrCellNotFound
	}
	if sess, ok := s.sessions[id]; ok && sess.State != StateIdle {
		return ErrSessionActive
	}
	s.sessions[id] = &Session{State: StateStreaming, PreservedPrefix: preservedPrefix}
	return nil
}

// AppendChunk adds generator output to the session buffer, in arrival order.
func (s *Store) AppendChunk(id uuid.UUID, chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.State != StateStreaming {
		return ErrNoSession
	}
	sess.buf.WriteString(chunk)
	return nil
}

// Accumulated returns the full buffered text for the session.
func (s *Store) Accumulated(id uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrNoSession
	}
	return sess.buf.String(), nil
}

// Session returns the live session for a cell, or nil.
func (s *Store) Session(id uuid.UUID) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// IsStreaming reports whether the cell currently has an active session.
func (s *Store) IsStreaming(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return ok && sess.State != StateIdle
}

// SetLastApplied records the snapshot the merge protocol just wrote.
func (s *Store) SetLastApplied(id uuid.UUID, serialized string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNoSession
	}
	sess.LastApplied = serialized
	return nil
}

// Abandon marks the session as overtaken by a user edit. Further automatic
// updates are dropped; the session closes for good on completion or error.
func (s *Store) Abandon(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNoSession
	}
	sess.State = StateAbandoned
	return nil
}

// Complete closes the session. The cell becomes deletable again.
func (s *Store) Complete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(s.sessions, id)
	return nil
}

// SetError records a generation failure and closes the session, leaving any
// partial content in place.
func (s *Store) SetError(id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNoSession
	}
	sess.State = StateIdle
	sess.Error = message
	return nil
}

// LastError returns the recorded generation error for a cell, if any.
func (s *Store) LastError(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Error
	}
	return ""
}
