package cellstore

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
)

var (
	ErrCellNotFound = errors.New("cellstore: cell not found")
	// ErrStreamingActive guards deletion: a cell with a live streaming
	// session may never be deleted. This is a hard rule.
	ErrStreamingActive = errors.New("cellstore: cell has an active streaming session")
	ErrSessionActive   = errors.New("cellstore: streaming session already active")
	ErrNoSession       = errors.New("cellstore: no streaming session")
	ErrBadPosition     = errors.New("cellstore: position out of range")
)

// Patch is a partial cell update; nil fields are left untouched.
type Patch struct {
	Content         *string
	Type            *entity.CellType
	OriginalPrompt  *string
	ModelId         *string
	SourceApp       *string
	BlockName       *string
	References      []uuid.UUID
	Modifiers       []entity.Modifier
	Versions        []entity.Version
	ActiveVersionId *string
	Processing      *entity.ProcessingConfig
}

// Store is the canonical in-memory table of cells for one open stream. It is
// the sole source of truth for cell metadata and streaming state; live inline
// content belongs to the document tree while the user is editing, and the
// reconciler is the only path allowed to merge the two.
type Store struct {
	mu       sync.RWMutex
	streamId uuid.UUID
	cells    map[uuid.UUID]*entity.Cell
	order    []uuid.UUID
	sessions map[uuid.UUID]*Session
}

func New(streamId uuid.UUID) *Store {
	return &Store{
		streamId: streamId,
		cells:    make(map[uuid.UUID]*entity.Cell),
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *Store) StreamId() uuid.UUID {
	return s.streamId
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns a copy of the cell, or ErrCellNotFound.
func (s *Store) Get(id uuid.UUID) (*entity.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cells[id]
	if !ok {
		return nil, ErrCellNotFound
	}
	return c.Clone(), nil
}

// Add inserts a cell. With afterId it lands immediately after that cell,
// otherwise it is appended. All subsequent orders are renormalized to stay
// dense and zero-based.
func (s *Store) Add(cell *entity.Cell, afterId *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cells[cell.Id]; exists {
		return errors.New("cellstore: duplicate cell id")
	}
	if cell.StreamId == uuid.Nil {
		cell.StreamId = s.streamId
	}
	if cell.CreatedAt.IsZero() {
		cell.CreatedAt = time.Now()
	}

	pos := len(s.order)
	if afterId != nil {
		i, ok := s.indexOf(*afterId)
		if !ok {
			return ErrCellNotFound
		}
		pos = i + 1
	}

	s.order = append(s.order, uuid.Nil)
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = cell.Id
	s.cells[cell.Id] = cell.Clone()
	s.renormalize()
	return nil
}

// Update merges non-nil patch fields into the cell and bumps its updated
// time.
func (s *Store) Update(id uuid.UUID, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cells[id]
	if !ok {
		return ErrCellNotFound
	}

	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.OriginalPrompt != nil {
		c.OriginalPrompt = *patch.OriginalPrompt
	}
	if patch.ModelId != nil {
		c.ModelId = *patch.ModelId
	}
	if patch.SourceApp != nil {
		c.SourceApp = *patch.SourceApp
	}
	if patch.BlockName != nil {
		c.BlockName = *patch.BlockName
	}
	if patch.References != nil {
		c.References = append([]uuid.UUID(nil), patch.References...)
	}
	if patch.Modifiers != nil {
		c.Modifiers = append([]entity.Modifier(nil), patch.Modifiers...)
	}
	if patch.Versions != nil {
		c.Versions = append([]entity.Version(nil), patch.Versions...)
	}
	if patch.ActiveVersionId != nil {
		c.ActiveVersionId = *patch.ActiveVersionId
	}
	if patch.Processing != nil {
		p := *patch.Processing
		c.Processing = &p
	}

	now := time.Now()
	c.UpdatedAt = &now
	return nil
}

// Delete removes a cell and renormalizes orders. It fails with
// ErrStreamingActive while the cell has a live streaming session.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cells[id]; !ok {
		return ErrCellNotFound
	}
	if sess, ok := s.sessions[id]; ok && sess.State != StateIdle {
		return ErrStreamingActive
	}

	delete(s.cells, id)
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.renormalize()
	return nil
}

// Reorder moves the cell at fromIndex to toIndex and renormalizes.
func (s *Store) Reorder(fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.order)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return ErrBadPosition
	}
	if fromIndex == toIndex {
		return nil
	}

	id := s.order[fromIndex]
	s.order = append(s.order[:fromIndex], s.order[fromIndex+1:]...)
	s.order = append(s.order, uuid.Nil)
	copy(s.order[toIndex+1:], s.order[toIndex:])
	s.order[toIndex] = id
	s.renormalize()
	return nil
}

// OrderedIDs returns the authoritative cell-id order.
func (s *Store) OrderedIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uuid.UUID(nil), s.order...)
}

// CellsInOrder returns copies of every cell in authoritative order.
func (s *Store) CellsInOrder() []*entity.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Cell, len(s.order))
	for i, id := range s.order {
		out[i] = s.cells[id].Clone()
	}
	return out
}

func (s *Store) indexOf(id uuid.UUID) (int, bool) {
	for i, oid := range s.order {
		if oid == id {
			return i, true
		}
	}
	return 0, false
}

// renormalize rewrites Order on every cell to match its slice position.
// Callers hold the write lock.
func (s *Store) renormalize() {
	for i, id := range s.order {
		s.cells[id].Order = i
	}
}
