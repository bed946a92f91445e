package persist

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Flush reasons, for logging and for sinks that care why a write happened.
const (
	ReasonTimer        = "debounce"
	ReasonFocusLost    = "focusLost"
	ReasonBoundaryNav  = "boundaryNav"
	ReasonStructural   = "structural"
	ReasonStreamSwitch = "streamSwitch"
	ReasonShutdown     = "shutdown"
)

// Write is one persist emission for a cell. StreamId is the stream that was
// active when the edit was observed, never the currently active one; pending
// edits are not retagged (or dropped) on stream switch.
type Write struct {
	CellId   uuid.UUID
	StreamId uuid.UUID
	Content  string
	Order    int
	Reason   string
}

// Sink receives persist writes. Implementations must not call back into the
// scheduler.
type Sink interface {
	SaveCell(w Write)
}

type entry struct {
	content  string
	order    int
	streamId uuid.UUID
}

// Scheduler debounces and diffs cell changes against a last-persisted
// baseline. Only values still differing from baseline at flush time produce
// writes; an edit reverted inside the debounce window costs nothing.
type Scheduler struct {
	mu       sync.Mutex
	baseline map[uuid.UUID]entry
	pending  map[uuid.UUID]entry
	timer    *time.Timer
	debounce time.Duration
	sink     Sink
}

const DefaultDebounce = 500 * time.Millisecond

func NewScheduler(debounce time.Duration, sink Sink) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scheduler{
		baseline: make(map[uuid.UUID]entry),
		pending:  make(map[uuid.UUID]entry),
		debounce: debounce,
		sink:     sink,
	}
}

// SetBaseline seeds the last-persisted value for a cell, e.g. on stream load.
func (s *Scheduler) SetBaseline(streamId, cellId uuid.UUID, content string, order int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline[cellId] = entry{content: content, order: order, streamId: streamId}
	delete(s.pending, cellId)
}

// Observe records the latest value for a cell. When it differs from the
// baseline the debounce timer is (re)armed; when it matches, any pending
// entry is dropped.
func (s *Scheduler) Observe(streamId, cellId uuid.UUID, content string, order int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, hasBase := s.baseline[cellId]
	if hasBase && base.content == content && base.order == order {
		delete(s.pending, cellId)
		return
	}

	s.pending[cellId] = entry{content: content, order: order, streamId: streamId}
	s.armLocked()
}

// Forget drops all scheduler state for a deleted cell.
func (s *Scheduler) Forget(cellId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.baseline, cellId)
	delete(s.pending, cellId)
}

// Flush emits a write for every pending entry still differing from its
// baseline and promotes it to baseline. Triggered by the debounce timer,
// focus loss, boundary navigation, stream switch, and shutdown.
func (s *Scheduler) Flush(reason string) {
	s.mu.Lock()

	var writes []Write
	for cellId, p := range s.pending {
		base, hasBase := s.baseline[cellId]
		if hasBase && base.content == p.content && base.order == p.order {
			delete(s.pending, cellId)
			continue
		}
		writes = append(writes, Write{
			CellId:   cellId,
			StreamId: p.streamId,
			Content:  p.content,
			Order:    p.order,
			Reason:   reason,
		})
		s.baseline[cellId] = p
		delete(s.pending, cellId)
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	// Emit outside the lock; sinks publish to the message channel.
	for _, w := range writes {
		s.sink.SaveCell(w)
	}
}

// PendingCount reports how many cells currently await a flush.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.Flush(ReasonTimer)
	})
}
