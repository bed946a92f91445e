package persist

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	writes []Write
}

func (c *captureSink) SaveCell(w Write) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, w)
}

func (c *captureSink) all() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

func TestObserveThenFlushEmitsWrite(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink) // timer never fires on its own
	streamId, cellId := uuid.New(), uuid.New()

	s.SetBaseline(streamId, cellId, "original", 0)
	s.Observe(streamId, cellId, "edited", 0)
	require.Equal(t, 1, s.PendingCount())

	s.Flush(ReasonFocusLost)

	writes := sink.all()
	require.Len(t, writes, 1)
	assert.Equal(t, cellId, writes[0].CellId)
	assert.Equal(t, "edited", writes[0].Content)
	assert.Equal(t, ReasonFocusLost, writes[0].Reason)
	assert.Equal(t, 0, s.PendingCount())
}

func TestRevertWithinWindowCostsNothing(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.SetBaseline(streamId, cellId, "original", 0)
	s.Observe(streamId, cellId, "edited", 0)
	s.Observe(streamId, cellId, "original", 0) // revert before any flush

	assert.Equal(t, 0, s.PendingCount())
	s.Flush(ReasonFocusLost)
	assert.Empty(t, sink.all(), "reverted edit produces zero writes")
}

func TestFlushPromotesBaseline(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.Observe(streamId, cellId, "v1", 0)
	s.Flush(ReasonStructural)
	require.Len(t, sink.all(), 1)

	// Same value again: matches the promoted baseline, no second write.
	s.Observe(streamId, cellId, "v1", 0)
	s.Flush(ReasonStructural)
	assert.Len(t, sink.all(), 1)
}

func TestDebounceTimerFires(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(10*time.Millisecond, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.Observe(streamId, cellId, "typed", 0)

	require.Eventually(t, func() bool {
		return len(sink.all()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, ReasonTimer, sink.all()[0].Reason)
}

func TestLastObservationWins(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.Observe(streamId, cellId, "a", 0)
	s.Observe(streamId, cellId, "ab", 0)
	s.Observe(streamId, cellId, "abc", 0)
	s.Flush(ReasonShutdown)

	writes := sink.all()
	require.Len(t, writes, 1, "intermediate keystrokes collapse into one write")
	assert.Equal(t, "abc", writes[0].Content)
}

func TestWritesKeepOriginStream(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	oldStream, cellId := uuid.New(), uuid.New()

	// Edit observed under oldStream; the flush happens after switching away.
	s.Observe(oldStream, cellId, "written before switch", 0)
	s.Flush(ReasonStreamSwitch)

	writes := sink.all()
	require.Len(t, writes, 1)
	assert.Equal(t, oldStream, writes[0].StreamId, "write carries the stream it was observed under")
}

func TestForgetDropsDeletedCell(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.Observe(streamId, cellId, "about to be deleted", 0)
	s.Forget(cellId)
	s.Flush(ReasonBoundaryNav)

	assert.Empty(t, sink.all())
}

func TestOrderChangeAloneSchedulesWrite(t *testing.T) {
	sink := &captureSink{}
	s := NewScheduler(time.Hour, sink)
	streamId, cellId := uuid.New(), uuid.New()

	s.SetBaseline(streamId, cellId, "same", 0)
	s.Observe(streamId, cellId, "same", 3)
	s.Flush(ReasonStructural)

	writes := sink.all()
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Order)
}
