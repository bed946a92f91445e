package cellstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamdoc-engine/internal/entity"
)

func newCell(content string) *entity.Cell {
	return &entity.Cell{
		Id:      uuid.New(),
		Content: content,
		Type:    entity.CellTypeText,
	}
}

func seedStore(t *testing.T, contents ...string) (*Store, []*entity.Cell) {
	t.Helper()
	store := New(uuid.New())
	cells := make([]*entity.Cell, 0, len(contents))
	for _, content := range contents {
		c := newCell(content)
		require.NoError(t, store.Add(c, nil))
		cells = append(cells, c)
	}
	return store, cells
}

func assertDenseOrder(t *testing.T, store *Store) {
	t.Helper()
	for i, c := range store.CellsInOrder() {
		assert.Equal(t, i, c.Order, "orders must stay dense and zero-based")
	}
}

func TestAddAppendsAndInheritsStream(t *testing.T) {
	store, cells := seedStore(t, "a", "b")

	got, err := store.Get(cells[0].Id)
	require.NoError(t, err)
	assert.Equal(t, store.StreamId(), got.StreamId)
	assert.Equal(t, 0, got.Order)
	assert.False(t, got.CreatedAt.IsZero())
	assertDenseOrder(t, store)
}

func TestAddAfterAnchor(t *testing.T) {
	store, cells := seedStore(t, "a", "b", "c")

	inserted := newCell("x")
	require.NoError(t, store.Add(inserted, &cells[0].Id))

	ids := store.OrderedIDs()
	assert.Equal(t, []uuid.UUID{cells[0].Id, inserted.Id, cells[1].Id, cells[2].Id}, ids)
	assertDenseOrder(t, store)
}

func TestAddRejectsDuplicateAndMissingAnchor(t *testing.T) {
	store, cells := seedStore(t, "a")

	assert.Error(t, store.Add(cells[0], nil))

	missing := uuid.New()
	assert.ErrorIs(t, store.Add(newCell("x"), &missing), ErrCellNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	store, cells := seedStore(t, "a")

	got, err := store.Get(cells[0].Id)
	require.NoError(t, err)
	got.Content = "mutated"

	again, err := store.Get(cells[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Content)
}

func TestUpdatePatchesOnlyGivenFields(t *testing.T) {
	store, cells := seedStore(t, "a")

	content := "changed"
	require.NoError(t, store.Update(cells[0].Id, Patch{Content: &content}))

	got, err := store.Get(cells[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Content)
	assert.Equal(t, entity.CellTypeText, got.Type)
	assert.NotNil(t, got.UpdatedAt)

	assert.ErrorIs(t, store.Update(uuid.New(), Patch{Content: &content}), ErrCellNotFound)
}

func TestDeleteRenormalizes(t *testing.T) {
	store, cells := seedStore(t, "a", "b", "c")

	require.NoError(t, store.Delete(cells[1].Id))

	assert.Equal(t, 2, store.Len())
	_, err := store.Get(cells[1].Id)
	assert.ErrorIs(t, err, ErrCellNotFound)
	assertDenseOrder(t, store)
}

func TestDeleteRefusedWhileStreaming(t *testing.T) {
	store, cells := seedStore(t, "a")
	require.NoError(t, store.StartStreaming(cells[0].Id, ""))

	assert.ErrorIs(t, store.Delete(cells[0].Id), ErrStreamingActive)

	// Abandoned still counts as live: the session only closes on completion.
	require.NoError(t, store.Abandon(cells[0].Id))
	assert.ErrorIs(t, store.Delete(cells[0].Id), ErrStreamingActive)

	require.NoError(t, store.Complete(cells[0].Id))
	assert.NoError(t, store.Delete(cells[0].Id))
}

func TestReorder(t *testing.T) {
	store, cells := seedStore(t, "a", "b", "c")

	require.NoError(t, store.Reorder(0, 2))

	assert.Equal(t, []uuid.UUID{cells[1].Id, cells[2].Id, cells[0].Id}, store.OrderedIDs())
	assertDenseOrder(t, store)

	assert.ErrorIs(t, store.Reorder(0, 9), ErrBadPosition)
	assert.ErrorIs(t, store.Reorder(-1, 0), ErrBadPosition)
}

func TestStreamingSessionLifecycle(t *testing.T) {
	store, cells := seedStore(t, "a")
	id := cells[0].Id

	require.NoError(t, store.StartStreaming(id, "prefix"))
	assert.True(t, store.IsStreaming(id))
	assert.ErrorIs(t, store.StartStreaming(id, ""), ErrSessionActive)

	require.NoError(t, store.AppendChunk(id, "Hello"))
	require.NoError(t, store.AppendChunk(id, " world"))
	acc, err := store.Accumulated(id)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", acc)

	require.NoError(t, store.SetLastApplied(id, "snapshot"))
	assert.Equal(t, "snapshot", store.Session(id).LastApplied)
	assert.Equal(t, "prefix", store.Session(id).PreservedPrefix)

	require.NoError(t, store.Complete(id))
	assert.False(t, store.IsStreaming(id))
	assert.ErrorIs(t, store.AppendChunk(id, "late"), ErrNoSession)
}

func TestAbandonedSessionRefusesChunks(t *testing.T) {
	store, cells := seedStore(t, "a")
	id := cells[0].Id

	require.NoError(t, store.StartStreaming(id, ""))
	require.NoError(t, store.Abandon(id))

	assert.ErrorIs(t, store.AppendChunk(id, "chunk"), ErrNoSession)
	assert.Equal(t, StateAbandoned, store.Session(id).State)
}

func TestSetErrorKeepsSessionRecord(t *testing.T) {
	store, cells := seedStore(t, "a")
	id := cells[0].Id

	require.NoError(t, store.StartStreaming(id, ""))
	require.NoError(t, store.SetError(id, "model unavailable"))

	assert.Equal(t, "model unavailable", store.LastError(id))
	assert.False(t, store.IsStreaming(id))
	// An errored cell is deletable again.
	assert.NoError(t, store.Delete(id))
}

func TestChunksOnUnknownCell(t *testing.T) {
	store, _ := seedStore(t, "a")

	assert.ErrorIs(t, store.StartStreaming(uuid.New(), ""), ErrCellNotFound)
	assert.ErrorIs(t, store.AppendChunk(uuid.New(), "x"), ErrNoSession)
}
