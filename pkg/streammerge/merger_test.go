package streammerge

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/markup"
)

type fakePersister struct {
	observed []uuid.UUID
	flushes  []string
}

func (f *fakePersister) Observe(streamId, cellId uuid.UUID, content string, order int) {
	f.observed = append(f.observed, cellId)
}

func (f *fakePersister) Flush(reason string) {
	f.flushes = append(f.flushes, reason)
}

type fakeCanceler struct {
	cancelled []uuid.UUID
}

func (f *fakeCanceler) CancelGeneration(cellId uuid.UUID) {
	f.cancelled = append(f.cancelled, cellId)
}

type fixture struct {
	store     *cellstore.Store
	tree      *doctree.Tree
	persister *fakePersister
	canceler  *fakeCanceler
	merger    *Merger
	cellId    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := cellstore.New(uuid.New())
	cell := &entity.Cell{
		Id:      uuid.New(),
		Content: markup.SerializeCell(markup.KindParagraph, nil),
		Type:    entity.CellTypeAIResponse,
	}
	require.NoError(t, store.Add(cell, nil))

	tree := doctree.New()
	_, err := tree.Apply(doctree.NewTransaction(false).InsertNode(0, &doctree.Node{
		ID:        cell.Id,
		CellType:  cell.Type,
		BlockKind: markup.KindParagraph,
	}))
	require.NoError(t, err)

	persister := &fakePersister{}
	canceler := &fakeCanceler{}
	return &fixture{
		store:     store,
		tree:      tree,
		persister: persister,
		canceler:  canceler,
		merger:    NewMerger(store, tree, persister, canceler, nil),
		cellId:    cell.Id,
	}
}

func TestChunksReplaceWholeContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))

	f.merger.OnChunk(f.cellId, "Hello")
	f.merger.OnChunk(f.cellId, " **wor")
	f.merger.OnChunk(f.cellId, "ld**")

	node := f.tree.Node(f.cellId)
	assert.Equal(t, "Hello **world**", markup.SerializeMarkdown(node.Inline))
	// Bold only materializes once the closing marker arrives; the full
	// re-parse per chunk is what makes that possible.
	var bold bool
	for _, n := range node.Inline {
		if n.Format&markup.FormatBold != 0 {
			bold = true
		}
	}
	assert.True(t, bold)
}

func TestStartSnapshotsExistingContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.tree.Apply(doctree.NewTransaction(false).
		ReplaceInline(f.cellId, []markup.Node{markup.TextNode("already here")}))
	require.NoError(t, err)

	require.NoError(t, f.merger.Start(f.cellId, ""))
	assert.Equal(t, "already here", f.store.Session(f.cellId).LastApplied)
}

func TestUserEditAbandonsStream(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))
	f.merger.OnChunk(f.cellId, "generated text")

	// User edits the node between chunks.
	userEdit := []markup.Node{markup.TextNode("my own words")}
	_, err := f.tree.Apply(doctree.NewTransaction(true).ReplaceInline(f.cellId, userEdit))
	require.NoError(t, err)

	f.merger.OnChunk(f.cellId, " more generated")

	node := f.tree.Node(f.cellId)
	assert.Equal(t, userEdit, node.Inline, "user edit is never overwritten")
	assert.Equal(t, cellstore.StateAbandoned, f.store.Session(f.cellId).State)
	assert.Equal(t, []uuid.UUID{f.cellId}, f.canceler.cancelled)
	assert.Contains(t, f.persister.observed, f.cellId, "user content is persisted on abandon")

	// Remaining chunks drain without effect.
	f.merger.OnChunk(f.cellId, " even more")
	assert.Equal(t, userEdit, f.tree.Node(f.cellId).Inline)
}

func TestCompletionSplitsBlocksKeepingIdentity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))
	final := "# Title\n\nBody text"
	f.merger.OnChunk(f.cellId, final)

	f.merger.OnComplete(f.cellId, final)

	require.Equal(t, 2, f.store.Len())
	ids := f.store.OrderedIDs()
	assert.Equal(t, f.cellId, ids[0], "first block keeps the original cell id")
	assert.NotEqual(t, f.cellId, ids[1])

	first := f.tree.Node(ids[0])
	assert.Equal(t, markup.KindHeading, first.BlockKind)
	assert.Equal(t, "Title", markup.PlainText(first.Inline))

	second := f.tree.Node(ids[1])
	assert.Equal(t, markup.KindParagraph, second.BlockKind)
	assert.Equal(t, "Body text", markup.PlainText(second.Inline))
	assert.Equal(t, entity.CellTypeAIResponse, second.CellType, "siblings inherit the cell type")

	assert.Nil(t, f.store.Session(f.cellId), "session closes on completion")
	require.NotEmpty(t, f.persister.flushes)
	assert.Equal(t, "structural", f.persister.flushes[len(f.persister.flushes)-1])
}

func TestCompletionAfterDivergenceKeepsUserContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))
	f.merger.OnChunk(f.cellId, "generated")

	userEdit := []markup.Node{markup.TextNode("kept")}
	_, err := f.tree.Apply(doctree.NewTransaction(true).ReplaceInline(f.cellId, userEdit))
	require.NoError(t, err)

	f.merger.OnComplete(f.cellId, "generated plus the rest")

	assert.Equal(t, 1, f.store.Len(), "no sibling cells after divergence")
	assert.Equal(t, userEdit, f.tree.Node(f.cellId).Inline)
	assert.Nil(t, f.store.Session(f.cellId))

	cell, err := f.store.Get(f.cellId)
	require.NoError(t, err)
	_, inline := markup.HydrateCell(cell.Content)
	assert.Equal(t, userEdit, inline, "store holds the user's content, not the generator's")
}

func TestPreservedPrefixSurvivesChunks(t *testing.T) {
	f := newFixture(t)
	prefix := "kept prefix "
	require.NoError(t, f.merger.Start(f.cellId, prefix))

	// Start snapshots the node's current (empty) content, so the first chunk
	// must see LastApplied == "".
	f.merger.OnChunk(f.cellId, "tail")

	node := f.tree.Node(f.cellId)
	assert.Equal(t, "kept prefix tail", markup.PlainText(node.Inline))
}

func TestErrorClearsStreamingKeepsPartialContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))
	f.merger.OnChunk(f.cellId, "partial output")

	f.merger.OnError(f.cellId, "model unavailable")

	assert.False(t, f.store.IsStreaming(f.cellId))
	assert.Equal(t, "model unavailable", f.store.LastError(f.cellId))
	assert.Equal(t, "partial output", markup.PlainText(f.tree.Node(f.cellId).Inline))
}

func TestChunkWithoutSessionIsDropped(t *testing.T) {
	f := newFixture(t)

	f.merger.OnChunk(f.cellId, "stray")
	assert.Empty(t, f.tree.Node(f.cellId).Inline)
}

func TestDoubleStartRefused(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.merger.Start(f.cellId, ""))
	assert.ErrorIs(t, f.merger.Start(f.cellId, ""), cellstore.ErrSessionActive)
}
