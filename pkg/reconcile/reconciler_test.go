package reconcile

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/markup"
)

func storedCell(text string) *entity.Cell {
	return &entity.Cell{
		Id:      uuid.New(),
		Content: markup.SerializeCell(markup.KindParagraph, []markup.Node{markup.TextNode(text)}),
		Type:    entity.CellTypeText,
	}
}

func seedStore(t *testing.T, texts ...string) (*cellstore.Store, []*entity.Cell) {
	t.Helper()
	store := cellstore.New(uuid.New())
	cells := make([]*entity.Cell, 0, len(texts))
	for _, text := range texts {
		c := storedCell(text)
		require.NoError(t, store.Add(c, nil))
		cells = append(cells, c)
	}
	return store, cells
}

func TestFingerprint(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, "", Fingerprint(nil))
	assert.Equal(t, a.String(), Fingerprint([]uuid.UUID{a}))
	assert.Equal(t, fmt.Sprintf("%s|%s", a, b), Fingerprint([]uuid.UUID{a, b}))
	assert.NotEqual(t, Fingerprint([]uuid.UUID{a, b}), Fingerprint([]uuid.UUID{b, a}))
}

func TestReconcileBuildsTreeFromStore(t *testing.T) {
	store, cells := seedStore(t, "first", "second")
	tree := doctree.New()
	r := New()

	res := r.Reconcile(store, tree)

	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Added)
	require.Equal(t, 2, tree.Len())
	assert.Equal(t, cells[0].Id, tree.NodeAt(0).ID)
	assert.Equal(t, "first", markup.PlainText(tree.NodeAt(0).Inline))
	assert.Equal(t, markup.KindParagraph, tree.NodeAt(0).BlockKind)
}

func TestReconcileIsIdempotent(t *testing.T) {
	store, _ := seedStore(t, "a", "b")
	tree := doctree.New()
	r := New()

	r.Reconcile(store, tree)
	res := r.Reconcile(store, tree)

	assert.True(t, res.Skipped, "matching fingerprint skips the pass entirely")
}

func TestReconcileSurgicalInsertPreservesNodes(t *testing.T) {
	store, cells := seedStore(t, "a", "b")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	// Mark the existing node so we can prove it survived untouched.
	edited := []markup.Node{markup.TextNode("user was typing here")}
	_, err := tree.Apply(doctree.NewTransaction(false).ReplaceInline(cells[0].Id, edited))
	require.NoError(t, err)

	inserted := storedCell("inserted")
	require.NoError(t, store.Add(inserted, &cells[0].Id))

	res := r.Reconcile(store, tree)

	assert.False(t, res.Rebuilt)
	assert.Equal(t, 1, res.Added)
	require.Equal(t, 3, tree.Len())
	assert.Equal(t, inserted.Id, tree.NodeAt(1).ID)
	assert.Equal(t, edited, tree.Node(cells[0].Id).Inline, "pure insert touches no existing node")
}

func TestReconcileRemovalTriggersRebuild(t *testing.T) {
	store, cells := seedStore(t, "a", "b", "c")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	require.NoError(t, store.Delete(cells[1].Id))
	res := r.Reconcile(store, tree)

	assert.True(t, res.Rebuilt)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, store.OrderedIDs(), tree.OrderedIDs())
}

func TestReconcileReorderTriggersRebuild(t *testing.T) {
	store, _ := seedStore(t, "a", "b", "c")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	require.NoError(t, store.Reorder(0, 2))
	res := r.Reconcile(store, tree)

	assert.True(t, res.Rebuilt)
	assert.Equal(t, store.OrderedIDs(), tree.OrderedIDs())
}

func TestReconcileFrontInsertRebuilds(t *testing.T) {
	store, cells := seedStore(t, "a", "b")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	// Inserting at the front shifts every shared id's position, which reads
	// as a reorder and takes the rebuild path.
	front := storedCell("front")
	require.NoError(t, store.Add(front, nil))
	require.NoError(t, store.Reorder(2, 0))

	res := r.Reconcile(store, tree)
	assert.True(t, res.Rebuilt)
	assert.Equal(t, []uuid.UUID{front.Id, cells[0].Id, cells[1].Id}, tree.OrderedIDs())
}

func TestReconcileOrderFidelityProperty(t *testing.T) {
	store, _ := seedStore(t, "a", "b", "c", "d", "e")
	tree := doctree.New()
	r := New()

	mutations := []func(){
		func() { r.Reconcile(store, tree) },
		func() { store.Reorder(4, 0) },
		func() { store.Delete(store.OrderedIDs()[2]) },
		func() { store.Add(storedCell("new"), nil) },
	}
	for _, mutate := range mutations {
		mutate()
		r.Reconcile(store, tree)
		assert.Equal(t, store.OrderedIDs(), tree.OrderedIDs(), "tree order always converges to store order")
	}
}

func TestAdoptTreeNodes(t *testing.T) {
	store, cells := seedStore(t, "a")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	pasted := &doctree.Node{
		ID:        uuid.New(),
		CellType:  entity.CellTypeText,
		BlockKind: markup.KindHeading,
		Inline:    []markup.Node{markup.TextNode("pasted heading")},
	}
	_, err := tree.Apply(doctree.NewTransaction(true).InsertNode(1, pasted))
	require.NoError(t, err)

	adopted := r.AdoptTreeNodes(store, tree)

	assert.Equal(t, 1, adopted)
	cell, err := store.Get(pasted.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StreamId(), cell.StreamId)
	assert.Equal(t, 1, cell.Order, "adopted cell lands at its tree position")

	kind, inline := markup.HydrateCell(cell.Content)
	assert.Equal(t, markup.KindHeading, kind)
	assert.Equal(t, pasted.Inline, inline)

	// Second pass adopts nothing new.
	assert.Equal(t, 0, r.AdoptTreeNodes(store, tree))
	assert.Equal(t, []uuid.UUID{cells[0].Id, pasted.ID}, store.OrderedIDs())
}

func TestHydrationCacheSharesNothing(t *testing.T) {
	store, _ := seedStore(t, "same", "same")
	tree := doctree.New()
	r := New()
	r.Reconcile(store, tree)

	// Both nodes hydrate from the same cached content; mutating one must not
	// leak into the other.
	first, second := tree.NodeAt(0), tree.NodeAt(1)
	first.Inline[0].Text = "mutated"

	assert.Equal(t, "same", second.Inline[0].Text)
}
