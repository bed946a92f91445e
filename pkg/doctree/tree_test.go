package doctree

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/markup"
)

func textNode(text string) *Node {
	return &Node{
		ID:        uuid.New(),
		CellType:  entity.CellTypeText,
		BlockKind: markup.KindParagraph,
		Inline:    []markup.Node{markup.TextNode(text)},
	}
}

func seedTree(t *testing.T, texts ...string) (*Tree, []*Node) {
	t.Helper()
	tree := New()
	nodes := make([]*Node, 0, len(texts))
	tx := NewTransaction(false)
	for i, text := range texts {
		n := textNode(text)
		nodes = append(nodes, n)
		tx.InsertNode(i, n)
	}
	_, err := tree.Apply(tx)
	require.NoError(t, err)
	return tree, nodes
}

func TestApplyInsertAndRemove(t *testing.T) {
	tree, nodes := seedTree(t, "a", "b", "c")
	require.Equal(t, 3, tree.Len())

	_, err := tree.Apply(NewTransaction(false).RemoveNode(nodes[1].ID))
	require.NoError(t, err)

	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, []uuid.UUID{nodes[0].ID, nodes[2].ID}, tree.OrderedIDs())
	assert.Equal(t, 1, tree.IndexOf(nodes[2].ID), "index map reindexed after removal")
	assert.Nil(t, tree.Node(nodes[1].ID))
}

func TestApplyAtomicRollback(t *testing.T) {
	tree, nodes := seedTree(t, "a", "b")

	// Second step targets a node that does not exist; the first step must be
	// rolled back.
	tx := NewTransaction(true).
		RemoveNode(nodes[0].ID).
		RemoveNode(uuid.New())
	_, err := tree.Apply(tx)

	require.ErrorIs(t, err, ErrNodeNotFound)
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, 0, tree.IndexOf(nodes[0].ID))
	assert.False(t, tree.Undo(), "failed transaction leaves no undo entry")
}

func TestApplyInsertBadIndex(t *testing.T) {
	tree, _ := seedTree(t, "a")

	_, err := tree.Apply(NewTransaction(false).InsertNode(5, textNode("x")))
	assert.ErrorIs(t, err, ErrBadIndex)
	assert.Equal(t, 1, tree.Len())
}

func TestUndoRestoresStructureAndContent(t *testing.T) {
	tree, nodes := seedTree(t, "a", "b")
	inserted := textNode("between")

	tx := NewTransaction(true).
		InsertNode(1, inserted).
		ReplaceInline(nodes[0].ID, []markup.Node{markup.TextNode("edited")}).
		SetBlockKind(nodes[0].ID, markup.KindHeading)
	_, err := tree.Apply(tx)
	require.NoError(t, err)
	require.Equal(t, 3, tree.Len())
	require.Equal(t, markup.KindHeading, tree.Node(nodes[0].ID).BlockKind)

	require.True(t, tree.Undo())

	assert.Equal(t, 2, tree.Len())
	assert.Nil(t, tree.Node(inserted.ID))
	assert.Equal(t, "a", markup.PlainText(tree.Node(nodes[0].ID).Inline))
	assert.Equal(t, markup.KindParagraph, tree.Node(nodes[0].ID).BlockKind)
	assert.False(t, tree.Undo())
}

func TestNonUndoableTransactionSkipsHistory(t *testing.T) {
	tree, nodes := seedTree(t, "a")

	_, err := tree.Apply(NewTransaction(false).
		ReplaceInline(nodes[0].ID, []markup.Node{markup.TextNode("streamed")}))
	require.NoError(t, err)

	assert.False(t, tree.Undo())
	assert.Equal(t, "streamed", markup.PlainText(tree.Node(nodes[0].ID).Inline))
}

func TestTransactionSelection(t *testing.T) {
	tree, nodes := seedTree(t, "a", "b")

	sel := Selection{NodeID: nodes[1].ID, Offset: 1, Collapsed: true}
	got, err := tree.Apply(NewTransaction(false).
		ReplaceInline(nodes[1].ID, []markup.Node{markup.TextNode("bb")}).
		WithSelection(sel))
	require.NoError(t, err)

	assert.Equal(t, sel, got)
	assert.Equal(t, sel, tree.Selection())
}

func TestOffsetsAccountForInlineStructure(t *testing.T) {
	tree := New()
	n := &Node{
		ID:       uuid.New(),
		CellType: entity.CellTypeText,
		Inline: []markup.Node{
			markup.TextNode("ab"),
			markup.Linebreak(),
			{Type: markup.TypeImage, Src: "x"},
			markup.TextNode("c"),
		},
	}
	_, err := tree.Apply(NewTransaction(false).InsertNode(0, n))
	require.NoError(t, err)

	assert.Equal(t, 0, tree.FirstOffset(n.ID))
	assert.Equal(t, 5, tree.LastOffset(n.ID))
}

func TestIsEmptyNode(t *testing.T) {
	tree := New()
	empty := &Node{ID: uuid.New(), Inline: []markup.Node{markup.TextNode("  "), markup.Linebreak()}}
	atomic := &Node{ID: uuid.New(), Inline: []markup.Node{{Type: markup.TypeMention, Label: "x"}}}
	_, err := tree.Apply(NewTransaction(false).InsertNode(0, empty).InsertNode(1, atomic))
	require.NoError(t, err)

	assert.True(t, tree.IsEmptyNode(empty.ID))
	assert.False(t, tree.IsEmptyNode(atomic.ID))
	assert.True(t, tree.IsEmptyNode(uuid.New()), "missing node reads as empty")
}

func TestRebuildResetsHistoryAndSelection(t *testing.T) {
	tree, nodes := seedTree(t, "a", "b")
	_, err := tree.Apply(NewTransaction(true).RemoveNode(nodes[1].ID))
	require.NoError(t, err)

	replacement := []*Node{textNode("x"), textNode("y")}
	tree.Rebuild(replacement)

	assert.Equal(t, 2, tree.Len())
	assert.False(t, tree.Undo(), "rebuild clears undo history")
	assert.Equal(t, replacement[0].ID, tree.Selection().NodeID, "selection resettles on first node")
}
