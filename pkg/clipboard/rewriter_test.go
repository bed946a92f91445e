package clipboard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamdoc-engine/pkg/markup"
)

func cellNode(id string, inline ...markup.Node) markup.Node {
	return markup.Node{
		Type:      markup.TypeCell,
		CellId:    id,
		CellType:  "text",
		BlockKind: string(markup.KindParagraph),
		Children:  inline,
	}
}

func TestRewriteAssignsFreshIds(t *testing.T) {
	a, b := uuid.New().String(), uuid.New().String()
	fragment := []markup.Node{
		cellNode(a, markup.TextNode("first")),
		cellNode(b, markup.TextNode("second")),
	}

	replaced := RewriteIDs(fragment)

	require.Len(t, replaced, 2)
	assert.NotEqual(t, a, fragment[0].CellId)
	assert.NotEqual(t, b, fragment[1].CellId)
	assert.NotEqual(t, fragment[0].CellId, fragment[1].CellId)
	assert.Equal(t, fragment[0].CellId, replaced[a])
	assert.Equal(t, fragment[1].CellId, replaced[b])

	// Identity is the only thing that changes.
	assert.Equal(t, "first", markup.PlainText(fragment[0].Children))
	assert.Equal(t, string(markup.KindParagraph), fragment[0].BlockKind)
	assert.Equal(t, "text", fragment[0].CellType)
}

func TestRewriteReachesNestedCells(t *testing.T) {
	inner := uuid.New().String()
	fragment := []markup.Node{
		{
			Type: markup.TypeRoot,
			Children: []markup.Node{
				cellNode(inner, markup.TextNode("nested")),
			},
		},
	}

	replaced := RewriteIDs(fragment)

	require.Len(t, replaced, 1)
	assert.NotEqual(t, inner, fragment[0].Children[0].CellId)
}

func TestRewriteLeavesNonCellNodesAlone(t *testing.T) {
	mentionId := uuid.New().String()
	fragment := []markup.Node{
		cellNode(uuid.New().String(),
			markup.TextNode("see "),
			markup.Node{Type: markup.TypeMention, MentionId: mentionId, Label: "@Reviewer"},
		),
	}

	RewriteIDs(fragment)

	mention := fragment[0].Children[1]
	assert.Equal(t, mentionId, mention.MentionId, "mentions keep pointing at their target")
	assert.Equal(t, "@Reviewer", mention.Label)
}

func TestRewriteCellWithoutId(t *testing.T) {
	fragment := []markup.Node{cellNode("")}

	replaced := RewriteIDs(fragment)

	assert.Empty(t, replaced, "nothing to map when the source carried no id")
	assert.NotEmpty(t, fragment[0].CellId, "the node still gets an identity")
}

func TestPasteNeverCollidesWithSource(t *testing.T) {
	source := cellNode(uuid.New().String(), markup.TextNode("copy me"))

	// Pasting the same fragment repeatedly always yields unseen ids.
	seen := map[string]bool{source.CellId: true}
	for i := 0; i < 50; i++ {
		fragment := []markup.Node{source}
		fragment[0].CellId = source.CellId
		RewriteIDs(fragment)
		assert.False(t, seen[fragment[0].CellId])
		seen[fragment[0].CellId] = true
	}
}
